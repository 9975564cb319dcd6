package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"casaview/internal/adapter/media"
	"casaview/internal/domain/listing"
	"casaview/internal/service/geo"
)

type fakeStore struct {
	listings map[string]listing.Listing
	patches  []listing.PatchOp
	listErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{listings: make(map[string]listing.Listing)}
}

func (s *fakeStore) Insert(ctx context.Context, l *listing.Listing) error {
	s.listings[l.ID] = *l
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (listing.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return listing.Listing{}, errors.New("listing not found")
	}
	return l, nil
}

func (s *fakeStore) List(ctx context.Context) ([]listing.Listing, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]listing.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeStore) ListFeatured(ctx context.Context, limit int) ([]listing.Listing, error) {
	out := []listing.Listing{}
	for _, l := range s.listings {
		if l.Featured && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeStore) ApplyPatch(ctx context.Context, id string, p listing.Patch) error {
	l, ok := s.listings[id]
	if !ok {
		return errors.New("listing not found")
	}

	s.patches = append(s.patches, listing.PatchOp{ID: id, Patch: p})

	if p.SetImages != nil {
		l.Images = *p.SetImages
	}
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Address != nil {
		l.Address = *p.Address
	}
	if p.Lat != nil {
		l.Lat = *p.Lat
	}
	if p.Lng != nil {
		l.Lng = *p.Lng
	}
	s.listings[id] = l
	return nil
}

func (s *fakeStore) ApplyPatches(ctx context.Context, ops []listing.PatchOp) error {
	for _, op := range ops {
		if err := s.ApplyPatch(ctx, op.ID, op.Patch); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.listings[id]; !ok {
		return errors.New("listing not found")
	}
	delete(s.listings, id)
	return nil
}

type fakeMedia struct {
	baseURL    string
	failNames  map[string]bool
	deleted    []string
	deleteErrs map[string]error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		baseURL:    "http://localhost:8080/media",
		failNames:  make(map[string]bool),
		deleteErrs: make(map[string]error),
	}
}

func (m *fakeMedia) UploadAll(ctx context.Context, listingID string, files []media.File) []media.Result {
	results := make([]media.Result, len(files))
	for i, f := range files {
		if m.failNames[f.Name] {
			results[i] = media.Result{Name: f.Name, Err: media.ErrAllPathsFailed}
			continue
		}
		results[i] = media.Result{Name: f.Name, URL: m.baseURL + "/images/" + listingID + "/" + f.Name}
	}
	return results
}

func (m *fakeMedia) OwnsURL(url string) bool {
	return len(url) > len(m.baseURL) && url[:len(m.baseURL)] == m.baseURL
}

func (m *fakeMedia) DeleteByURL(ctx context.Context, url string) error {
	m.deleted = append(m.deleted, url)
	return m.deleteErrs[url]
}

type fakeGeocoder struct {
	point geo.Point
	calls []string
}

func (g *fakeGeocoder) Resolve(ctx context.Context, address string) geo.Point {
	g.calls = append(g.calls, address)
	return g.point
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func newTestService() (*Service, *fakeStore, *fakeMedia, *fakeGeocoder, *fakePublisher) {
	store := newFakeStore()
	mediaStore := newFakeMedia()
	geocoder := &fakeGeocoder{point: geo.Point{Lat: 42.3601, Lng: -71.0589}}
	pub := &fakePublisher{}
	svc := NewService(store, mediaStore, geocoder, pub, ServiceConfig{ChangeSubject: "listings.changed"})
	return svc, store, mediaStore, geocoder, pub
}

func TestCreateResolvesAndUploadsImages(t *testing.T) {
	svc, store, _, geocoder, pub := newTestService()

	files := []media.File{
		{Name: "front.jpg", Data: []byte("a")},
		{Name: "back.jpg", Data: []byte("b")},
	}

	created, err := svc.Create(context.Background(), NewListing{
		Title:   "Sunny loft",
		Price:   450000,
		Address: "12 Beacon St, Boston, MA",
		Type:    listing.TypeApartment,
	}, files)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == "" {
		t.Error("expected a generated listing ID")
	}
	if created.Lat != 42.3601 || created.Lng != -71.0589 {
		t.Errorf("coordinates not resolved: %+v", created)
	}
	if len(geocoder.calls) != 1 || geocoder.calls[0] != "12 Beacon St, Boston, MA" {
		t.Errorf("unexpected geocoder calls: %v", geocoder.calls)
	}

	if len(created.Images) != 2 {
		t.Fatalf("expected 2 image URLs, got %v", created.Images)
	}

	stored := store.listings[created.ID]
	if len(stored.Images) != 2 {
		t.Errorf("image URLs not patched into store: %v", stored.Images)
	}

	if len(pub.subjects) != 1 || pub.subjects[0] != "listings.changed" {
		t.Fatalf("expected one change event, got %v", pub.subjects)
	}
	var event struct {
		Op string `json:"op"`
		ID string `json:"id"`
	}
	if err := json.Unmarshal(pub.payloads[0], &event); err != nil {
		t.Fatalf("failed to decode change event: %v", err)
	}
	if event.Op != "create" || event.ID != created.ID {
		t.Errorf("unexpected change event: %+v", event)
	}
}

func TestCreateSkipsFailedUploads(t *testing.T) {
	svc, store, mediaStore, _, _ := newTestService()
	mediaStore.failNames["broken.jpg"] = true

	created, err := svc.Create(context.Background(), NewListing{
		Title:   "Fixer upper",
		Price:   120000,
		Address: "Chicago",
	}, []media.File{
		{Name: "ok.jpg"},
		{Name: "broken.jpg"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(created.Images) != 1 {
		t.Fatalf("expected 1 image URL, got %v", created.Images)
	}
	for _, url := range store.listings[created.ID].Images {
		if url == "/placeholder.svg?height=400&width=600" {
			t.Error("placeholder URL must never be stored")
		}
	}
}

func TestCreateRejectsInvalidListing(t *testing.T) {
	svc, _, _, _, pub := newTestService()

	_, err := svc.Create(context.Background(), NewListing{Price: 100}, nil)
	if err == nil {
		t.Fatal("expected validation error for missing title")
	}
	if len(pub.subjects) != 0 {
		t.Errorf("no change event expected on failed create, got %v", pub.subjects)
	}
}

func TestUpdateWithoutAddressLeavesCoordinatesAlone(t *testing.T) {
	svc, store, _, geocoder, _ := newTestService()

	created, err := svc.Create(context.Background(), NewListing{Title: "Cottage", Address: "Portland"}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	geocoder.calls = nil

	title := "Renamed cottage"
	if err := svc.Update(context.Background(), created.ID, listing.Patch{Title: &title}, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(geocoder.calls) != 0 {
		t.Errorf("title-only update must not geocode, got calls %v", geocoder.calls)
	}

	last := store.patches[len(store.patches)-1].Patch
	if last.Lat != nil || last.Lng != nil {
		t.Errorf("title-only update must not touch coordinates: %+v", last)
	}
}

func TestUpdateWithAddressReResolves(t *testing.T) {
	svc, store, _, geocoder, _ := newTestService()

	created, err := svc.Create(context.Background(), NewListing{Title: "Cottage", Address: "Portland"}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	geocoder.point = geo.Point{Lat: 25.7617, Lng: -80.1918}

	address := "Miami Beach"
	if err := svc.Update(context.Background(), created.ID, listing.Patch{Address: &address}, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	updated := store.listings[created.ID]
	if updated.Lat != 25.7617 || updated.Lng != -80.1918 {
		t.Errorf("coordinates not re-resolved: %+v", updated)
	}
}

func TestUpdateAppendsUploadedImages(t *testing.T) {
	svc, store, _, _, _ := newTestService()

	created, err := svc.Create(context.Background(), NewListing{Title: "Villa", Address: "Dallas"}, []media.File{{Name: "old.jpg"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Update(context.Background(), created.ID, listing.Patch{}, []media.File{{Name: "new.jpg"}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	images := store.listings[created.ID].Images
	if len(images) != 2 {
		t.Fatalf("expected 2 images after append, got %v", images)
	}
	if images[0] != "http://localhost:8080/media/images/"+created.ID+"/old.jpg" {
		t.Errorf("existing image lost: %v", images)
	}
}

func TestDeleteRemovesImagesBeforeRecord(t *testing.T) {
	svc, store, mediaStore, _, pub := newTestService()

	created, err := svc.Create(context.Background(), NewListing{Title: "Bungalow", Address: "Atlanta"}, []media.File{
		{Name: "a.jpg"},
		{Name: "b.jpg"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// One image delete failing must not block the record delete
	mediaStore.deleteErrs[created.Images[0]] = errors.New("gone already")

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(mediaStore.deleted) != 2 {
		t.Errorf("expected both image deletes attempted, got %v", mediaStore.deleted)
	}
	if _, ok := store.listings[created.ID]; ok {
		t.Error("record still present after delete")
	}
	if pub.subjects[len(pub.subjects)-1] != "listings.changed" {
		t.Errorf("expected a delete change event, got %v", pub.subjects)
	}
}

func TestDeleteSkipsForeignImageURLs(t *testing.T) {
	svc, store, mediaStore, _, _ := newTestService()

	l := listing.Listing{
		ID:     "ext-1",
		Title:  "External",
		Images: []string{"https://example.com/pic.jpg", "/placeholder.svg?height=400&width=600"},
		Type:   listing.TypeHouse,
	}
	store.listings[l.ID] = l

	if err := svc.Delete(context.Background(), l.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(mediaStore.deleted) != 0 {
		t.Errorf("foreign URLs must not be deleted from storage: %v", mediaStore.deleted)
	}
}

func TestBatchUpdateAppliesAllPatches(t *testing.T) {
	svc, _, _, _, pub := newTestService()

	a, _ := svc.Create(context.Background(), NewListing{Title: "A", Address: "Denver"}, nil)
	b, _ := svc.Create(context.Background(), NewListing{Title: "B", Address: "Denver"}, nil)
	pub.subjects = nil

	priceA, priceB := 100.0, 200.0
	ops := []listing.PatchOp{
		{ID: a.ID, Patch: listing.Patch{Price: &priceA}},
		{ID: b.ID, Patch: listing.Patch{Price: &priceB}},
	}

	if err := svc.BatchUpdate(context.Background(), ops); err != nil {
		t.Fatalf("BatchUpdate failed: %v", err)
	}

	if len(pub.subjects) != 1 {
		t.Errorf("expected one change event for the batch, got %v", pub.subjects)
	}
}
