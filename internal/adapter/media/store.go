// internal/adapter/media/store.go

package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// pathPrefixes are the candidate storage locations tried in order for every
// upload. Buckets in the wild disagree about which prefix their security
// rules allow writes under, so the store brute-forces the known set instead
// of requiring one correct configuration.
var pathPrefixes = []string{"images", "uploads", "public", "listings"}

// placeholderURL is the client-side asset rendered for a listing with no
// images. Failed uploads are filtered out before they reach a listing, so
// this never appears in stored image sequences.
const placeholderURL = "/placeholder.svg?height=400&width=600"

// ErrAllPathsFailed reports that an upload was rejected by every candidate
// storage path
var ErrAllPathsFailed = errors.New("upload rejected by every storage path")

// Backend persists binary objects addressed by path-style keys
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// File is an image pending upload
type File struct {
	Name string
	Data []byte
}

// Result is the outcome of one file's upload
type Result struct {
	Name string
	URL  string
	Err  error
}

// Store persists listing images to a storage backend and hands out public
// URLs under its configured base
type Store struct {
	backend Backend
	baseURL string
}

// NewStore creates a new image store
func NewStore(backend Backend, baseURL string) *Store {
	return &Store{
		backend: backend,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload stores a single file under the first candidate path that accepts it
// and returns the public URL. All paths failing yields ErrAllPathsFailed.
func (s *Store) Upload(ctx context.Context, listingID string, f File) (string, error) {
	for _, prefix := range pathPrefixes {
		key := fmt.Sprintf("%s/%s/%s", prefix, listingID, f.Name)

		if err := s.backend.Put(ctx, key, f.Data); err != nil {
			log.Printf("media: upload to %s failed: %v", key, err)
			continue
		}

		return s.publicURL(key), nil
	}

	return "", fmt.Errorf("%w: %s", ErrAllPathsFailed, f.Name)
}

// UploadAll uploads files concurrently. The returned slice preserves input
// order; entries whose upload failed carry the error instead of a URL.
func (s *Store) UploadAll(ctx context.Context, listingID string, files []File) []Result {
	results := make([]Result, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()

			url, err := s.Upload(ctx, listingID, f)
			results[i] = Result{Name: f.Name, URL: url, Err: err}
		}(i, f)
	}
	wg.Wait()

	return results
}

// SuccessfulURLs filters a batch result down to the URLs that stored,
// preserving upload order. Failed entries never reach a listing's image
// sequence.
func SuccessfulURLs(results []Result) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// OwnsURL reports whether the URL points at this store's public base
func (s *Store) OwnsURL(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}

// DeleteByURL removes the object behind one of this store's public URLs
func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	key, ok := s.keyForURL(url)
	if !ok {
		return fmt.Errorf("url %s is not under the media base", url)
	}

	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Open retrieves a stored object by key, for the media serving endpoint
func (s *Store) Open(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, key)
}

func (s *Store) publicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *Store) keyForURL(url string) (string, bool) {
	if !s.OwnsURL(url) {
		return "", false
	}
	return strings.TrimPrefix(url, s.baseURL+"/"), true
}
