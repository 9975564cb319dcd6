// internal/service/geo/resolver.go

package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Point is a latitude/longitude pair
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ResolverConfig contains configuration for the coordinate resolver
type ResolverConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Resolver turns a free-text address into a coordinate pair. It never fails
// outward: every provider error degrades to the offline fallback table.
type Resolver struct {
	config   ResolverConfig
	client   *http.Client
	fallback *Fallback
}

// NewResolver creates a new coordinate resolver
func NewResolver(config ResolverConfig, fallback *Fallback) *Resolver {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if fallback == nil {
		fallback = NewFallback(DefaultFallbackConfig(), nil)
	}

	return &Resolver{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		fallback: fallback,
	}
}

// providerResponse mirrors the geocoding provider's JSON payload
type providerResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location Point `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Resolve returns coordinates for an address. Without an API key it goes
// straight to the fallback; with one it issues a single provider request and
// falls back on any non-OK outcome.
func (r *Resolver) Resolve(ctx context.Context, address string) Point {
	if r.config.APIKey == "" {
		log.Printf("geocoder: no API key configured, using fallback coordinates for %q", address)
		return r.fallback.Resolve(address)
	}

	point, err := r.lookup(ctx, address)
	if err != nil {
		log.Printf("geocoder: %v, falling back for %q", err, address)
		return r.fallback.Resolve(address)
	}

	return point
}

// lookup issues the provider request and interprets its status field
func (r *Resolver) lookup(ctx context.Context, address string) (Point, error) {
	query := url.Values{}
	query.Set("address", address)
	query.Set("key", r.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Point{}, fmt.Errorf("decoding provider response: %w", err)
	}

	if decoded.Status == "OK" && len(decoded.Results) > 0 {
		return decoded.Results[0].Geometry.Location, nil
	}

	// A denied request is a recoverable configuration issue, not a hard error
	if decoded.Status == "REQUEST_DENIED" {
		return Point{}, fmt.Errorf("provider denied request (check that the geocoding API is enabled for this key)")
	}

	if decoded.ErrorMessage != "" {
		return Point{}, fmt.Errorf("provider status %s: %s", decoded.Status, decoded.ErrorMessage)
	}
	return Point{}, fmt.Errorf("provider status %s", decoded.Status)
}
