// Package stores is the gateway to the marketplace core service that owns
// store records. Dispatch needs only the geographic projection of a store.
package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// Store is the dispatch-relevant projection of a store: its city, its zone
// (may be empty, dispatch then degrades to citywide search) and its location.
type Store struct {
	ID       string
	CityID   string
	ZoneID   string
	Location *domain.Point
}

type storeDTO struct {
	ID     string `json:"id"`
	CityID string `json:"city_id"`
	ZoneID string `json:"zone_id"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
}

func (d storeDTO) toModel() *Store {
	st := &Store{
		ID:     d.ID,
		CityID: d.CityID,
		ZoneID: d.ZoneID,
	}
	if d.Lat != nil && d.Lng != nil {
		st.Location = &domain.Point{Lat: *d.Lat, Lng: *d.Lng}
	}
	return st
}

// HTTPGateway is a stores gateway backed by the marketplace core HTTP API.
type HTTPGateway struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPGateway creates a stores gateway for the given base URL.
func NewHTTPGateway(baseURL string, client *http.Client) (*HTTPGateway, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("stores gateway: parse base url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{base: base, client: client}, nil
}

// GetByID fetches a store by ID from the marketplace core.
func (g *HTTPGateway) GetByID(ctx context.Context, id string) (*Store, error) {
	u := g.base.JoinPath("internal", "stores", url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("stores gateway: build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stores gateway: get store %q: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("stores gateway: store %q: %w", id, apperr.ErrNotFound)
	default:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var dto storeDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("stores gateway: decode store %q: %w", id, err)
	}
	return dto.toModel(), nil
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stores gateway: unexpected status %d", e.Code)
}
