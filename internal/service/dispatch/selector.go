package dispatch

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
)

// SelectorConfig stores candidate search settings.
type SelectorConfig struct {
	// CandidateLimit caps how many drivers one query may consider.
	CandidateLimit int
	// CitywideFallback widens an empty zone search to the whole city.
	CitywideFallback bool
}

// Selector queries available drivers in a geographic scope and ranks them.
type Selector struct {
	cfg    SelectorConfig
	logger logx.Logger
}

// NewSelector creates a Selector.
func NewSelector(cfg SelectorConfig, logger logx.Logger) *Selector {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 20
	}
	return &Selector{cfg: cfg, logger: logger}
}

// SearchScope describes where to look for a driver and whom to skip.
type SearchScope struct {
	ZoneID        string // empty means no zone: citywide only
	CityID        string
	StoreLocation *domain.Point
	Exclude       []string
}

// FindBestDriver returns the best-scored available driver in scope, widening
// from zone to citywide when the zone is empty. A nil result with nil error
// is the zero-candidate outcome, not a failure.
func (s *Selector) FindBestDriver(ctx context.Context, tx dispatchtx.Repository, scope SearchScope) (*domain.Driver, error) {
	var (
		candidates []domain.Driver
		err        error
	)

	if scope.ZoneID != "" {
		candidates, err = tx.FindZoneCandidates(ctx, scope.ZoneID, scope.Exclude, s.cfg.CandidateLimit)
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 && (scope.ZoneID == "" || s.cfg.CitywideFallback) {
		candidates, err = tx.FindCityCandidates(ctx, scope.CityID, scope.Exclude, s.cfg.CandidateLimit)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 && scope.ZoneID != "" {
			s.logger.Debug("zone empty, widened to citywide",
				logx.String("zone_id", scope.ZoneID),
				logx.String("city_id", scope.CityID),
			)
		}
	}

	return bestOf(scope.StoreLocation, candidates), nil
}
