package dispatch

import (
	"math"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// Scoring weights. Distance dominates; rating and experience are bonuses
// subtracted from the cost, so the lowest score wins.
const (
	ratingWeight     = 0.5
	experienceWeight = 0.2

	// defaultRating is assumed for drivers without a rating yet.
	defaultRating = 5.0

	// deliveriesForFullExperience is the delivery count at which the
	// experience bonus saturates.
	deliveriesForFullExperience = 100.0
)

// Score computes a driver's fitness for an order: lower is better. Pure and
// deterministic; missing locations contribute zero distance.
func Score(storeLocation *domain.Point, d domain.Driver) float64 {
	var distanceKm float64
	if storeLocation != nil && d.CurrentLocation != nil {
		distanceKm = geo.HaversineKm(*storeLocation, *d.CurrentLocation)
	}

	rating := defaultRating
	if d.Rating != nil {
		rating = *d.Rating
	}

	experience := math.Min(float64(d.TotalDeliveries)/deliveriesForFullExperience, 1)

	return distanceKm - ratingWeight*rating - experienceWeight*experience
}

// bestOf returns the candidate with the lowest score, or nil for an empty
// pool.
func bestOf(storeLocation *domain.Point, candidates []domain.Driver) *domain.Driver {
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	bestScore := Score(storeLocation, best)
	for _, c := range candidates[1:] {
		if s := Score(storeLocation, c); s < bestScore {
			best = c
			bestScore = s
		}
	}
	return &best
}
