package analysis

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/thebtf/soilsense/pkg/models"
)

// Sampler produces soil readings.
type Sampler interface {
	Sample() models.Reading
}

// RandomSampler draws readings uniformly from the sampling domains.
// pH is rounded to two decimals.
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler creates a sampler seeded from the runtime source.
func NewRandomSampler() *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededSampler creates a deterministic sampler, mostly for tests.
func NewSeededSampler(seed1, seed2 uint64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Sample returns a new random reading.
func (s *RandomSampler) Sample() models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	ph := s.rng.Float64()*(models.MaxPH-models.MinPH) + models.MinPH
	return models.Reading{
		PH:          math.Round(ph*100) / 100,
		Moisture:    s.rng.IntN(models.MaxMoisture-models.MinMoisture+1) + models.MinMoisture,
		Temperature: s.rng.IntN(models.MaxTemperature-models.MinTemperature+1) + models.MinTemperature,
	}
}

// FixedSampler always returns the same reading.
type FixedSampler models.Reading

// Sample returns the fixed reading.
func (f FixedSampler) Sample() models.Reading {
	return models.Reading(f)
}
