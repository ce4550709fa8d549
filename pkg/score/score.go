package score

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const secondsPerHour = 3600

var (
	// ErrNoLegs is returned when an option has no resolved commute legs to aggregate.
	ErrNoLegs = errors.New("no commute legs to score")
)

// Keypoint is a weighted location of interest. Higher weight means the
// commute to this address matters more in the aggregate score.
type Keypoint struct {
	Address string  `json:"address" yaml:"address"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

// Validate checks the keypoint invariants (non-empty address, positive weight).
func (k Keypoint) Validate() error {
	if k.Address == "" {
		return errors.New("keypoint address is required")
	}
	if k.Weight <= 0 {
		return fmt.Errorf("keypoint %q weight must be positive, got %v", k.Address, k.Weight)
	}
	return nil
}

// Option is a candidate address being evaluated.
type Option struct {
	Address string `json:"address" yaml:"address"`
}

// Leg is the resolved commute duration from one option to one keypoint.
type Leg struct {
	Keypoint Keypoint `json:"keypoint" yaml:"keypoint"`
	Seconds  float64  `json:"seconds" yaml:"seconds"`
}

// ScoredOption pairs an option with its weighted commute score in hours.
type ScoredOption struct {
	Option Option  `json:"option" yaml:"option"`
	Hours  float64 `json:"hours" yaml:"hours"`
	Legs   []Leg   `json:"legs,omitempty" yaml:"legs,omitempty"`
}

// Hours aggregates commute legs into a single score:
//
//	sum(weight_i * seconds_i) / sum(weight_i)
//
// converted to hours. The result is a convex combination of the leg
// durations, so it is always bounded by the slowest and fastest leg.
func Hours(legs []Leg) (float64, error) {
	if len(legs) == 0 {
		return 0, ErrNoLegs
	}

	var weighted, weights float64
	for _, l := range legs {
		if err := l.Keypoint.Validate(); err != nil {
			return 0, err
		}
		if math.IsNaN(l.Seconds) || l.Seconds < 0 {
			return 0, fmt.Errorf("leg to %q has no valid duration", l.Keypoint.Address)
		}
		weighted += l.Keypoint.Weight * l.Seconds
		weights += l.Keypoint.Weight
	}

	return weighted / weights / secondsPerHour, nil
}

// Rank sorts options ascending by score (lower is better). The sort is
// stable: options with equal scores keep their input order.
func Rank(list []ScoredOption) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Hours < list[j].Hours
	})
}
