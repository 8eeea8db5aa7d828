package app

import (
	"math/rand"
	"time"
)

// Picker chooses which corpus index to draw next.
type Picker interface {
	// FirstEligible is the lowest index Pick may return.
	FirstEligible() int
	// Pick returns an index in [FirstEligible(), n-1].
	Pick(n int) int
}

// RandomPicker draws uniformly over the eligible range.
// Callers must serialize Pick; the controller does so under its lock.
type RandomPicker struct {
	first int
	rnd   *rand.Rand
}

// NewRandomPicker builds a picker. With excludeFirst the corpus entry at index 0
// is never drawn, matching the word list layout the quiz was first shipped with.
func NewRandomPicker(excludeFirst bool) *RandomPicker {
	first := 0
	if excludeFirst {
		first = 1
	}
	return &RandomPicker{
		first: first,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RandomPicker) FirstEligible() int {
	return p.first
}

func (p *RandomPicker) Pick(n int) int {
	span := n - p.first
	if span <= 0 {
		return p.first
	}
	return p.first + p.rnd.Intn(span)
}
