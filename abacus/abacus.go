// Package abacus counts key multiplicities with a stack of Bamboo filters.
//
// Layer i holds the digit d_i of a key's count written in bijective base 2,
// count = sum(d_i * 2^i) with d_i in {1, 2}. A digit is the number of times
// the key is present in its layer; the first layer where the key is absent
// ends the number.
package abacus

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/rs/zerolog"

	bamboo "github.com/livekit/bamboofilter"
)

var (
	ErrMaxDepth = errors.New("abacus: max depth reached")
	ErrNotFound = errors.New("abacus: key not found")
)

type Config struct {
	// MaxDepth bounds the number of layers, and so the largest count to
	// 2^(MaxDepth+1) - 2.
	MaxDepth int
	// Filter configures every layer.
	Filter bamboo.Config
	// DistinctHashes gives every layer its own hash seeds. By default all
	// layers share the seeds of the first one.
	DistinctHashes bool
}

func DefaultConfig() Config {
	fc := bamboo.DefaultConfig()
	fc.Mode = bamboo.Set
	return Config{
		MaxDepth: 32,
		Filter:   fc,
	}
}

type Abacus struct {
	cfg    Config
	rng    *rand.Rand
	layers []*bamboo.Filter
	log    zerolog.Logger
}

func New(cfg Config) (*Abacus, error) {
	if cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("%w: abacus max depth must be positive, got %d", bamboo.ErrInvalidConfig, cfg.MaxDepth)
	}
	if cfg.Filter.Seed == 0 {
		cfg.Filter.Seed = rand.Int63() | 1
	}
	a := &Abacus{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Filter.Seed)),
		log: zerolog.Nop(),
	}
	if cfg.Filter.Logger != nil {
		a.log = *cfg.Filter.Logger
	}
	if err := a.addLayer(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Abacus) addLayer() error {
	cfg := a.cfg.Filter
	if a.cfg.DistinctHashes && len(a.layers) > 0 {
		for cfg.Seed = a.rng.Int63(); cfg.Seed == 0; cfg.Seed = a.rng.Int63() {
		}
	}
	f, err := bamboo.NewFilter(cfg)
	if err != nil {
		return err
	}
	a.layers = append(a.layers, f)
	a.log.Debug().Int("depth", len(a.layers)).Msg("abacus layer added")
	return nil
}

// digits returns the key's count in each layer up to the first layer where
// it is absent.
func (a *Abacus) digits(key int32) []uint32 {
	var d []uint32
	for _, l := range a.layers {
		c := l.Count(key)
		if c == 0 {
			break
		}
		d = append(d, c)
	}
	return d
}

// Count returns the number of increments minus decrements of key, possibly
// more because of fingerprint collisions.
func (a *Abacus) Count(key int32) uint64 {
	var total uint64
	for i, d := range a.digits(key) {
		total += uint64(d) << i
	}
	return total
}

// Increment adds one to the count of key. Digits equal to 2 carry: they drop
// to 1 and the next layer is incremented.
func (a *Abacus) Increment(key int32) error {
	digits := a.digits(key)
	i := 0
	for i < len(digits) && digits[i] == 2 {
		i++
	}
	if i == len(a.layers) {
		if len(a.layers) == a.cfg.MaxDepth {
			return ErrMaxDepth
		}
		if err := a.addLayer(); err != nil {
			return err
		}
	}
	if err := a.layers[i].Insert(key); err != nil {
		return fmt.Errorf("abacus: layer %d: %w", i, err)
	}
	for k := 0; k < i; k++ {
		a.layers[k].Remove(key)
	}
	return nil
}

// Decrement subtracts one from the count of key. A digit equal to 1 followed
// by a non zero digit borrows: it becomes 2 and the next layer is decremented.
func (a *Abacus) Decrement(key int32) error {
	digits := a.digits(key)
	if len(digits) == 0 {
		return ErrNotFound
	}
	i := 0
	for i < len(digits)-1 && digits[i] != 2 {
		i++
	}
	for k := 0; k < i; k++ {
		if err := a.layers[k].Insert(key); err != nil {
			for u := k - 1; u >= 0; u-- {
				a.layers[u].Remove(key)
			}
			return fmt.Errorf("abacus: borrow into layer %d: %w", k, err)
		}
	}
	a.layers[i].Remove(key)
	return nil
}

// Depth returns the number of layers.
func (a *Abacus) Depth() int {
	return len(a.layers)
}

// Occupancy weighs the occupancy of each layer by its place value.
func (a *Abacus) Occupancy() uint64 {
	var total uint64
	for i, l := range a.layers {
		total += uint64(l.Occupancy()) << i
	}
	return total
}

// Stats sums the statistics of all layers.
func (a *Abacus) Stats() bamboo.Stats {
	var st bamboo.Stats
	for i, l := range a.layers {
		ls := l.Stats()
		if i == 0 || ls.MinDepth < st.MinDepth {
			st.MinDepth = ls.MinDepth
		}
		st.MaxDepth = max(st.MaxDepth, ls.MaxDepth)
		st.Items += ls.Items
		st.Occupancy += ls.Occupancy
		st.Capacity += ls.Capacity
		st.Bytes += ls.Bytes
		st.Segments += ls.Segments
		st.OverflowSegments += ls.OverflowSegments
		st.Expansions += ls.Expansions
		st.Kicks += ls.Kicks
		st.ChainsExhausted += ls.ChainsExhausted
		st.Rollbacks += ls.Rollbacks
		st.SegmentLookups += ls.SegmentLookups
	}
	return st
}

// Dump writes the statistics of every layer.
func (a *Abacus) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Abacus: %d layers, weighted occupancy %d\n", len(a.layers), a.Occupancy()); err != nil {
		return err
	}
	for i, l := range a.layers {
		if _, err := fmt.Fprintf(w, "Layer %d:\n", i); err != nil {
			return err
		}
		if err := l.DumpInfo(w); err != nil {
			return err
		}
		if err := l.DumpPercentage(w); err != nil {
			return err
		}
	}
	return nil
}
