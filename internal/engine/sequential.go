package engine

import (
	"time"

	"golang.org/x/exp/rand"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
)

// wallClockCheckEvery is how many steps run between deadline checks.
// Checking time.Now on every step would dominate the inner loop.
const wallClockCheckEvery = 1024

// Sequential is the reference stepper. It represents the population as an
// array of agents and simulates each interaction step by choosing an
// ordered pair of distinct agents uniformly at random.
type Sequential struct {
	table  *compiler.Table
	agents []int
	config []int64
	step   int64
	rng    *rand.Rand
}

// NewSequential builds a sequential stepper. config is indexed like the
// table and is copied.
func NewSequential(table *compiler.Table, config []int64, seed uint64) *Sequential {
	s := &Sequential{
		table: table,
		rng:   rand.New(rand.NewSource(seed)),
	}
	s.install(config, 0)
	return s
}

func (s *Sequential) install(config []int64, step int64) {
	s.config = append([]int64(nil), config...)
	var n int64
	for _, c := range config {
		n += c
	}
	s.agents = make([]int, 0, n)
	for state, c := range config {
		for k := int64(0); k < c; k++ {
			s.agents = append(s.agents, state)
		}
	}
	s.step = step
}

// Run advances toward target, one interaction at a time.
func (s *Sequential) Run(target int64, ceiling time.Duration) {
	n := int64(len(s.agents))
	if n < 2 {
		// No pairs exist; every step is trivially null.
		if target > s.step {
			s.step = target
		}
		return
	}
	var deadline time.Time
	if ceiling > 0 {
		deadline = time.Now().Add(ceiling)
	}
	for k := 0; s.step < target; k++ {
		if ceiling > 0 && k%wallClockCheckEvery == 0 && !time.Now().Before(deadline) {
			return
		}
		i := s.rng.Int63n(n)
		j := s.rng.Int63n(n - 1)
		if j >= i {
			j++
		}
		s.interact(i, j)
		s.step++
	}
}

// interact applies the transition for the ordered agent pair (i, j).
func (s *Sequential) interact(i, j int64) {
	a, b := s.agents[i], s.agents[j]
	if s.table.IsNull(a, b) {
		return
	}
	var x, y int
	if count, offset := s.table.RandomAt(a, b); count > 0 {
		u := s.rng.Float64()
		pick := offset + count - 1
		var cum float64
		for k := 0; k < count; k++ {
			cum += s.table.RandomProbs[offset+k]
			if u < cum {
				pick = offset + k
				break
			}
		}
		x, y = s.table.RandomOutputs[pick][0], s.table.RandomOutputs[pick][1]
	} else {
		x, y = s.table.DeltaAt(a, b)
	}
	s.agents[i], s.agents[j] = x, y
	s.config[a]--
	s.config[b]--
	s.config[x]++
	s.config[y]++
}

// Reset reinstalls a configuration and step count.
func (s *Sequential) Reset(config []int64, step int64) {
	s.install(config, step)
}

// Step returns the number of steps executed so far.
func (s *Sequential) Step() int64 { return s.step }

// Config returns a live view of the per-state counts.
func (s *Sequential) Config() []int64 { return s.config }
