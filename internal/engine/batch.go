package engine

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
)

// Batch is the accelerated stepper. It keeps only per-state counts and
// enumerates the non-null ordered pairs enabled by the current
// configuration. Each event draws the length of the run of null
// interactions preceding the next non-null one from a geometric
// distribution, advances the step counter by the whole run, and applies a
// single non-null interaction chosen by categorical sampling over pair
// counts. Between events the configuration is unchanged, so the geometric
// skip is exact, not an approximation.
//
// When no non-null pair is enabled the configuration is silent and Run
// jumps straight to the target step.
type Batch struct {
	table  *compiler.Table
	config []int64
	n      int64
	step   int64
	src    rand.Source
	rng    *rand.Rand

	// enabled non-null ordered pairs and their pair counts, recomputed
	// after every configuration change.
	pairs   [][2]int
	weights []float64
	total   float64
	dirty   bool
}

// NewBatch builds a batch stepper. config is indexed like the table and
// is copied.
func NewBatch(table *compiler.Table, config []int64, seed uint64) *Batch {
	src := rand.NewSource(seed)
	b := &Batch{
		table: table,
		src:   src,
		rng:   rand.New(src),
	}
	b.install(config, 0)
	return b
}

func (b *Batch) install(config []int64, step int64) {
	b.config = append([]int64(nil), config...)
	b.n = 0
	for _, c := range config {
		b.n += c
	}
	b.step = step
	b.dirty = true
}

// refresh recomputes the enabled pair list. The weight of ordered pair
// (i, j) is the number of ordered agent pairs realizing it.
func (b *Batch) refresh() {
	if !b.dirty {
		return
	}
	b.pairs = b.pairs[:0]
	b.weights = b.weights[:0]
	b.total = 0
	for i := 0; i < b.table.Q; i++ {
		if b.config[i] == 0 {
			continue
		}
		for j := 0; j < b.table.Q; j++ {
			if b.config[j] == 0 || b.table.IsNull(i, j) {
				continue
			}
			var w float64
			if i == j {
				w = float64(b.config[i]) * float64(b.config[i]-1)
			} else {
				w = float64(b.config[i]) * float64(b.config[j])
			}
			if w <= 0 {
				continue
			}
			b.pairs = append(b.pairs, [2]int{i, j})
			b.weights = append(b.weights, w)
			b.total += w
		}
	}
	b.dirty = false
}

// Run advances toward target, one non-null event at a time.
func (b *Batch) Run(target int64, ceiling time.Duration) {
	if b.n < 2 {
		if target > b.step {
			b.step = target
		}
		return
	}
	var deadline time.Time
	if ceiling > 0 {
		deadline = time.Now().Add(ceiling)
	}
	ordered := float64(b.n) * float64(b.n-1)
	for b.step < target {
		if ceiling > 0 && !time.Now().Before(deadline) {
			return
		}
		b.refresh()
		if b.total == 0 {
			// Silent: every remaining step is null.
			b.step = target
			return
		}
		p := b.total / ordered
		skip := geometric(b.rng, p)
		if b.step+skip > target {
			// The next non-null interaction falls past the target.
			// Memorylessness lets the remainder be redrawn next call.
			b.step = target
			return
		}
		b.step += skip
		b.fire()
	}
}

// geometric draws from the geometric distribution on {1, 2, ...} with
// success probability p, by inversion.
func geometric(rng *rand.Rand, p float64) int64 {
	if p >= 1 {
		return 1
	}
	u := 1 - rng.Float64() // (0, 1]
	return int64(math.Log(u)/math.Log(1-p)) + 1
}

// fire applies one non-null interaction chosen over the enabled pairs.
func (b *Batch) fire() {
	cat := distuv.NewCategorical(b.weights, b.src)
	pair := b.pairs[int(cat.Rand())]
	i, j := pair[0], pair[1]
	var x, y int
	if count, offset := b.table.RandomAt(i, j); count > 0 {
		u := b.rng.Float64()
		pick := offset + count - 1
		var cum float64
		for k := 0; k < count; k++ {
			cum += b.table.RandomProbs[offset+k]
			if u < cum {
				pick = offset + k
				break
			}
		}
		x, y = b.table.RandomOutputs[pick][0], b.table.RandomOutputs[pick][1]
	} else {
		x, y = b.table.DeltaAt(i, j)
	}
	if x == i && y == j {
		return
	}
	b.config[i]--
	b.config[j]--
	b.config[x]++
	b.config[y]++
	b.dirty = true
}

// Reset reinstalls a configuration and step count.
func (b *Batch) Reset(config []int64, step int64) {
	b.install(config, step)
}

// Step returns the number of steps executed so far.
func (b *Batch) Step() int64 { return b.step }

// Config returns a live view of the per-state counts.
func (b *Batch) Config() []int64 { return b.config }

// Silent reports whether every possible interaction in the current
// configuration is a null transition.
func (b *Batch) Silent() bool {
	if b.n < 2 {
		return true
	}
	b.refresh()
	return b.total == 0
}

// EnabledPairs returns the non-null ordered pairs enabled by the current
// configuration.
func (b *Batch) EnabledPairs() [][2]int {
	b.refresh()
	out := make([][2]int, len(b.pairs))
	copy(out, b.pairs)
	return out
}
