package sim

import "fmt"

// History is the append-only record of (time, configuration) samples.
// Times are strictly increasing and the first entry is always the initial
// configuration at time 0. Every append captures a defensive copy of the
// configuration.
type History struct {
	times   []float64
	configs [][]int64
}

func newHistory(config []int64) *History {
	h := &History{}
	h.times = append(h.times, 0)
	h.configs = append(h.configs, append([]int64(nil), config...))
	return h
}

func historyFromSequences(times []float64, configs [][]int64) (*History, error) {
	if len(times) == 0 || len(times) != len(configs) {
		return nil, &ConfigError{Message: fmt.Sprintf("history has %d times for %d configurations", len(times), len(configs))}
	}
	h := &History{
		times:   append([]float64(nil), times...),
		configs: make([][]int64, len(configs)),
	}
	for i, c := range configs {
		if i > 0 && times[i] <= times[i-1] {
			return nil, &ConfigError{Message: fmt.Sprintf("history times not strictly increasing at index %d", i)}
		}
		h.configs[i] = append([]int64(nil), c...)
	}
	return h, nil
}

// Append records config at time t. Times must be nondecreasing; an append
// at exactly the last recorded time replaces that entry, so strict
// monotonicity of the stored sequence is preserved.
func (h *History) Append(t float64, config []int64) error {
	last := h.times[len(h.times)-1]
	if t < last {
		return &ContractError{Message: fmt.Sprintf("history time %v precedes last recorded time %v", t, last)}
	}
	cp := append([]int64(nil), config...)
	if t == last {
		h.configs[len(h.configs)-1] = cp
		return nil
	}
	h.times = append(h.times, t)
	h.configs = append(h.configs, cp)
	return nil
}

// Reset truncates the history back to a single initial entry at time 0.
func (h *History) Reset(config []int64) {
	h.times = h.times[:0]
	h.configs = h.configs[:0]
	h.times = append(h.times, 0)
	h.configs = append(h.configs, append([]int64(nil), config...))
}

// Len returns the number of recorded entries.
func (h *History) Len() int { return len(h.times) }

// At returns the recorded entry at index i. The configuration is shared;
// callers must not modify it.
func (h *History) At(i int) (float64, []int64) {
	return h.times[i], h.configs[i]
}

// Times returns the recorded time sequence. Read-only view.
func (h *History) Times() []float64 { return h.times }

// Configs returns the recorded configuration sequence. Read-only view.
func (h *History) Configs() [][]int64 { return h.configs }

// LastTime returns the time of the most recent entry.
func (h *History) LastTime() float64 { return h.times[len(h.times)-1] }
