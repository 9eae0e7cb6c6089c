package router

import "sort"

// FamilyStats counts how one family's events were routed.
type FamilyStats struct {
	Name         string `json:"name"`
	Kind         Kind   `json:"kind"`
	Dispatched   uint64 `json:"dispatched"`
	Excluded     uint64 `json:"excluded"`
	Preprocessed uint64 `json:"preprocessed"`
	Applied      uint64 `json:"applied"`
	ApplyErrors  uint64 `json:"apply_errors"`
	Republished  uint64 `json:"republished"`
}

// Stats returns a copy of every family's counters, sorted by name.
func (r *Router) Stats() []FamilyStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FamilyStats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FamilyStats returns the counters of one family.
func (r *Router) FamilyStats(name string) (FamilyStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stats[name]
	if !ok {
		return FamilyStats{}, false
	}
	return *s, true
}

// Unmatched returns how many events matched no family.
func (r *Router) Unmatched() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unmatched
}

func (r *Router) count(family string, fn func(*FamilyStats)) {
	r.mu.Lock()
	if s, ok := r.stats[family]; ok {
		fn(s)
	}
	r.mu.Unlock()
}
