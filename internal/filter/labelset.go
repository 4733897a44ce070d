package filter

import "sort"

// LabelSet is the concrete "enumerated allow-list" filter: a caller-supplied
// set of admitted labels. It backs the allow-list shortcut path directly and
// answers Allows via the same set.
type LabelSet struct {
	set    map[int64]struct{}
	sorted []int64
}

// NewLabelSet builds a LabelSet from labels, deduplicating and sorting them
// once so AllowList can return the cached slice on every call.
func NewLabelSet(labels []int64) *LabelSet {
	set := make(map[int64]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	sorted := make([]int64, 0, len(set))
	for l := range set {
		sorted = append(sorted, l)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &LabelSet{set: set, sorted: sorted}
}

func (f *LabelSet) Allows(label int64) bool {
	_, ok := f.set[label]
	return ok
}

func (f *LabelSet) AllowList() ([]int64, bool) { return f.sorted, true }

func (f *LabelSet) EstimateSelectivity() float64 { return 0 } // caller supplies denominator via ShouldShortcut

func (f *LabelSet) Validate() error { return nil }

func (f *LabelSet) String() string { return "LabelSet" }

// Predicate wraps an arbitrary by-id predicate function as a Filter with no
// dense enumeration, forcing traversal-time per-neighbor checks.
type Predicate struct {
	Fn   func(label int64) bool
	Name string
}

func NewPredicate(name string, fn func(label int64) bool) *Predicate {
	return &Predicate{Fn: fn, Name: name}
}

func (f *Predicate) Allows(label int64) bool        { return f.Fn(label) }
func (f *Predicate) AllowList() ([]int64, bool)      { return nil, false }
func (f *Predicate) EstimateSelectivity() float64    { return 0.5 }
func (f *Predicate) Validate() error {
	if f.Fn == nil {
		return &Error{Op: "predicate", Message: "function cannot be nil"}
	}
	return nil
}
func (f *Predicate) String() string {
	if f.Name != "" {
		return f.Name
	}
	return "Predicate"
}
