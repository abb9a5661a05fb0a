package labels

import (
	"fmt"
	"slices"
	"strings"

	"tagbench/internal/services"
)

// Set is an immutable, validated enumeration of the valid tags for a run.
// The zero value is empty and rejects every label.
type Set struct {
	labels []string
	index  map[string]struct{}
}

// New builds a Set from labels. Labels are kept in sorted order. Empty,
// whitespace-padded, and duplicate labels are rejected, as is an empty input.
func New(values []string) (Set, error) {
	if len(values) == 0 {
		return Set{}, services.Wrap(services.ErrValidation, "labels", "build set", "label set is empty", nil)
	}
	index := make(map[string]struct{}, len(values))
	sorted := make([]string, 0, len(values))
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return Set{}, services.Wrap(services.ErrValidation, "labels", "build set", fmt.Sprintf("label %d is blank", i), nil)
		}
		if strings.TrimSpace(v) != v {
			return Set{}, services.Wrap(services.ErrValidation, "labels", "build set", fmt.Sprintf("label %q has surrounding whitespace", v), nil)
		}
		if _, quoted := unquote(v); quoted {
			return Set{}, services.Wrap(services.ErrValidation, "labels", "build set", fmt.Sprintf("label %q is wrapped in quotes", v), nil)
		}
		if _, dup := index[v]; dup {
			return Set{}, services.Wrap(services.ErrValidation, "labels", "build set", fmt.Sprintf("duplicate label %q", v), nil)
		}
		index[v] = struct{}{}
		sorted = append(sorted, v)
	}
	slices.Sort(sorted)
	return Set{labels: sorted, index: index}, nil
}

// FromObserved builds a Set from the unique values in observed, in the way a
// training split's tag column defines the closed label space.
func FromObserved(observed []string) (Set, error) {
	seen := make(map[string]struct{}, len(observed))
	unique := make([]string, 0)
	for _, v := range observed {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return New(unique)
}

// Contains reports whether label is a member.
func (s Set) Contains(label string) bool {
	_, ok := s.index[label]
	return ok
}

// Labels returns the members in sorted order. The slice is a copy.
func (s Set) Labels() []string {
	return slices.Clone(s.labels)
}

// Len returns the number of labels.
func (s Set) Len() int { return len(s.labels) }

// String renders the set as a comma-separated list.
func (s Set) String() string {
	return strings.Join(s.labels, ", ")
}
