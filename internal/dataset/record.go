package dataset

import (
	"slices"
	"strings"
)

// Record is one labeled example. Tag is ground truth and must never reach the
// backend for the record being classified.
type Record struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
}

// Text joins title and description the way previews and text cleaning expect.
func (r Record) Text() string {
	return strings.TrimSpace(r.Title + " " + r.Description)
}

// Tags returns the sorted unique tags present in records.
func Tags(records []Record) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Tag]; ok {
			continue
		}
		seen[r.Tag] = struct{}{}
		out = append(out, r.Tag)
	}
	slices.Sort(out)
	return out
}

// TrueTags extracts the ground-truth column in record order.
func TrueTags(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Tag
	}
	return out
}

// Counts returns the support of each tag.
func Counts(records []Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Tag]++
	}
	return counts
}

// GroupByTag buckets records by tag, preserving their relative order.
func GroupByTag(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.Tag] = append(groups[r.Tag], r)
	}
	return groups
}
