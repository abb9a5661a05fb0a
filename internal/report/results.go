package report

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tagbench/internal/metrics"
)

// Key identifies one evaluated configuration.
type Key struct {
	Strategy string
	ModelID  string
}

// ID returns the display identifier "<model>_<strategy>".
func (k Key) ID() string {
	return k.ModelID + "_" + k.Strategy
}

// Results maps each evaluated configuration to its scores. The zero value is
// ready to use.
type Results struct {
	reports map[Key]metrics.Report
}

// Set records the report for key, replacing any earlier value.
func (r *Results) Set(key Key, rep metrics.Report) {
	if r.reports == nil {
		r.reports = make(map[Key]metrics.Report)
	}
	r.reports[key] = rep
}

// Get returns the report for key.
func (r *Results) Get(key Key) (metrics.Report, bool) {
	rep, ok := r.reports[key]
	return rep, ok
}

// Len returns the number of recorded configurations.
func (r *Results) Len() int { return len(r.reports) }

// Keys returns every key ordered by strategy, then model.
func (r *Results) Keys() []Key {
	keys := make([]Key, 0, len(r.reports))
	for k := range r.reports {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Strategy != keys[j].Strategy {
			return keys[i].Strategy < keys[j].Strategy
		}
		return keys[i].ModelID < keys[j].ModelID
	})
	return keys
}

// MarshalJSON renders the nested {strategy: {model: report}} layout.
func (r *Results) MarshalJSON() ([]byte, error) {
	nested := make(map[string]map[string]metrics.Report)
	for k, rep := range r.reports {
		if nested[k.Strategy] == nil {
			nested[k.Strategy] = make(map[string]metrics.Report)
		}
		nested[k.Strategy][k.ModelID] = rep
	}
	return json.Marshal(nested)
}

// Row is one flattened result line.
type Row struct {
	Key    Key
	ID     string
	Report metrics.Report
}

// Flatten returns one row per key in Keys order.
func Flatten(results *Results) []Row {
	keys := results.Keys()
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rep, _ := results.Get(k)
		rows = append(rows, Row{Key: k, ID: k.ID(), Report: rep})
	}
	return rows
}

// Best returns the row with the highest F1. Ties keep the earlier row.
func Best(rows []Row) (Row, bool) {
	if len(rows) == 0 {
		return Row{}, false
	}
	best := rows[0]
	for _, row := range rows[1:] {
		if row.Report.F1 > best.Report.F1 {
			best = row
		}
	}
	return best, true
}

// StrategyTitle renders a strategy name for headings ("few_shot" -> "Few Shot").
func StrategyTitle(strategy string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(strategy, "_", " "))
}
