// Package prompt builds the three-turn chat prompts used to classify records.
//
// The system turn enumerates the closed label set, the optional assistant turn
// carries few-shot examples drawn from the training split, and the user turn
// carries the record's title and description as JSON. A Config is built once
// per (model, strategy) pair and never mutated during a run.
package prompt
