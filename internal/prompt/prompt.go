package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"tagbench/internal/dataset"
	"tagbench/internal/labels"
	"tagbench/internal/services"
)

// Strategy names the prompting configuration.
const (
	ZeroShot = "zero_shot"
	FewShot  = "few_shot"
)

const (
	systemTemplate = "You are a NLP prediction service that predicts the label given an input's title and description. " +
		"You must choose between one of the following labels for each input: %s. " +
		"Only respond with the label name and nothing else."
	examplesLeadIn = "Here are some examples with the correct labels:"
)

// Config is the immutable prompt configuration for one (model, strategy) run.
type Config struct {
	ModelID          string
	Strategy         string
	SystemContent    string
	AssistantContent string
	CleanText        bool
}

// Options controls few-shot example selection.
type Options struct {
	ExamplesPerLabel int
	CleanText        bool
}

// SystemContent states the assistant role, enumerates every valid label, and
// asks for the bare label in reply.
func SystemContent(set labels.Set) string {
	return fmt.Sprintf(systemTemplate, set.String())
}

// ExamplesByLabel picks up to n records per label from train, in train order.
// Labels without training records are skipped.
func ExamplesByLabel(train []dataset.Record, set labels.Set, n int) map[string][]dataset.Record {
	out := make(map[string][]dataset.Record)
	if n <= 0 {
		return out
	}
	for _, r := range train {
		if !set.Contains(r.Tag) || len(out[r.Tag]) >= n {
			continue
		}
		out[r.Tag] = append(out[r.Tag], r)
	}
	return out
}

// AssistantContent serializes examples, grouped in label order, as JSON lines
// under a short lead-in. No examples yields the empty string.
func AssistantContent(set labels.Set, examples map[string][]dataset.Record) string {
	var lines []string
	for _, label := range set.Labels() {
		for _, r := range examples[label] {
			data, err := json.Marshal(r)
			if err != nil {
				continue
			}
			lines = append(lines, string(data))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return examplesLeadIn + "\n" + strings.Join(lines, "\n")
}

type userPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UserContent renders the title and description of r as a JSON object. The tag
// is never included.
func UserContent(r dataset.Record, clean bool) string {
	payload := userPayload{Title: r.Title, Description: r.Description}
	if clean {
		payload.Title = dataset.CleanText(payload.Title)
		payload.Description = dataset.CleanText(payload.Description)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return r.Title + " " + r.Description
	}
	return string(data)
}

// Build assembles the Config for modelID and strategy. Few-shot examples are
// drawn from train only.
func Build(modelID, strategy string, set labels.Set, train []dataset.Record, opts Options) (Config, error) {
	if strings.TrimSpace(modelID) == "" {
		return Config{}, services.Wrap(services.ErrConfiguration, "prompt", "build", "model id is empty", nil)
	}
	if set.Len() == 0 {
		return Config{}, services.Wrap(services.ErrValidation, "prompt", "build", "label set is empty", nil)
	}
	cfg := Config{
		ModelID:       modelID,
		Strategy:      strategy,
		SystemContent: SystemContent(set),
		CleanText:     opts.CleanText,
	}
	switch strategy {
	case ZeroShot:
	case FewShot:
		cfg.AssistantContent = AssistantContent(set, ExamplesByLabel(train, set, opts.ExamplesPerLabel))
	default:
		return Config{}, services.Wrap(services.ErrConfiguration, "prompt", "build", fmt.Sprintf("unknown strategy %q", strategy), nil)
	}
	return cfg, nil
}
