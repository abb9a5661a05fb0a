// Package anthropic adapts the Anthropic Messages API to the llm.Backend
// contract. The Messages API has no system-role turn inside the conversation
// and requires the first turn to come from the user, so the few-shot examples
// travel as a second system block ahead of the user record.
package anthropic
