// Package gemini adapts Google's Gemini API (google.golang.org/genai) to the
// llm.Backend contract. The system prompt becomes the system instruction and
// the few-shot examples become a model-role turn ahead of the user record.
package gemini
