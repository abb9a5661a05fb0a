// Package llm defines the chat-completion contract shared by every backend and
// provides the OpenAI-compatible HTTP client.
//
// # Contract
//
// A Backend sends exactly one request per Complete call. Failures that are
// worth retrying (HTTP 408/429/5xx, network timeouts, empty completions, and
// error objects returned with a 200) are tagged with services.ErrTransient;
// rejected credentials and unknown models are tagged with
// services.ErrConfiguration. Retry policy lives with the caller.
//
// # Entry Points
//
// NewClient: construct an OpenAI-compatible client (OpenAI, Anyscale, OpenRouter).
// Client.Complete: send the system/assistant/user turns and return the reply.
// Client.HealthCheck: verify the API key and model are usable.
// Conversation: assemble the ordered turns for a classification request.
// Classify: tag SDK or transport errors from other backends consistently.
package llm
