// Package config loads, normalizes, and validates tagbench configuration data.
//
// It supplies repository defaults (the Made-With-ML dataset URLs, the OpenAI
// and Anyscale backends, the GPT and Llama-2 model roster), expands user paths
// including tilde shortcuts, reads TOML files, and honours environment
// fallbacks such as OPENAI_API_KEY for backend credentials.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical strategy names, and clear validation errors.
package config
