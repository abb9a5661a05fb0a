// Package predict turns prompt configurations into label predictions.
//
// Router resolves a model id to the backend configured to serve it.
// Predictor.Classify sends exactly one request; Predictor.PredictAll walks a
// batch strictly in order and retries the same record after a transient
// failure, so output stays index-aligned with input.
//
// # Retry Policy
//
// The delay before retry n is Cooldown * Multiplier^(n-1), capped at
// MaxDelay and spread by Jitter. A Retry-After hint from the backend
// replaces the computed delay (still capped). MaxAttempts bounds attempts per
// record; zero retries forever. When the bound is hit PredictAll fails with
// services.ErrRetryExhausted.
package predict
