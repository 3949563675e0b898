// Package llm extracts transactions from bank SMS with a locally hosted
// Ollama model. It builds the extraction prompt, recovers JSON from noisy
// model output, normalizes the fields and scores the result. Results are
// cached in a bounded TTL cache and requests to the endpoint are rate limited
// and retried.
package llm
