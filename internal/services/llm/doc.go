// Package llm provides a chat completion client for OpenAI-compatible
// endpoints. The default target is DeepSeek, which serves as the primary
// subtitle translator.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Complete: send system/user prompts, receive the text reply.
// Client.HealthCheck: verify the API key and model.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx, empty replies and network timeouts
// with exponential backoff (base 500ms, max 8s, 3 attempts by default).
// Retry-After headers are honoured up to the maximum delay. Context
// cancellation aborts retries immediately.
//
// Errors are tagged with services markers: rejected credentials surface as
// ErrConfiguration, exhausted retries as ErrTransient.
package llm
