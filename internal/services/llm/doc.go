// Package llm provides an OpenAI-compatible chat client for LLM-based
// classification.
//
// The ad classifier declares a function tool and reads every tool call the
// model returns. JSON-only completions remain available for providers that do
// not support tools.
//
// # Configuration
//
// Requires api_key and model, optionally base_url, referer, title, timeout.
// When the model is unset, callers resolve one through ListModels.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteToolCalls: send prompts plus tools, receive all tool calls.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.ListModels: enumerate models available to the API key.
// Client.HealthCheck: verify API key and model availability.
// ParseCompletion: decode a cached raw completion body.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty answers, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Context cancellation aborts retries immediately.
package llm
