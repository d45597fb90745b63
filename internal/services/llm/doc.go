// Package llm provides a minimal client for OpenAI-compatible chat
// completion APIs. Calls are single-shot; retry policy belongs to callers.
package llm
