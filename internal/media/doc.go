// Package media resolves object-store URLs to internal endpoints and fetches
// remote media payloads for the pipeline stages.
package media
