// Package pipeline orchestrates multi-stage media processing runs. The video
// pipeline sequences transcription, text moderation, and summarization with
// short-circuit rules; the image pipeline sequences download and still-image
// moderation. Stage outcomes are recorded uniformly so callers always receive
// a complete run, even when stages fail.
package pipeline
