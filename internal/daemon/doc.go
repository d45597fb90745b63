// Package daemon coordinates the long-running mediasift process.
//
// It wires configuration, the job store, the job registry, and the pipeline
// orchestrators into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon owns the HTTP API that exposes synchronous
// pipeline runs, background job submission and polling, and a status endpoint
// that probes backend reachability.
//
// Keep orchestration logic here: pipeline stages live in their respective
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
