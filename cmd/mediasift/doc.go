// Package main hosts the mediasift CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// synchronous pipeline runs, HTTP calls against the daemon's job API, and
// configuration scaffolding. It centralizes configuration resolution and API
// client setup so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
