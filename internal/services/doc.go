// Package services defines the shared error taxonomy and context plumbing used
// by the port implementations under internal/services/...
//
// Sentinel markers tag failures for classification (validation errors fail
// fast, transient/external failures are retried by the retry wrapper), and the
// context helpers carry job, stage, and correlation identifiers so structured
// logs can be assembled without threading fields by hand.
package services
