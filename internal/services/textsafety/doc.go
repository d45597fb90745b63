// Package textsafety moderates transcript text against a fixed set of
// content policies and converts per-category confidence into an overall
// safe/warning/unsafe verdict.
package textsafety
