// Package testutil holds builders shared by package tests: fluent
// conversation construction and small deterministic tools.
package testutil
