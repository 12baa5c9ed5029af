// Package verifier checks the observable behavior of a deployed ForTesting
// contract. Every scenario runs against a freshly deployed instance, waits for
// each transaction to settle and asserts exact state, revert reasons and
// event payloads.
//
// Scenarios run the same way under go test (Suite.RunT) and from the
// command line (Suite.Run with a Reporter).
package verifier
