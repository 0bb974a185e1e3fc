// Package stubstore is an in-memory document store that speaks the bulk
// protocol. It backs the "stub" command and end-to-end tests.
//
// Documents are kept per index/type/id with a version counter. Scripts are
// accepted but not evaluated: a scripted update of an existing document is
// reported as a noop.
package stubstore
