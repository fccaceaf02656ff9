// Package store provides outbox implementations for submitted workflows.
// The SubmissionStore interface is defined in the parent walkflow package
// (../store_interface.go) so routers can depend on it without importing
// a concrete backend.
//
// This package contains concrete implementations:
//   - DynamoDBStore: AWS DynamoDB backend
//   - MemoryStore: In-memory backend for tests and local runs
//
// Schema design follows single-table patterns defined in schema.go.
package store

import "errors"

// ErrNotFound is wrapped by lookups of unknown submissions
var ErrNotFound = errors.New("submission not found")

// ErrAlreadyExists is wrapped when a submission ID is saved twice
var ErrAlreadyExists = errors.New("submission already exists")
