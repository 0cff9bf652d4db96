// Package id provides identifier generation for recorded stubs.
//
//   - UUID: random UUID v4, the identity of a persisted stub
//   - Short: 16-character hex suffix that keeps generated file names unique
//   - StubName: a readable, file-safe stub name derived from method and path
package id
