// Package session manages the lifetime of the mock server dedicated to one
// test (method scope) or one group of tests (class scope).
//
// A session moves through CREATED, STARTING, RUNNING, STOPPING and STOPPED.
// Begin performs the first three steps: it allocates a port per target,
// prepares the mapping directory and starts an engine that either proxies to
// the real service (record) or serves persisted stubs (playback). End
// persists what was recorded, stops the engines and clears every binding of
// the session.
//
// Request history is kept per recorded stub, never per test: each stub's
// request body joins the history of that stub name across runs, and the
// fields the detector finds there are stamped into the stub as ignore
// patterns. Two different requests made by one test are never compared.
//
// Code under test reaches the session without depending on this package at
// compile time: an Endpoint or a Transport resolves the session's base URL
// when a request is issued, from the request context, a Registry key or the
// configured fallback URL, in that order.
package session
