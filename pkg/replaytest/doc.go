// Package replaytest runs record/replay mock sessions from go tests.
//
// A session is started for the calling test, bound to the test's name and
// stopped by t.Cleanup, so teardown runs on every exit path including
// t.Fatal and panics.
//
// # Basic Usage
//
//	func TestOrders(t *testing.T) {
//	    replaytest.Start(t, replaytest.WithTargets("https://orders.example.com"))
//
//	    client := replaytest.Client(t)
//	    resp, err := client.Get("http://orders/v1/orders")
//	    ...
//	}
//
// The mode comes from REPLAYD_MODE (or replayd.yaml): "record" proxies to
// the targets and persists what was seen under the recordings root,
// anything else replays those recordings.
//
// # Late Binding
//
// Client and Endpoint resolve the session when a request is issued, not
// when they are built. Clients created by test fixtures before the session
// starts still reach it.
//
// # Class Sessions
//
// StartClass starts one session for a parent test; its subtests reach it
// through Client or Endpoint because lookups fall back to the enclosing test
// name.
package replaytest
