// Package engine is the mock HTTP server a recording session runs.
//
// An Engine listens on a loopback port and serves two roles:
//
//   - Record: every request not answered by an in-memory stub is forwarded
//     to the upstream set with ProxyAllTo. The exchange is captured and later
//     converted to stubs with SnapshotRecordedStubs.
//   - Playback: LoadMappings reads persisted stubs from the mapping
//     directory and requests are answered from them. Unmatched requests get
//     a 404 with a JSON description of the closest stubs.
//
// Mapping directory layout:
//
//	<dir>/mappings/*.json   one stub per file (validated against stub.schema.json)
//	<dir>/__files/*         response bodies referenced by bodyFileName
//
// Body matching honors ignore patterns ("json:user.ts",
// "xml:///*[local-name()='a']/@id"). The value at each pattern is neutralised
// on both the recorded and the incoming body before they are compared, so a
// request differing only in a dynamic field still matches its stub.
//
// Basic usage:
//
//	e := engine.New(engine.Options{MappingsDir: dir})
//	if err := e.LoadMappings(); err != nil {
//	    return err
//	}
//	if err := e.Start(ctx); err != nil {
//	    return err
//	}
//	defer e.Stop(ctx)
//	client.BaseURL = e.BaseURL()
package engine
