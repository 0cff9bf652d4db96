// Package atomicfile writes files so that readers only ever observe the old
// content or the complete new content.
//
// Content is written to a uniquely named temporary file next to the target,
// flushed to stable storage and renamed over the target. When the platform
// reports that the rename cannot be atomic (cross-device or unsupported), the
// content is copied over the target instead. After the rename the parent
// directory is synced on a best-effort basis.
//
// Every failure before the rename removes the temporary file and is returned
// to the caller; nothing partial is ever left at the target path.
package atomicfile
