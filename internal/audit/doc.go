// Package audit records every pin operation in the pin_operations table and
// serves it back, newest first, for GET /audit.
//
// A Recorder is registered as a gateway observer; the SQLiteRepository does
// the storage. The trail is append-only and never read back into the handle
// cache.
package audit
