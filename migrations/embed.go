// Package migrations embeds the audit database schema into the binary.
package migrations

import "embed"

// FS holds the *.up.sql / *.down.sql files at its root, in the layout
// database.LoadMigrations expects.
//
//go:embed *.sql
var FS embed.FS
