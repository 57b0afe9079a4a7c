// Package migrations embeds SQL migration files into the binary.
//
// This allows the line writer to create its spool schema without the SQL
// files present on the filesystem.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
