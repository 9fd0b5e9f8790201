// Package migrations embeds the SQL schema migrations so the binary can
// bring its database up to date without the files on disk.
package migrations

import "embed"

// FS holds the migration files at its root, in the form expected by
// database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
