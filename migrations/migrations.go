// Package migrations embeds the Postgres schema so the binary can migrate a
// database without the SQL files on disk.
package migrations

import "embed"

// FS holds the NNNNNN_name.{up,down}.sql files.
//
//go:embed *.sql
var FS embed.FS
