// Package migrations embeds the collector's SQL schema so the binary can
// migrate a fresh database without the files on disk.
package migrations

import "embed"

// FS holds the *.sql migration files at its root.
//
//go:embed *.sql
var FS embed.FS
