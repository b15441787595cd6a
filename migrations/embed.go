// Package migrations holds the versioned PostgreSQL schema.
package migrations

import "embed"

// FS contains every *.sql migration, so binaries do not need the directory at runtime.
//
//go:embed *.sql
var FS embed.FS
