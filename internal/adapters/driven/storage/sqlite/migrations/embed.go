// Package migrations ships the review store schema as numbered .up.sql files.
package migrations

import "embed"

// Files holds every NNN_name.up.sql script; they are applied in lexical order.
//
//go:embed *.up.sql
var Files embed.FS
