// Package migrations embeds the schema for both persistence backends.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per SQL dialect.
//
//go:embed mysql/*.sql sqlite/*.sql
var FS embed.FS
