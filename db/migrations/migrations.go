// Package migrations embeds the schema of every supported database dialect
package migrations

import "embed"

// FS holds one directory of numbered golang-migrate files per dialect: sqlite and postgres
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
