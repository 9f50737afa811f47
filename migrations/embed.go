package migrations

import "embed"

// FS holds the ordered SQL migrations applied by db.RunMigrations.
//
//go:embed *.sql
var FS embed.FS
