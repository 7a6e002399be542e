package migrations

import "embed"

// FS holds the notification service schema.
//
//go:embed *.sql
var FS embed.FS
