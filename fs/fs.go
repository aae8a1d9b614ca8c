package appfs

import "embed"

// FS holds the SQL migrations and the static assets (email templates, seed data, password list).
//
//go:embed migrations/*.sql all:assets
var FS embed.FS
