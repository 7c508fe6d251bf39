// Package migrations embeds the gateway's SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
