// Package migrations embeds the schema migrations applied by `hms-server migrate`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
