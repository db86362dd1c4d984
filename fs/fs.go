// Package appfs embeds database migrations and static assets into the binary.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
