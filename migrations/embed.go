// Package migrations bundles the SQL schema for every supported database driver.
package migrations

import "embed"

// FS holds one directory per driver: postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
