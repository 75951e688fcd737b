// Package migration holds the database schema.
package migration

import _ "embed"

// Create creates the base tables. It is safe to run against an existing
// database; columns added later are handled by the store.
//
//go:embed create-tables.sql
var Create string
