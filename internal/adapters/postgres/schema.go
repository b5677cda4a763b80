package postgres

import _ "embed"

// Schema is the DDL for the locally-owned user data. It is idempotent so
// test setup can apply it unconditionally.
//
//go:embed schema.sql
var Schema string
