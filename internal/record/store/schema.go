package store

import _ "embed"

// Schema is the records DDL, embedded so tests and tooling apply exactly
// what production runs.
//
//go:embed schema.sql
var Schema string
