// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedHistory is sample order history used by the seeding tool.
//
//go:embed seed/history.json
var SeedHistory []byte
