package migrations

import "embed"

// Migrations contiene los scripts SQL aplicados por goose al arrancar.
//
//go:embed *.sql
var Migrations embed.FS
