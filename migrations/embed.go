// Package migrations embeds the hwcore schema files so the daemon can
// migrate its database without shipping SQL next to the binary.
package migrations

import (
	"embed"

	"github.com/tabwork/hwcore/internal/infrastructure/database"
)

//go:embed *.up.sql
var schemaFS embed.FS

func init() {
	database.MigrationsFS = schemaFS
	database.MigrationsDir = "."
}
