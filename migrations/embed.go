// Package migrations embeds the registry schema into the gridctl binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/gridctl/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
