package inttest

import (
	"log/slog"
	"testing"

	"github.com/gatherly/gatherly/pkg/config"
	"github.com/gatherly/gatherly/pkg/storage"
	_ "github.com/lib/pq" // postgres driver
	"github.com/orlangure/gnomock"
	"github.com/orlangure/gnomock/preset/postgres"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupDB creates a PostgreSQL container. Gorm is connected to the DB and runs the migrations.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	container, err := gnomock.Start(
		postgres.Preset(
			postgres.WithUser("gatherly", "gatherly"),
			postgres.WithDatabase("test_gatherly"),
		),
	)
	require.NoError(t, err, "failed to start DB")
	t.Cleanup(func() { require.NoError(t, gnomock.Stop(container), "failed to stop DB") })

	db, err := storage.NewDatabase(slog.New(slog.DiscardHandler), config.Postgresql{
		Host:         container.Host,
		Port:         container.DefaultPort(),
		Username:     "gatherly",
		Password:     "gatherly",
		DatabaseName: "test_gatherly",
	})
	require.NoError(t, err, "failed to setup DB")
	return db
}
