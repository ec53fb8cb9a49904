package db

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	appdb "github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/db/migrations"
)

// NewDB returns a migrated sqlite database in a temporary directory of t.
func NewDB(t *testing.T) (*gorm.DB, error) {
	t.Helper()

	uri := filepath.Join(t.TempDir(), "bitcoinswitch.db")
	gormDB, err := appdb.NewDB(uri, false)
	if err != nil {
		return nil, err
	}

	if err := migrations.Migrate(gormDB); err != nil {
		_ = appdb.Stop(gormDB)
		return nil, err
	}

	return gormDB, nil
}

func CloseDB(gormDB *gorm.DB) {
	_ = appdb.Stop(gormDB)
}
