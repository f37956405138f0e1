package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/csvfile"
	"github.com/kozaktomas/face-attendance/internal/store/memory"
	"github.com/kozaktomas/face-attendance/internal/store/mysql"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
	"github.com/kozaktomas/face-attendance/internal/store/sqlite"
)

// openStore opens the configured ledger backend. The postgres backend also
// provides a gallery embedding cache (pgvector); the others return a nil
// cache and the gallery is re-encoded on every load.
func openStore(cfg *config.Config) (store.Store, gallery.Cache, error) {
	switch cfg.Ledger.Backend {
	case "sqlite", "":
		s, err := sqlite.Open(cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite ledger: %w", err)
		}
		return s, nil, nil

	case "postgres":
		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return postgres.NewAttendanceStore(pool), postgres.NewGalleryCache(pool), nil

	case "mysql":
		s, err := mysql.Open(cfg.Database.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to mysql: %w", err)
		}
		return s, nil, nil

	case "csv":
		s, err := csvfile.Open(cfg.Ledger.CSVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening attendance csv: %w", err)
		}
		return s, nil, nil

	case "memory":
		return memory.New(), nil, nil
	}

	return nil, nil, fmt.Errorf("unknown ledger backend %q (use sqlite, postgres, mysql, csv or memory)", cfg.Ledger.Backend)
}
