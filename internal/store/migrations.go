package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Calculations table - one row per /calculate_pd request
		`CREATE TABLE IF NOT EXISTS calculations (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL CHECK(status IN ('success', 'error')),
			pd_mm REAL NOT NULL DEFAULT 0,
			confidence REAL NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			landmark_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_calculations_created_at ON calculations(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
