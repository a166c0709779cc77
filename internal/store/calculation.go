package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a calculation does not exist.
var ErrNotFound = errors.New("calculation not found")

// Calculation is one served measurement request.
type Calculation struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	PDMM          float64   `json:"pd_mm"`
	Confidence    float64   `json:"confidence"`
	Message       string    `json:"message,omitempty"`
	LandmarkCount int       `json:"landmark_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CalculationRepository provides access to the calculation log.
type CalculationRepository struct {
	db *sql.DB
}

// Calculations returns the calculation repository for this store.
func (s *Store) Calculations() *CalculationRepository {
	return &CalculationRepository{db: s.db}
}

// Create inserts a calculation. An empty ID gets a new UUID and a zero
// CreatedAt gets the current time; both are written back to c.
func (r *CalculationRepository) Create(c *Calculation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO calculations (id, status, pd_mm, confidence, message, landmark_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Status, c.PDMM, c.Confidence, c.Message, c.LandmarkCount, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

// GetByID retrieves a calculation by its ID.
func (r *CalculationRepository) GetByID(id string) (*Calculation, error) {
	var c Calculation
	err := r.db.QueryRow(
		`SELECT id, status, pd_mm, confidence, message, landmark_count, created_at
		 FROM calculations WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Status, &c.PDMM, &c.Confidence, &c.Message, &c.LandmarkCount, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListRecent returns up to limit calculations, newest first.
func (r *CalculationRepository) ListRecent(limit int) ([]Calculation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, status, pd_mm, confidence, message, landmark_count, created_at
		 FROM calculations
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calcs := []Calculation{}
	for rows.Next() {
		var c Calculation
		if err := rows.Scan(&c.ID, &c.Status, &c.PDMM, &c.Confidence, &c.Message, &c.LandmarkCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		calcs = append(calcs, c)
	}

	return calcs, rows.Err()
}

// Count returns the number of stored calculations.
func (r *CalculationRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM calculations`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
