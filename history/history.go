// Package history records per-epoch training metrics in a sqlite database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"losslab/engine"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is an open run log.
type Store struct {
	db *sql.DB
}

// Run is one row of the epochs table.
type Run struct {
	RunID         string
	ModelID       string
	Epoch         int
	TrainLoss     float64
	TrainAccuracy float64
	ValLoss       float64
	ValAccuracy   float64
	Millis        float64
}

// Open creates the epochs table at path if needed. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS epochs(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts REAL NOT NULL,
			run_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			train_loss REAL,
			train_acc REAL,
			val_loss REAL,
			val_acc REAL,
			ms REAL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create epochs table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// NewRunID returns a fresh identifier grouping the epochs of one invocation.
func NewRunID() string { return uuid.NewString() }

// Record appends one epoch report under runID.
func (s *Store) Record(runID string, r engine.EpochReport) error {
	_, err := s.db.Exec(`INSERT INTO epochs(ts, run_id, model_id, epoch, train_loss, train_acc, val_loss, val_acc, ms)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		float64(time.Now().UnixMilli())/1000.0,
		runID, r.ModelID, r.Epoch,
		r.TrainLoss, r.TrainAccuracy, r.ValLoss, r.ValAccuracy,
		r.TimeTakenMs)
	if err != nil {
		return fmt.Errorf("record epoch %d: %w", r.Epoch, err)
	}
	return nil
}

// Epochs returns the rows of runID in epoch order.
func (s *Store) Epochs(runID string) ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, model_id, epoch, train_loss, train_acc, val_loss, val_acc, ms
		FROM epochs WHERE run_id = ? ORDER BY epoch`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.ModelID, &r.Epoch, &r.TrainLoss, &r.TrainAccuracy, &r.ValLoss, &r.ValAccuracy, &r.Millis); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Best returns the epoch of runID with the lowest validation loss.
func (s *Store) Best(runID string) (Run, error) {
	var r Run
	err := s.db.QueryRow(`SELECT run_id, model_id, epoch, train_loss, train_acc, val_loss, val_acc, ms
		FROM epochs WHERE run_id = ? ORDER BY val_loss ASC, epoch ASC LIMIT 1`, runID).
		Scan(&r.RunID, &r.ModelID, &r.Epoch, &r.TrainLoss, &r.TrainAccuracy, &r.ValLoss, &r.ValAccuracy, &r.Millis)
	if err != nil {
		return Run{}, fmt.Errorf("best epoch of run %s: %w", runID, err)
	}
	return r, nil
}
