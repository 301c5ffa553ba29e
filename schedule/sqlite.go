package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS doctor_availability (
	date           TEXT    NOT NULL,
	time_slot      TEXT    NOT NULL,
	specialization TEXT    NOT NULL,
	doctor_name    TEXT    NOT NULL,
	is_available   INTEGER NOT NULL DEFAULT 1,
	patient_id     INTEGER,
	UNIQUE (date, time_slot, doctor_name)
);
CREATE INDEX IF NOT EXISTS idx_availability_doctor ON doctor_availability(date, doctor_name, is_available);
CREATE INDEX IF NOT EXISTS idx_availability_spec ON doctor_availability(date, specialization, is_available);
`

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to avoid SQLITE_BUSY
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and creates if needed) the database at path and
// ensures the schema exists. Use ":memory:" for a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	inMemory := path == ":memory:"

	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if !inMemory {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for seeding and diagnostics.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// AvailabilityByDoctor implements Store.
func (s *SQLiteStore) AvailabilityByDoctor(ctx context.Context, date, doctor string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time_slot FROM doctor_availability
		WHERE date = ? AND doctor_name = ? AND is_available = 1
		ORDER BY time_slot`, date, doctor)
	if err != nil {
		return nil, fmt.Errorf("query availability by doctor: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// AvailabilityBySpecialization implements Store.
func (s *SQLiteStore) AvailabilityBySpecialization(ctx context.Context, date, specialization string) ([]DoctorSlots, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doctor_name, time_slot FROM doctor_availability
		WHERE date = ? AND specialization = ? AND is_available = 1
		ORDER BY doctor_name, time_slot`, date, specialization)
	if err != nil {
		return nil, fmt.Errorf("query availability by specialization: %w", err)
	}
	defer rows.Close()

	var out []DoctorSlots
	for rows.Next() {
		var doctor, slot string
		if err := rows.Scan(&doctor, &slot); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].Doctor != doctor {
			out = append(out, DoctorSlots{Doctor: doctor})
		}
		out[len(out)-1].Slots = append(out[len(out)-1].Slots, slot)
	}

	return out, rows.Err()
}

// Book implements Store. The availability check and the write are one
// conditional UPDATE so two concurrent bookings cannot both succeed.
func (s *SQLiteStore) Book(ctx context.Context, key SlotKey, patientID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return claim(ctx, tx, key, patientID)
	})
}

// Cancel implements Store.
func (s *SQLiteStore) Cancel(ctx context.Context, key SlotKey, patientID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return release(ctx, tx, key, patientID)
	})
}

// Reschedule implements Store. The new slot is claimed before the old one is
// released; if either step fails the transaction rolls back and the patient
// keeps the original appointment.
func (s *SQLiteStore) Reschedule(ctx context.Context, from, to SlotKey, patientID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := claim(ctx, tx, to, patientID); err != nil {
			return err
		}
		return release(ctx, tx, from, patientID)
	})
}

// Slot implements Store.
func (s *SQLiteStore) Slot(ctx context.Context, key SlotKey) (Slot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, time_slot, specialization, doctor_name, is_available, patient_id
		FROM doctor_availability
		WHERE date = ? AND time_slot = ? AND doctor_name = ?`, key.Date, key.Time, key.Doctor)

	var (
		slot      Slot
		available int
		patient   sql.NullInt64
	)
	if err := row.Scan(&slot.Date, &slot.Time, &slot.Specialization, &slot.Doctor, &available, &patient); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Slot{}, ErrSlotNotFound
		}
		return Slot{}, fmt.Errorf("scan slot: %w", err)
	}

	slot.Available = available == 1
	if patient.Valid {
		id := patient.Int64
		slot.PatientID = &id
	}

	return slot, nil
}

// Insert adds free slots, ignoring keys that already exist. It returns the
// number of rows inserted.
func (s *SQLiteStore) Insert(ctx context.Context, slots []Slot) (int, error) {
	inserted := 0

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO doctor_availability
				(date, time_slot, specialization, doctor_name, is_available, patient_id)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, sl := range slots {
			var patient any
			if sl.PatientID != nil {
				patient = *sl.PatientID
			}
			res, err := stmt.ExecContext(ctx, sl.Date, sl.Time, sl.Specialization, sl.Doctor, boolToInt(sl.Available), patient)
			if err != nil {
				return fmt.Errorf("insert slot %s: %w", sl.Key(), err)
			}
			n, _ := res.RowsAffected()
			inserted += int(n)
		}
		return nil
	})

	return inserted, err
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func claim(ctx context.Context, tx *sql.Tx, key SlotKey, patientID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE doctor_availability
		SET is_available = 0, patient_id = ?
		WHERE date = ? AND time_slot = ? AND doctor_name = ? AND is_available = 1`,
		patientID, key.Date, key.Time, key.Doctor)
	if err != nil {
		return fmt.Errorf("claim slot %s: %w", key, err)
	}
	return expectOneRow(res, ErrSlotUnavailable)
}

func release(ctx context.Context, tx *sql.Tx, key SlotKey, patientID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE doctor_availability
		SET is_available = 1, patient_id = NULL
		WHERE date = ? AND time_slot = ? AND doctor_name = ? AND patient_id = ? AND is_available = 0`,
		key.Date, key.Time, key.Doctor, patientID)
	if err != nil {
		return fmt.Errorf("release slot %s: %w", key, err)
	}
	return expectOneRow(res, ErrAppointmentNotFound)
}

func expectOneRow(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return sentinel
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsBusyError reports whether err is a SQLite lock contention error.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
