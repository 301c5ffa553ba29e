// Package schedule owns the doctor availability table: the closed doctor
// catalog, the Store contract used by the booking tools and its SQLite
// implementation.
package schedule

import (
	"context"
	"errors"
)

var (
	// ErrSlotUnavailable is returned when the requested slot does not exist
	// or is already occupied.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrAppointmentNotFound is returned when no slot is occupied by the
	// given patient at the given key.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotNotFound is returned by Store.Slot for unknown keys.
	ErrSlotNotFound = errors.New("slot not found")
)

// Slot is one row of the availability table.
type Slot struct {
	Date           string
	Time           string
	Specialization string
	Doctor         string
	Available      bool
	PatientID      *int64
}

// Key returns the unique key of the slot.
func (s Slot) Key() SlotKey { return SlotKey{Date: s.Date, Time: s.Time, Doctor: s.Doctor} }

// DoctorSlots groups the free HH:MM slots of one doctor.
type DoctorSlots struct {
	Doctor string
	Slots  []string
}

// Store is the scheduling store consumed by the booking tools. Every mutating
// method is atomic per slot: concurrent callers racing for the same key see
// exactly one winner.
type Store interface {
	// AvailabilityByDoctor returns the free slots of doctor on date in
	// ascending order.
	AvailabilityByDoctor(ctx context.Context, date, doctor string) ([]string, error)

	// AvailabilityBySpecialization returns free slots grouped by doctor name
	// in ascending order.
	AvailabilityBySpecialization(ctx context.Context, date, specialization string) ([]DoctorSlots, error)

	// Book claims a free slot for patientID. ErrSlotUnavailable otherwise.
	Book(ctx context.Context, key SlotKey, patientID int64) error

	// Cancel releases a slot occupied by patientID. ErrAppointmentNotFound otherwise.
	Cancel(ctx context.Context, key SlotKey, patientID int64) error

	// Reschedule moves patientID from one slot to another in a single unit:
	// either both changes apply or neither does.
	Reschedule(ctx context.Context, from, to SlotKey, patientID int64) error

	// Slot returns the row at key.
	Slot(ctx context.Context, key SlotKey) (Slot, error)

	Close() error
}
