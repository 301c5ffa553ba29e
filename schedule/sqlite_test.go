package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "hospital.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	n, err := Seed(context.Background(), store, DefaultSeedFrom, DefaultSeedTo)
	require.NoError(t, err)
	require.Positive(t, n)

	return store
}

func TestSQLiteStore_SeedIsIdempotent(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	key := SlotKey{Date: "01-08-2025", Time: "09:00", Doctor: "john doe"}
	require.NoError(t, store.Book(ctx, key, 1234567))

	n, err := Seed(ctx, store, DefaultSeedFrom, DefaultSeedTo)
	require.NoError(t, err)
	assert.Zero(t, n)

	slot, err := store.Slot(ctx, key)
	require.NoError(t, err)
	assert.False(t, slot.Available)
}

func TestSQLiteStore_AvailabilityByDoctor(t *testing.T) {
	store := newSeededStore(t)

	slots, err := store.AvailabilityByDoctor(context.Background(), "01-08-2025", "john doe")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00"}, slots)

	weekend, err := store.AvailabilityByDoctor(context.Background(), "02-08-2025", "john doe")
	require.NoError(t, err)
	assert.Empty(t, weekend)
}

func TestSQLiteStore_AvailabilityBySpecialization(t *testing.T) {
	store := newSeededStore(t)

	groups, err := store.AvailabilityBySpecialization(context.Background(), "01-08-2025", GeneralDentist)
	require.NoError(t, err)
	require.Len(t, groups, 4)

	doctors := make([]string, 0, len(groups))
	for _, g := range groups {
		doctors = append(doctors, g.Doctor)
		assert.Len(t, g.Slots, 7)
	}
	assert.Equal(t, []string{"daniel miller", "john doe", "sarah wilson", "susan davis"}, doctors)
}

func TestSQLiteStore_BookThenCheckExcludesSlot(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	key := SlotKey{Date: "04-08-2025", Time: "10:00", Doctor: "jane smith"}
	require.NoError(t, store.Book(ctx, key, 7654321))

	slots, err := store.AvailabilityByDoctor(ctx, key.Date, key.Doctor)
	require.NoError(t, err)
	assert.NotContains(t, slots, "10:00")
	assert.Len(t, slots, 6)

	slot, err := store.Slot(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, slot.PatientID)
	assert.Equal(t, int64(7654321), *slot.PatientID)

	assert.ErrorIs(t, store.Book(ctx, key, 1111111), ErrSlotUnavailable)
}

func TestSQLiteStore_BookUnknownSlot(t *testing.T) {
	store := newSeededStore(t)

	err := store.Book(context.Background(), SlotKey{Date: "01-08-2025", Time: "18:00", Doctor: "john doe"}, 1234567)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestSQLiteStore_ConcurrentBookingHasOneWinner(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	key := SlotKey{Date: "05-08-2025", Time: "11:00", Doctor: "lisa brown"}

	const contenders = 8

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		wins        int
		unavailable int
	)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(patient int64) {
			defer wg.Done()
			err := store.Book(ctx, key, patient)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(1000000 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, unavailable)
}

func TestSQLiteStore_CancelWrongPatientLeavesSlot(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	key := SlotKey{Date: "06-08-2025", Time: "13:00", Doctor: "kevin anderson"}

	require.NoError(t, store.Book(ctx, key, 2222222))

	assert.ErrorIs(t, store.Cancel(ctx, key, 3333333), ErrAppointmentNotFound)

	slot, err := store.Slot(ctx, key)
	require.NoError(t, err)
	assert.False(t, slot.Available)
	assert.Equal(t, int64(2222222), *slot.PatientID)

	free := SlotKey{Date: "06-08-2025", Time: "14:00", Doctor: "kevin anderson"}
	assert.ErrorIs(t, store.Cancel(ctx, free, 2222222), ErrAppointmentNotFound)

	require.NoError(t, store.Cancel(ctx, key, 2222222))
	slot, err = store.Slot(ctx, key)
	require.NoError(t, err)
	assert.True(t, slot.Available)
	assert.Nil(t, slot.PatientID)
}

func TestSQLiteStore_Reschedule(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	from := SlotKey{Date: "07-08-2025", Time: "09:00", Doctor: "alex turner"}
	to := SlotKey{Date: "08-08-2025", Time: "15:00", Doctor: "alex turner"}

	require.NoError(t, store.Book(ctx, from, 4444444))
	require.NoError(t, store.Reschedule(ctx, from, to, 4444444))

	old, err := store.Slot(ctx, from)
	require.NoError(t, err)
	assert.True(t, old.Available)

	moved, err := store.Slot(ctx, to)
	require.NoError(t, err)
	assert.False(t, moved.Available)
	assert.Equal(t, int64(4444444), *moved.PatientID)
}

func TestSQLiteStore_RescheduleToTakenSlotKeepsOriginal(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	from := SlotKey{Date: "07-08-2025", Time: "09:00", Doctor: "alex turner"}
	to := SlotKey{Date: "07-08-2025", Time: "10:00", Doctor: "alex turner"}

	require.NoError(t, store.Book(ctx, from, 4444444))
	require.NoError(t, store.Book(ctx, to, 5555555))

	assert.ErrorIs(t, store.Reschedule(ctx, from, to, 4444444), ErrSlotUnavailable)

	old, err := store.Slot(ctx, from)
	require.NoError(t, err)
	assert.False(t, old.Available)
	assert.Equal(t, int64(4444444), *old.PatientID)
}

func TestSQLiteStore_RescheduleWithoutAppointmentRollsBack(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	from := SlotKey{Date: "07-08-2025", Time: "09:00", Doctor: "alex turner"}
	to := SlotKey{Date: "07-08-2025", Time: "11:00", Doctor: "alex turner"}

	assert.ErrorIs(t, store.Reschedule(ctx, from, to, 4444444), ErrAppointmentNotFound)

	target, err := store.Slot(ctx, to)
	require.NoError(t, err)
	assert.True(t, target.Available, "claimed target slot must be rolled back")
}

func TestSQLiteStore_RescheduleRacingBooking(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	from := SlotKey{Date: "11-08-2025", Time: "09:00", Doctor: "robert martinez"}
	to := SlotKey{Date: "11-08-2025", Time: "10:00", Doctor: "robert martinez"}

	require.NoError(t, store.Book(ctx, from, 6666666))

	var wg sync.WaitGroup
	var rescheduleErr, bookErr error
	wg.Add(2)
	go func() { defer wg.Done(); rescheduleErr = store.Reschedule(ctx, from, to, 6666666) }()
	go func() { defer wg.Done(); bookErr = store.Book(ctx, to, 7777777) }()
	wg.Wait()

	// Exactly one of them gets the target slot.
	assert.True(t, (rescheduleErr == nil) != (bookErr == nil))

	old, err := store.Slot(ctx, from)
	require.NoError(t, err)
	if rescheduleErr != nil {
		assert.ErrorIs(t, rescheduleErr, ErrSlotUnavailable)
		assert.False(t, old.Available, "patient must keep the original appointment")
		assert.Equal(t, int64(6666666), *old.PatientID)
	} else {
		assert.True(t, old.Available)
	}
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Insert(context.Background(), []Slot{{Date: "01-08-2025", Time: "09:00", Specialization: GeneralDentist, Doctor: "john doe", Available: true}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Slot(context.Background(), SlotKey{Date: "01-08-2025", Time: "10:00", Doctor: "john doe"})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestIsBusyError(t *testing.T) {
	assert.False(t, IsBusyError(nil))
	assert.True(t, IsBusyError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsBusyError(errors.New("no such table")))
}
