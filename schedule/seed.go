package schedule

import (
	"context"
	"fmt"
	"time"
)

// Default seeding window and opening hours.
var (
	DefaultSeedFrom = time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)
	DefaultSeedTo   = time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)
)

const (
	firstHour = 9
	lastHour  = 15
)

// SeedSlots builds free hourly slots (09:00 through 15:00) on every weekday in
// [from, to] for every catalog doctor.
func SeedSlots(from, to time.Time) []Slot {
	var slots []Slot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		date := day.Format(DateLayout)
		for _, d := range Catalog {
			for h := firstHour; h <= lastHour; h++ {
				slots = append(slots, Slot{
					Date:           date,
					Time:           fmt.Sprintf("%02d:00", h),
					Specialization: d.Specialization,
					Doctor:         d.Name,
					Available:      true,
				})
			}
		}
	}
	return slots
}

// Seed inserts the default schedule into store. Existing rows are kept, so
// seeding twice does not reset bookings.
func Seed(ctx context.Context, store *SQLiteStore, from, to time.Time) (int, error) {
	if to.Before(from) {
		return 0, fmt.Errorf("seed window ends before it starts: %s > %s", from.Format(DateLayout), to.Format(DateLayout))
	}
	return store.Insert(ctx, SeedSlots(from, to))
}
