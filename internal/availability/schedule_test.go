package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/homewellness-booking/internal/booking"
)

func TestBuildScheduleThreeDaysAnyTimezone(t *testing.T) {
	for _, name := range []string{"UTC", "Europe/London", "America/Los_Angeles", "Pacific/Auckland", "Asia/Kolkata"} {
		t.Run(name, func(t *testing.T) {
			loc := mustLoc(t, name)
			// spans the March 2024 UK clock change
			rng, err := ParseRange("2024-03-30", "2024-04-01", time.Now(), loc, 7)
			require.NoError(t, err)

			days := BuildSchedule(nil, rng, 7, loc)
			require.Len(t, days, 3)
			assert.Equal(t, "2024-03-30", days[0].Date)
			assert.Equal(t, "2024-03-31", days[1].Date)
			assert.Equal(t, "2024-04-01", days[2].Date)
			assert.Equal(t, "SATURDAY 30 MARCH", days[0].Label)
			assert.Equal(t, "MONDAY 1 APRIL", days[2].Label)
		})
	}
}

func TestBuildScheduleCapsAtDaysToShow(t *testing.T) {
	rng, err := ParseRange("2024-06-01", "2024-06-30", time.Now(), time.UTC, 7)
	require.NoError(t, err)
	assert.Len(t, BuildSchedule(nil, rng, 7, time.UTC), 7)
}

func TestBuildScheduleSplitsSlotsByLocalDay(t *testing.T) {
	london := mustLoc(t, "Europe/London")
	rng, err := ParseRange("2024-06-01", "2024-06-02", time.Now(), london, 7)
	require.NoError(t, err)

	// 23:30 UTC on 1 June is 00:30 on 2 June in London.
	late := mkSlot("late", "1", "7", time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC), 60)
	early := mkSlot("early", "1", "7", time.Date(2024, 6, 1, 9, 0, 0, 0, london), 60)
	groups := []booking.TherapistTreatmentGroup{{Therapist: "Jane Doe", BaseName: "Deep Tissue", Slots: []booking.BookableSlot{early, late}}}

	days := BuildSchedule(groups, rng, 7, london)
	require.Len(t, days, 2)
	require.Len(t, days[0].Rows, 1)
	assert.Equal(t, "early", days[0].Rows[0].Slots[0].BookableItemID)
	require.Len(t, days[1].Rows, 1)
	assert.Equal(t, "late", days[1].Rows[0].Slots[0].BookableItemID)
	assert.Len(t, groups[0].Slots, 2)
}

func TestBuildScheduleEmptyDaysHaveNoRows(t *testing.T) {
	rng, err := ParseRange("2024-06-01", "2024-06-01", time.Now(), time.UTC, 7)
	require.NoError(t, err)
	days := BuildSchedule([]booking.TherapistTreatmentGroup{{Therapist: "X"}}, rng, 7, time.UTC)
	require.Len(t, days, 1)
	assert.Empty(t, days[0].Rows)
	assert.NotNil(t, days[0].Rows)
}
