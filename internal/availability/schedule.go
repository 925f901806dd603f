package availability

import (
	"strings"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
)

// DaySection is one day of the schedule grid.
type DaySection struct {
	Date  string                            `json:"date"`
	Label string                            `json:"label"`
	Rows  []booking.TherapistTreatmentGroup `json:"rows"`
}

// BuildSchedule lays rows out over min(range days, daysToShow) days. Each
// day's rows carry only that day's slots; rows with none are omitted.
func BuildSchedule(groups []booking.TherapistTreatmentGroup, rng DateRange, daysToShow int, loc *time.Location) []DaySection {
	if loc == nil {
		loc = time.UTC
	}
	count := rng.Days()
	if daysToShow > 0 && count > daysToShow {
		count = daysToShow
	}
	days := make([]DaySection, 0, count)
	for i := 0; i < count; i++ {
		noon := time.Date(rng.Start.Year(), rng.Start.Month(), rng.Start.Day()+i, 12, 0, 0, 0, loc)
		date := noon.Format(dateLayout)
		section := DaySection{
			Date:  date,
			Label: strings.ToUpper(noon.Format("Monday 2 January")),
			Rows:  []booking.TherapistTreatmentGroup{},
		}
		for _, g := range groups {
			var daySlots []booking.BookableSlot
			for _, s := range g.Slots {
				if s.StartDateTime.In(loc).Format(dateLayout) == date {
					daySlots = append(daySlots, s)
				}
			}
			if len(daySlots) == 0 {
				continue
			}
			row := g
			row.Slots = daySlots
			section.Rows = append(section.Rows, row)
		}
		days = append(days, section)
	}
	return days
}
