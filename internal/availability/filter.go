// Package availability shapes provider slot queries from the viewer's
// filters, groups the returned slots into therapist/treatment rows and lays
// them out as a day-by-day schedule.
package availability

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/internal/catalog"
)

const dateLayout = "2006-01-02"

// TimeOfDay is a client-side slot filter on the local start hour.
type TimeOfDay string

const (
	AnyTime      TimeOfDay = "any"
	EarlyMorning TimeOfDay = "early_morning"
	Morning      TimeOfDay = "morning"
	Afternoon    TimeOfDay = "afternoon"
	Evening      TimeOfDay = "evening"
)

// hour bounds, half-open [from, to)
var timeOfDayHours = map[TimeOfDay][2]int{
	EarlyMorning: {5, 9},
	Morning:      {9, 12},
	Afternoon:    {12, 17},
	Evening:      {17, 24},
}

// ParseTimeOfDay accepts the bucket names, with '-' or ' ' for '_'. Empty
// means AnyTime.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "" || norm == string(AnyTime) || norm == "all" {
		return AnyTime, nil
	}
	t := TimeOfDay(norm)
	if _, ok := timeOfDayHours[t]; !ok {
		return AnyTime, fmt.Errorf("availability: unknown time of day %q", s)
	}
	return t, nil
}

// Contains reports whether a local start time falls in the bucket.
func (t TimeOfDay) Contains(local time.Time) bool {
	bounds, ok := timeOfDayHours[t]
	if !ok {
		return true
	}
	h := local.Hour()
	return h >= bounds[0] && h < bounds[1]
}

// DateRange is an inclusive span of civil days in the viewer's location.
// Start and End are midnight of their day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func civilDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DefaultRange is [today, today+days-1] in loc.
func DefaultRange(now time.Time, loc *time.Location, days int) DateRange {
	if days < 1 {
		days = 1
	}
	start := civilDay(now, loc)
	return DateRange{Start: start, End: time.Date(start.Year(), start.Month(), start.Day()+days-1, 0, 0, 0, 0, loc)}
}

// ParseRange reads YYYY-MM-DD bounds in loc. A missing start defaults to
// today and a missing end to start+days-1.
func ParseRange(startStr, endStr string, now time.Time, loc *time.Location, days int) (DateRange, error) {
	rng := DefaultRange(now, loc, days)
	if s := strings.TrimSpace(startStr); s != "" {
		start, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("availability: invalid start date %q", startStr)
		}
		rng = DefaultRange(start, loc, days)
	}
	if e := strings.TrimSpace(endStr); e != "" {
		end, err := time.ParseInLocation(dateLayout, e, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("availability: invalid end date %q", endStr)
		}
		rng.End = end
	}
	if rng.End.Before(rng.Start) {
		return DateRange{}, fmt.Errorf("availability: end date %s before start date %s", rng.End.Format(dateLayout), rng.Start.Format(dateLayout))
	}
	return rng, nil
}

// Days counts the civil days in the range, inclusive.
func (r DateRange) Days() int {
	if r.Start.IsZero() || r.End.Before(r.Start) {
		return 0
	}
	// noon anchors keep DST transitions from shortening a day
	a := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 12, 0, 0, 0, time.UTC)
	b := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}

// Bounds returns the provider query window [start 00:00, end 23:59:59].
func (r DateRange) Bounds() (time.Time, time.Time) {
	end := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 23, 59, 59, 0, r.End.Location())
	return r.Start, end
}

// Contains reports whether t falls on one of the range's days.
func (r DateRange) Contains(t time.Time) bool {
	start, end := r.Bounds()
	t = t.In(r.Start.Location())
	return !t.Before(start) && !t.After(end)
}

// FilterState is the viewer's current filter selection. Transitions return
// a new value and never mutate the receiver.
type FilterState struct {
	Range         DateRange `json:"range"`
	Categories    []string  `json:"categories,omitempty"`
	ServiceIDs    []string  `json:"serviceIds,omitempty"`
	StaffIDs      []string  `json:"staffIds,omitempty"`
	TherapistName string    `json:"therapistName,omitempty"`
	TimeOfDay     TimeOfDay `json:"timeOfDay,omitempty"`
}

func NewFilterState(rng DateRange) FilterState {
	return FilterState{Range: rng, TimeOfDay: AnyTime}
}

// HasSelection reports whether at least one category or service is chosen.
func (s FilterState) HasSelection() bool {
	return len(s.Categories) > 0 || len(s.ServiceIDs) > 0
}

func (s FilterState) WithDateRange(r DateRange) FilterState {
	s.Categories = slices.Clone(s.Categories)
	s.ServiceIDs = slices.Clone(s.ServiceIDs)
	s.StaffIDs = slices.Clone(s.StaffIDs)
	s.Range = r
	return s
}

func (s FilterState) ToggleCategory(label string) FilterState {
	s.ServiceIDs = slices.Clone(s.ServiceIDs)
	s.StaffIDs = slices.Clone(s.StaffIDs)
	s.Categories = toggle(s.Categories, strings.TrimSpace(label))
	return s
}

func (s FilterState) ToggleService(id string) FilterState {
	s.Categories = slices.Clone(s.Categories)
	s.StaffIDs = slices.Clone(s.StaffIDs)
	s.ServiceIDs = toggle(s.ServiceIDs, strings.TrimSpace(id))
	return s
}

// WithTherapist narrows the provider query to staffIDs and the rows to the
// therapist name. Either may be empty.
func (s FilterState) WithTherapist(staffIDs []string, name string) FilterState {
	s.Categories = slices.Clone(s.Categories)
	s.ServiceIDs = slices.Clone(s.ServiceIDs)
	s.StaffIDs = nil
	for _, id := range staffIDs {
		if id = strings.TrimSpace(id); id != "" && !slices.Contains(s.StaffIDs, id) {
			s.StaffIDs = append(s.StaffIDs, id)
		}
	}
	s.TherapistName = strings.TrimSpace(name)
	return s
}

func (s FilterState) WithTimeOfDay(t TimeOfDay) FilterState {
	s.Categories = slices.Clone(s.Categories)
	s.ServiceIDs = slices.Clone(s.ServiceIDs)
	s.StaffIDs = slices.Clone(s.StaffIDs)
	s.TimeOfDay = t
	return s
}

// Reset clears every selection and restores the given range.
func (s FilterState) Reset(r DateRange) FilterState {
	return NewFilterState(r)
}

func toggle(list []string, v string) []string {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, item := range list {
		if item == v {
			found = true
			continue
		}
		out = append(out, item)
	}
	if !found && v != "" {
		out = append(out, v)
	}
	return out
}

// Query is the provider request derived from a FilterState plus the
// client-side filters applied after the fetch.
type Query struct {
	Slots         booking.SlotQuery
	Range         DateRange
	TimeOfDay     TimeOfDay
	TherapistName string
}

// Empty reports whether the selection resolved to no session types, in
// which case no provider call is needed.
func (q Query) Empty() bool {
	return len(q.Slots.SessionTypeIDs) == 0
}

// BuildQuery resolves categories to session type ids through the catalog,
// ORs them with explicit service ids and narrows by therapist staff id.
func BuildQuery(state FilterState, cat *catalog.Catalog) (Query, error) {
	if !state.HasSelection() {
		return Query{}, booking.ErrFilterRequired
	}
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range cat.IDsInCategories(state.Categories) {
		add(id)
	}
	for _, id := range state.ServiceIDs {
		add(id)
	}

	start, end := state.Range.Bounds()
	q := Query{
		Slots: booking.SlotQuery{
			SessionTypeIDs: ids,
			Start:          start,
			End:            end,
		},
		Range:         state.Range,
		TimeOfDay:     state.TimeOfDay,
		TherapistName: state.TherapistName,
	}
	if len(state.StaffIDs) > 0 {
		q.Slots.StaffIDs = slices.Clone(state.StaffIDs)
	}
	return q, nil
}

// Keep applies the client-side filters to one fetched slot.
func (q Query) Keep(slot booking.BookableSlot) bool {
	if !slot.Valid() {
		return false
	}
	local := slot.StartDateTime.In(q.Range.Start.Location())
	if !q.Range.Start.IsZero() && !q.Range.Contains(local) {
		return false
	}
	return q.TimeOfDay.Contains(local)
}
