package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
)

// RosterWindow is how far ahead staff calendars are scanned for working days.
const RosterWindow = 30 * 24 * time.Hour

var (
	weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	weekdayTail  = regexp.MustCompile(`(?i)\s*\b(?:mon|tue|wed|thu|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b[\s,]*.*$`)
)

// Therapist is one roster entry.
type Therapist struct {
	Name               string   `json:"name"`
	StaffID            string   `json:"staffId,omitempty"`
	ImageURL           string   `json:"imageUrl,omitempty"`
	AvailableDays      []string `json:"availableDays"`
	AppointmentCount   int      `json:"appointmentCount"`
	AvailabilitySource string   `json:"availabilitySource"`
}

type RosterSummary struct {
	TotalTherapists      int `json:"totalTherapists"`
	WithAvailability     int `json:"withAvailability"`
	WithoutAvailability  int `json:"withoutAvailability"`
	TotalAppointments    int `json:"totalAppointments"`
	ServicesInCategories int `json:"servicesInCategories"`
}

type Roster struct {
	SearchTerm string        `json:"searchTerm"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Therapists []Therapist   `json:"therapists"`
	Summary    RosterSummary `json:"summary"`
	// AppointmentsError is set when staff calendars could not be read.
	AppointmentsError string `json:"appointmentsError,omitempty"`
}

// CleanSearch lower-cases a free-text therapist search, keeps the part before
// any ':' and drops weekday tokens typed after the name.
func CleanSearch(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = weekdayTail.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type staffDays struct {
	name  string
	days  map[time.Weekday]struct{}
	count int
}

// BuildRoster matches catalog therapists to staff records and derives the
// weekdays each has appointments on. Entries are sorted by name.
func BuildRoster(cat *Catalog, staff []booking.Staff, appts []booking.StaffAppointment, search string) []Therapist {
	search = CleanSearch(search)

	byStaff := map[string]*staffDays{}
	var order []string
	for _, a := range appts {
		sd, ok := byStaff[a.StaffID]
		if !ok {
			sd = &staffDays{name: a.StaffName, days: map[time.Weekday]struct{}{}}
			byStaff[a.StaffID] = sd
			order = append(order, a.StaffID)
		}
		sd.days[a.StartDateTime.Weekday()] = struct{}{}
		sd.count++
	}

	var out []Therapist
	for _, name := range cat.Therapists() {
		lname := strings.ToLower(name)
		if search != "" && !strings.Contains(lname, search) {
			continue
		}
		t := Therapist{Name: name, AvailableDays: []string{}, AvailabilitySource: "none"}
		var days *staffDays
		for _, s := range staff {
			if !staffMatches(s, lname) {
				continue
			}
			t.StaffID = s.ID
			t.ImageURL = s.ImageURL
			days = byStaff[s.ID]
			break
		}
		if days == nil {
			for _, id := range order {
				sd := byStaff[id]
				if sd.name != "" && strings.Contains(strings.ToLower(sd.name), lname) {
					days = sd
					break
				}
			}
		}
		if days != nil && len(days.days) > 0 {
			for wd := time.Sunday; wd <= time.Saturday; wd++ {
				if _, ok := days.days[wd]; ok {
					t.AvailableDays = append(t.AvailableDays, weekdayNames[wd])
				}
			}
			t.AppointmentCount = days.count
			t.AvailabilitySource = "mindbody_api"
		}
		if t.ImageURL == "" {
			t.ImageURL = therapistPhoto(cat, name)
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func staffMatches(s booking.Staff, lname string) bool {
	full := strings.ToLower(s.FullName())
	if full != "" && strings.Contains(full, lname) {
		return true
	}
	first := strings.ToLower(s.FirstName)
	return len(first) > 2 && strings.Contains(lname, first)
}

func therapistPhoto(cat *Catalog, name string) string {
	for _, s := range cat.Services {
		if s.TherapistName == name && s.TherapistPhoto != "" {
			return s.TherapistPhoto
		}
	}
	return ""
}

type rosterProvider interface {
	catalogProvider
	FetchStaffAppointments(ctx context.Context, start, end time.Time) ([]booking.StaffAppointment, error)
}

// RosterService answers therapist directory queries.
type RosterService struct {
	provider   rosterProvider
	normalizer *Normalizer
	now        func() time.Time
}

func NewRosterService(provider rosterProvider, normalizer *Normalizer) *RosterService {
	return &RosterService{provider: provider, normalizer: normalizer, now: time.Now}
}

// Roster fetches services, staff and the next 30 days of staff
// appointments. A failed appointments call still yields a roster, with no
// available days.
func (r *RosterService) Roster(ctx context.Context, search string) (*Roster, error) {
	raw, err := r.provider.FetchServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: fetch services: %w", err)
	}
	staff, err := r.provider.FetchStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: fetch staff: %w", err)
	}
	services, stats := r.normalizer.Normalize(raw, staff)
	cat := NewCatalog(services, stats, nil)

	start := r.now()
	end := start.Add(RosterWindow)
	roster := &Roster{SearchTerm: CleanSearch(search), Start: start, End: end}

	appts, err := r.provider.FetchStaffAppointments(ctx, start, end)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("roster: fetch staff appointments: %w", err)
		}
		roster.AppointmentsError = err.Error()
		appts = nil
	}

	roster.Therapists = BuildRoster(cat, staff, appts, search)
	roster.Summary = RosterSummary{
		TotalTherapists:      len(roster.Therapists),
		TotalAppointments:    len(appts),
		ServicesInCategories: stats.FinalCount,
	}
	for _, t := range roster.Therapists {
		if len(t.AvailableDays) > 0 {
			roster.Summary.WithAvailability++
		}
	}
	roster.Summary.WithoutAvailability = roster.Summary.TotalTherapists - roster.Summary.WithAvailability
	return roster, nil
}
