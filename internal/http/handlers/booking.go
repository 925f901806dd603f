package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/homewellness-booking/internal/admission"
	"github.com/wolfman30/homewellness-booking/internal/availability"
	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/internal/catalog"
	httpmiddleware "github.com/wolfman30/homewellness-booking/internal/http/middleware"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

const maxBodyBytes = 64 << 10

type catalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

type rosterSource interface {
	Roster(ctx context.Context, search string) (*catalog.Roster, error)
}

type availabilityFetcher interface {
	Fetch(ctx context.Context, viewerKey string, state availability.FilterState) (*availability.Result, error)
	Location() *time.Location
	DaysToShow() int
}

type slotAdmitter interface {
	Admit(ctx context.Context, req admission.Request) (*admission.Admission, error)
	Book(ctx context.Context, req admission.BookRequest) (*booking.BookingConfirmation, error)
}

// BookingHandlerConfig wires the booking core into HTTP.
type BookingHandlerConfig struct {
	Catalog      catalogLoader
	Roster       rosterSource
	Availability availabilityFetcher
	Guard        slotAdmitter
	Logger       *logging.Logger
}

// BookingHandler serves the booking widget API.
type BookingHandler struct {
	catalog      catalogLoader
	roster       rosterSource
	availability availabilityFetcher
	guard        slotAdmitter
	logger       *logging.Logger
	now          func() time.Time
}

func NewBookingHandler(cfg BookingHandlerConfig) *BookingHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{
		catalog:      cfg.Catalog,
		roster:       cfg.Roster,
		availability: cfg.Availability,
		guard:        cfg.Guard,
		logger:       logger,
		now:          time.Now,
	}
}

// TreatmentServices returns the normalized catalog.
// GET /api/v1/treatment-services
func (h *BookingHandler) TreatmentServices(w http.ResponseWriter, r *http.Request) {
	cat, err := h.catalog.Load(r.Context())
	if err != nil {
		writeBookingError(w, h.logger, "treatment services", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"services":   nonNil(cat.Services),
		"stats":      cat.Stats,
		"categories": cat.Categories(),
		"therapists": cat.Therapists(),
	})
}

// Therapists returns the therapist roster for the next 30 days.
// GET /api/v1/therapists?search=
func (h *BookingHandler) Therapists(w http.ResponseWriter, r *http.Request) {
	roster, err := h.roster.Roster(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeBookingError(w, h.logger, "therapists", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"roster":  roster,
	})
}

// Availability returns the live slots and their therapist/treatment groups.
// GET /api/v1/availability
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	state, result, ok := h.fetch(w, r, "availability")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"slots":   nonNil(result.Slots),
		"groups":  nonNil(result.Groups),
		"range":   rangeJSON(state.Range),
	})
}

// Schedule returns the same query laid out as a day grid.
// GET /api/v1/schedule
func (h *BookingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	state, result, ok := h.fetch(w, r, "schedule")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"days":    nonNil(result.Days),
		"range":   rangeJSON(state.Range),
	})
}

func (h *BookingHandler) fetch(w http.ResponseWriter, r *http.Request, op string) (availability.FilterState, *availability.Result, bool) {
	state, err := h.filterState(r.URL.Query())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return state, nil, false
	}
	result, err := h.availability.Fetch(r.Context(), httpmiddleware.ViewerKey(r.Context()), state)
	if err != nil {
		writeBookingError(w, h.logger, op, err)
		return state, nil, false
	}
	return state, result, true
}

// filterState builds the filter from query parameters. Category and service
// selections arrive as repeated keys, with or without a [] suffix.
func (h *BookingHandler) filterState(q url.Values) (availability.FilterState, error) {
	loc := h.availability.Location()
	rng, err := availability.ParseRange(q.Get("start"), q.Get("end"), h.now(), loc, h.availability.DaysToShow())
	if err != nil {
		return availability.FilterState{}, err
	}
	state := availability.NewFilterState(rng)
	for _, label := range queryList(q, "categories") {
		state = state.ToggleCategory(label)
	}
	for _, id := range queryList(q, "sessionTypeIds") {
		state = state.ToggleService(id)
	}
	staff := queryList(q, "staffIds")
	therapist := strings.TrimSpace(q.Get("therapist"))
	if len(staff) > 0 || therapist != "" {
		state = state.WithTherapist(staff, therapist)
	}
	tod, err := availability.ParseTimeOfDay(q.Get("timeOfDay"))
	if err != nil {
		return availability.FilterState{}, err
	}
	return state.WithTimeOfDay(tod), nil
}

type bookingPayload struct {
	BookableItemID string            `json:"bookableItemId"`
	SessionTypeID  string            `json:"sessionTypeId"`
	StaffID        string            `json:"staffId"`
	StartDateTime  string            `json:"startDateTime"`
	EndDateTime    string            `json:"endDateTime"`
	Price          float64           `json:"price"`
	TreatmentName  string            `json:"treatmentName"`
	TherapistName  string            `json:"therapistName"`
	LocationName   string            `json:"locationName"`
	Metadata       map[string]string `json:"metadata"`
}

// CreateBooking validates the clicked slot live and admits it to the cart.
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var payload bookingPayload
	if err := decodeBody(r, &payload); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	loc := h.availability.Location()
	start, err := parseSlotTime(payload.StartDateTime, loc)
	if err != nil {
		jsonError(w, "invalid startDateTime", http.StatusBadRequest)
		return
	}
	end, err := parseSlotTime(payload.EndDateTime, loc)
	if err != nil {
		jsonError(w, "invalid endDateTime", http.StatusBadRequest)
		return
	}

	adm, err := h.guard.Admit(r.Context(), admission.Request{
		BookableItemID: strings.TrimSpace(payload.BookableItemID),
		SessionTypeID:  strings.TrimSpace(payload.SessionTypeID),
		StaffID:        strings.TrimSpace(payload.StaffID),
		StartDateTime:  start,
		EndDateTime:    end,
		Price:          payload.Price,
		TreatmentName:  payload.TreatmentName,
		TherapistName:  payload.TherapistName,
		LocationName:   payload.LocationName,
		Metadata:       payload.Metadata,
	})
	if err != nil {
		writeBookingError(w, h.logger, "create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"cartLineKey": adm.LineKey,
		"line":        adm.Line,
		"message":     "Treatment added to your basket.",
	})
}

type appointmentPayload struct {
	ClientID  string `json:"clientId"`
	Notes     string `json:"notes"`
	SendEmail bool   `json:"sendEmail"`
	Test      bool   `json:"test"`
}

// CreateAppointment is the checkout hook that turns an admitted line into a
// provider appointment.
// POST /api/v1/bookings/{lineKey}/appointment
func (h *BookingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	lineKey := strings.TrimSpace(chi.URLParam(r, "lineKey"))
	if lineKey == "" {
		jsonError(w, "missing lineKey", http.StatusBadRequest)
		return
	}
	var payload appointmentPayload
	if err := decodeBody(r, &payload); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	conf, err := h.guard.Book(r.Context(), admission.BookRequest{
		LineKey:   lineKey,
		ClientID:  strings.TrimSpace(payload.ClientID),
		Notes:     payload.Notes,
		SendEmail: payload.SendEmail,
		Test:      payload.Test,
	})
	if err != nil {
		writeBookingError(w, h.logger, "create appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"confirmation": conf,
	})
}

// Health is the liveness probe.
// GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// queryList merges key and key[] values, dropping blanks and duplicates.
func queryList(q url.Values, key string) []string {
	raw := append(append([]string{}, q[key]...), q[key+"[]"]...)
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var slotTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"}

// parseSlotTime accepts RFC3339 or a zone-less local time in loc. Empty
// yields the zero time.
func parseSlotTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range slotTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func rangeJSON(r availability.DateRange) map[string]any {
	return map[string]any{
		"start": r.Start.Format("2006-01-02"),
		"end":   r.End.Format("2006-01-02"),
		"days":  r.Days(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
