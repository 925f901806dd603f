// Package booking holds the provider-neutral types shared by the catalog,
// availability and admission flows: raw provider records, the normalized
// service catalog, bookable slots and the cart line handed to commerce.
package booking

import (
	"context"
	"strings"
	"time"
)

// RawService is a service record as reported by the provider, before
// category matching and name heuristics are applied.
type RawService struct {
	ID                 string
	Name               string
	CategoryName       string // ServiceCategory.Name
	Program            string
	Duration           int
	Length             int
	SessionLength      int
	Price              *float64
	OnlinePrice        *float64
	AllowOnlineBooking *bool
}

// Service is one normalized catalog entry. Category is always one of the
// configured labels; DurationMinutes is 0 when unknown.
type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	TherapistName   string  `json:"therapistName"`
	TherapistPhoto  string  `json:"therapistPhoto,omitempty"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
	BookableOnline  bool    `json:"bookableOnline"`
}

// Staff is a provider staff member.
type Staff struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// FullName joins first and last name.
func (s Staff) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StaffAppointment is an already-booked appointment on a staff calendar.
type StaffAppointment struct {
	StaffID       string
	StaffName     string
	StartDateTime time.Time
}

// SessionType carries explicit price/duration metadata for a bookable type.
type SessionType struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	DefaultTimeLength int      `json:"defaultTimeLength"`
	Price             *float64 `json:"price,omitempty"`
	OnlineBookable    bool     `json:"onlineBookable"`
}

// Location is a provider site location.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookableSlot is one unit of capacity (staff, session type, time window)
// reported by the provider. It is only valid for a single render cycle.
type BookableSlot struct {
	BookableItemID  string    `json:"bookableItemId"`
	SessionTypeID   string    `json:"sessionTypeId"`
	SessionTypeName string    `json:"sessionTypeName,omitempty"`
	StaffID         string    `json:"staffId"`
	StaffName       string    `json:"staffName,omitempty"`
	StartDateTime   time.Time `json:"startDateTime"`
	EndDateTime     time.Time `json:"endDateTime"`
	LocationID      string    `json:"locationId,omitempty"`
	LocationName    string    `json:"locationName"`
	// Price is the embedded session-type price, when the provider sends one.
	Price *float64 `json:"price,omitempty"`
}

// Valid reports whether the slot has an identity and a positive time window.
func (s BookableSlot) Valid() bool {
	return s.BookableItemID != "" && s.StartDateTime.Before(s.EndDateTime)
}

// DurationMinutes derives the slot length from its time window.
func (s BookableSlot) DurationMinutes() int {
	if !s.Valid() {
		return 0
	}
	return int(s.EndDateTime.Sub(s.StartDateTime) / time.Minute)
}

// SlotQuery narrows a bookable-items request. Start and End are inclusive.
type SlotQuery struct {
	SessionTypeIDs []string
	StaffIDs       []string
	LocationIDs    []string
	Start          time.Time
	End            time.Time
	Limit          int
}

// Variant is one duration option of a therapist/treatment pairing.
type Variant struct {
	SessionTypeID   string  `json:"sessionTypeId"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
}

// TherapistTreatmentGroup aggregates the slots of one (therapist, base
// treatment) pair. Slots are sorted by start time with no repeated
// BookableItemID.
type TherapistTreatmentGroup struct {
	Therapist       string         `json:"therapist"`
	BaseName        string         `json:"baseName"`
	Category        string         `json:"category,omitempty"`
	SessionTypeID   string         `json:"sessionTypeId"`
	DurationMinutes int            `json:"durationMinutes"`
	Price           float64        `json:"price"`
	Variants        []Variant      `json:"variants,omitempty"`
	Slots           []BookableSlot `json:"slots"`
}

// Key returns the grouping key used by the UI to address a row.
func (g TherapistTreatmentGroup) Key() string {
	return g.Therapist + "||" + g.BaseName
}

// CartBookingLine is the record admitted into the external cart once the
// slot has been re-validated against the provider.
type CartBookingLine struct {
	Key            string            `json:"key,omitempty"`
	ProductID      string            `json:"productId,omitempty"`
	SKU            string            `json:"sku,omitempty"`
	BookableItemID string            `json:"bookableItemId"`
	SessionTypeID  string            `json:"sessionTypeId"`
	StaffID        string            `json:"staffId"`
	StartDateTime  time.Time         `json:"startDateTime"`
	EndDateTime    time.Time         `json:"endDateTime"`
	Price          float64           `json:"price"`
	TreatmentName  string            `json:"treatmentName,omitempty"`
	TherapistName  string            `json:"therapistName"`
	LocationID     string            `json:"locationId,omitempty"`
	LocationName   string            `json:"locationName"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	AdmittedAt     time.Time         `json:"admittedAt"`
}

// BookingRequest asks the provider to create the appointment behind an
// admitted cart line.
type BookingRequest struct {
	ClientID  string
	Line      CartBookingLine
	Notes     string
	SendEmail bool
	Test      bool
}

// BookingConfirmation is the provider's answer to a booking request.
type BookingConfirmation struct {
	AppointmentID string    `json:"appointmentId"`
	Status        string    `json:"status,omitempty"`
	StaffID       string    `json:"staffId,omitempty"`
	SessionTypeID string    `json:"sessionTypeId,omitempty"`
	StartDateTime time.Time `json:"startDateTime"`
}

// Provider is the scheduling provider contract. Implementations perform a
// single attempt per call; retry policy belongs to callers or decorators.
type Provider interface {
	FetchServices(ctx context.Context) ([]RawService, error)
	FetchStaff(ctx context.Context) ([]Staff, error)
	FetchStaffAppointments(ctx context.Context, start, end time.Time) ([]StaffAppointment, error)
	FetchSessionTypes(ctx context.Context) ([]SessionType, error)
	FetchLocations(ctx context.Context) ([]Location, error)
	FetchBookableSlots(ctx context.Context, q SlotQuery) ([]BookableSlot, error)
	CreateBooking(ctx context.Context, req BookingRequest) (*BookingConfirmation, error)
}
