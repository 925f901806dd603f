// Package commerce is the cart collaborator the admission guard writes to:
// one placeholder product per session type, and one cart line per admitted
// slot.
package commerce

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
)

var (
	ErrProductNotFound = errors.New("commerce: product not found")
	ErrLineNotFound    = errors.New("commerce: cart line not found")
	// ErrAlreadyBooked is returned when a line already carries an appointment.
	ErrAlreadyBooked = errors.New("commerce: cart line already booked")
	// ErrBookingInProgress is returned while another caller holds the claim.
	ErrBookingInProgress = errors.New("commerce: booking already in progress for cart line")
)

// Product is the virtual placeholder sold for a session type.
type Product struct {
	ID               string    `json:"id"`
	SKU              string    `json:"sku"`
	Name             string    `json:"name"`
	Price            float64   `json:"price"`
	Virtual          bool      `json:"virtual"`
	SoldIndividually bool      `json:"soldIndividually"`
	Hidden           bool      `json:"hidden"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Cart is the contract the guard depends on.
type Cart interface {
	FindProductBySKU(ctx context.Context, sku string) (*Product, error)
	// CreateProduct returns the existing product when the SKU already exists.
	CreateProduct(ctx context.Context, p Product) (*Product, error)
	UpdateProductPrice(ctx context.Context, productID string, price float64) error
	AddLine(ctx context.Context, productID string, quantity int, line booking.CartBookingLine) (string, error)
	GetLine(ctx context.Context, lineKey string) (*booking.CartBookingLine, error)
	// ClaimBooking reserves a line for one provider call. It returns
	// ErrAlreadyBooked once an appointment is recorded and
	// ErrBookingInProgress while another claim is held.
	ClaimBooking(ctx context.Context, lineKey string) error
	// ReleaseBooking drops a pending claim. A recorded appointment is kept.
	ReleaseBooking(ctx context.Context, lineKey string) error
	// MarkBooked records the provider appointment id on a line exactly once
	// and settles any pending claim.
	MarkBooked(ctx context.Context, lineKey, appointmentID string) error
}

// AppointmentIDKey is the line metadata key set by MarkBooked.
const AppointmentIDKey = "mindbody_appointment_id"
