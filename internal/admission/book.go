package admission

import (
	"context"
	"errors"
	"strings"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/internal/commerce"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BookRequest converts an admitted cart line into a provider appointment.
type BookRequest struct {
	LineKey   string `json:"cartLineKey"`
	ClientID  string `json:"clientId"`
	Notes     string `json:"notes,omitempty"`
	SendEmail bool   `json:"sendEmail"`
	Test      bool   `json:"test"`
}

// Book creates the appointment for an admitted line. The line is claimed
// before the provider is called, so concurrent calls for one line reach the
// provider once. A line that already carries an appointment returns that
// appointment without calling it again.
func (g *Guard) Book(ctx context.Context, req BookRequest) (*booking.BookingConfirmation, error) {
	ctx, span := admissionTracer.Start(ctx, "admission.book", trace.WithAttributes(
		attribute.String("admission.cart_line_key", req.LineKey),
	))
	defer span.End()

	conf, err := g.book(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("admission.appointment_id", conf.AppointmentID))
	return conf, nil
}

func (g *Guard) book(ctx context.Context, req BookRequest) (*booking.BookingConfirmation, error) {
	if strings.TrimSpace(req.LineKey) == "" {
		return nil, &booking.AdmissionError{Reason: "missing cartLineKey", Err: booking.ErrInvalidAdmission}
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, &booking.AdmissionError{Reason: "missing clientId", Err: booking.ErrInvalidAdmission}
	}

	line, err := g.cart.GetLine(ctx, req.LineKey)
	if err != nil {
		if errors.Is(err, commerce.ErrLineNotFound) {
			return nil, &booking.AdmissionError{Reason: "cart line not found or expired", Err: err}
		}
		return nil, &booking.AdmissionError{Reason: "could not load the cart line", Err: err}
	}
	if existing := line.Metadata[commerce.AppointmentIDKey]; existing != "" {
		return confirmationFor(*line, existing), nil
	}

	if err := g.cart.ClaimBooking(ctx, req.LineKey); err != nil {
		return g.claimFailed(ctx, req.LineKey, err)
	}

	conf, err := g.provider.CreateBooking(ctx, booking.BookingRequest{
		ClientID:  req.ClientID,
		Line:      *line,
		Notes:     req.Notes,
		SendEmail: req.SendEmail,
		Test:      req.Test,
	})
	if err != nil {
		if rerr := g.cart.ReleaseBooking(context.WithoutCancel(ctx), req.LineKey); rerr != nil {
			g.logger.Error("admission: could not release booking claim", "cart_line_key", req.LineKey, "error", rerr)
		}
		reason := "the provider rejected the booking"
		var pe *booking.ProviderError
		if errors.As(err, &pe) && pe.Message != "" {
			reason += ": " + pe.Message
		}
		g.logger.Warn("admission: booking rejected", "cart_line_key", req.LineKey, "error", err)
		return nil, &booking.AdmissionError{Reason: reason, Err: err}
	}

	if err := g.cart.MarkBooked(ctx, req.LineKey, conf.AppointmentID); err != nil {
		// The appointment exists at the provider either way; the claim stays
		// so the line is not booked twice.
		g.logger.Error("admission: could not record appointment on cart line",
			"cart_line_key", req.LineKey,
			"appointment_id", conf.AppointmentID,
			"error", err,
		)
	}

	g.logger.Info("admission: appointment booked",
		"cart_line_key", req.LineKey,
		"appointment_id", conf.AppointmentID,
		"staff_id", line.StaffID,
	)
	return conf, nil
}

// claimFailed maps a lost claim to the caller's answer. A line another
// caller already booked returns that appointment when it is recorded.
func (g *Guard) claimFailed(ctx context.Context, lineKey string, err error) (*booking.BookingConfirmation, error) {
	switch {
	case errors.Is(err, commerce.ErrAlreadyBooked):
		if line, gerr := g.cart.GetLine(ctx, lineKey); gerr == nil {
			if id := line.Metadata[commerce.AppointmentIDKey]; id != "" {
				return confirmationFor(*line, id), nil
			}
		}
		return nil, &booking.AdmissionError{Reason: "this treatment is already booked", Err: err}
	case errors.Is(err, commerce.ErrBookingInProgress):
		g.logger.Info("admission: booking already in progress", "cart_line_key", lineKey)
		return nil, &booking.AdmissionError{Reason: "a booking for this treatment is already in progress", Err: err}
	case errors.Is(err, commerce.ErrLineNotFound):
		return nil, &booking.AdmissionError{Reason: "cart line not found or expired", Err: err}
	default:
		return nil, &booking.AdmissionError{Reason: "could not reserve the cart line", Err: err}
	}
}

func confirmationFor(line booking.CartBookingLine, appointmentID string) *booking.BookingConfirmation {
	return &booking.BookingConfirmation{
		AppointmentID: appointmentID,
		Status:        "Booked",
		StaffID:       line.StaffID,
		SessionTypeID: line.SessionTypeID,
		StartDateTime: line.StartDateTime,
	}
}
