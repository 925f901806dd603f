// Package admission re-validates a displayed slot against the live provider
// and only then writes it to the cart.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/internal/commerce"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var admissionTracer = otel.Tracer("homewellness.internal.admission")

// Line metadata keys written on every admitted line.
const (
	MetaBookableItemID = "mindbody_bookable_item_id"
	MetaSessionTypeID  = "mindbody_session_type_id"
	MetaStaffID        = "mindbody_staff_id"
	MetaStart          = "mindbody_start"
	MetaEnd            = "mindbody_end"
	MetaLocation       = "mindbody_location"
	MetaTherapist      = "mindbody_therapist"
	MetaPrice          = "mindbody_price"
)

type provider interface {
	FetchBookableSlots(ctx context.Context, q booking.SlotQuery) ([]booking.BookableSlot, error)
	CreateBooking(ctx context.Context, req booking.BookingRequest) (*booking.BookingConfirmation, error)
}

type admissionObserver interface {
	ObserveAdmission(outcome string)
}

// Request is the slot the viewer clicked, as it was displayed. None of it is
// trusted until the live re-query confirms it.
type Request struct {
	BookableItemID string            `json:"bookableItemId"`
	SessionTypeID  string            `json:"sessionTypeId"`
	StaffID        string            `json:"staffId"`
	StartDateTime  time.Time         `json:"startDateTime"`
	EndDateTime    time.Time         `json:"endDateTime"`
	Price          float64           `json:"price"`
	TreatmentName  string            `json:"treatmentName,omitempty"`
	TherapistName  string            `json:"therapistName,omitempty"`
	LocationName   string            `json:"locationName,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Admission is the admitted cart line.
type Admission struct {
	LineKey string                  `json:"cartLineKey"`
	Line    booking.CartBookingLine `json:"line"`
	Product commerce.Product        `json:"product"`
}

// Guard implements validate-then-admit.
type Guard struct {
	provider        provider
	cart            commerce.Cart
	logger          *logging.Logger
	metrics         admissionObserver
	window          time.Duration
	skuPrefix       string
	defaultLocation string
	now             func() time.Time
}

func NewGuard(p provider, cart commerce.Cart, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{
		provider:  p,
		cart:      cart,
		logger:    logger,
		window:    time.Hour,
		skuPrefix: "mb-",
		now:       time.Now,
	}
}

func (g *Guard) WithWindow(d time.Duration) *Guard {
	if d > 0 {
		g.window = d
	}
	return g
}

func (g *Guard) WithSKUPrefix(prefix string) *Guard {
	if prefix != "" {
		g.skuPrefix = prefix
	}
	return g
}

func (g *Guard) WithDefaultLocation(name string) *Guard {
	g.defaultLocation = strings.TrimSpace(name)
	return g
}

func (g *Guard) WithMetrics(m admissionObserver) *Guard {
	g.metrics = m
	return g
}

// SKU is the stable product SKU for a session type.
func (g *Guard) SKU(sessionTypeID string) string {
	return g.skuPrefix + sessionTypeID
}

// Admit moves a slot DISPLAYED -> VALIDATING -> ADMITTED or REJECTED. A
// rejected slot yields *booking.SlotUnavailableError and no cart write.
func (g *Guard) Admit(ctx context.Context, req Request) (*Admission, error) {
	ctx, span := admissionTracer.Start(ctx, "admission.admit", trace.WithAttributes(
		attribute.String("admission.bookable_item_id", req.BookableItemID),
		attribute.String("admission.session_type_id", req.SessionTypeID),
		attribute.String("admission.staff_id", req.StaffID),
	))
	defer span.End()

	adm, outcome, err := g.admit(ctx, req)
	span.SetAttributes(attribute.String("admission.outcome", outcome))
	g.observe(outcome)
	if err != nil {
		span.RecordError(err)
		if outcome != "rejected" {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return adm, nil
}

func (g *Guard) admit(ctx context.Context, req Request) (*Admission, string, error) {
	if err := validate(req); err != nil {
		return nil, "error", err
	}

	live, err := g.revalidate(ctx, req)
	if err != nil {
		var sue *booking.SlotUnavailableError
		if errors.As(err, &sue) {
			g.logger.Info("admission: slot rejected", "bookable_item_id", req.BookableItemID, "reason", sue.Reason)
			return nil, "rejected", err
		}
		return nil, "error", err
	}

	line := g.buildLine(req, live)
	product, err := g.ensureProduct(ctx, req, line.Price)
	if err != nil {
		return nil, "error", err
	}
	line.SKU = product.SKU

	key, err := g.cart.AddLine(ctx, product.ID, 1, line)
	if err != nil {
		return nil, "error", &booking.AdmissionError{Reason: "could not add the treatment to the cart", Err: err}
	}
	line.Key = key
	line.ProductID = product.ID

	g.logger.Info("admission: slot admitted",
		"bookable_item_id", line.BookableItemID,
		"session_type_id", line.SessionTypeID,
		"staff_id", line.StaffID,
		"cart_line_key", key,
	)
	return &Admission{LineKey: key, Line: line, Product: *product}, "admitted", nil
}

func validate(req Request) error {
	var missing []string
	if strings.TrimSpace(req.BookableItemID) == "" {
		missing = append(missing, "bookableItemId")
	}
	if strings.TrimSpace(req.SessionTypeID) == "" {
		missing = append(missing, "sessionTypeId")
	}
	if strings.TrimSpace(req.StaffID) == "" {
		missing = append(missing, "staffId")
	}
	if req.StartDateTime.IsZero() {
		missing = append(missing, "startDateTime")
	}
	if len(missing) > 0 {
		return &booking.AdmissionError{Reason: "missing " + strings.Join(missing, ", "), Err: booking.ErrInvalidAdmission}
	}
	if !req.EndDateTime.IsZero() && !req.StartDateTime.Before(req.EndDateTime) {
		return &booking.AdmissionError{Reason: "slot end must be after its start", Err: booking.ErrInvalidAdmission}
	}
	if req.Price <= 0 {
		return &booking.AdmissionError{Reason: "invalid treatment price", Err: booking.ErrInvalidAdmission}
	}
	return nil
}

// revalidate re-queries the provider for the same session type and staff
// within ±window of the requested start and requires an exact id and start
// match.
func (g *Guard) revalidate(ctx context.Context, req Request) (booking.BookableSlot, error) {
	q := booking.SlotQuery{
		SessionTypeIDs: []string{req.SessionTypeID},
		StaffIDs:       []string{req.StaffID},
		Start:          req.StartDateTime.Add(-g.window),
		End:            req.StartDateTime.Add(g.window),
	}
	slots, err := g.provider.FetchBookableSlots(ctx, q)
	if err != nil {
		return booking.BookableSlot{}, fmt.Errorf("admission: revalidate slot: %w", err)
	}
	for _, s := range slots {
		if s.BookableItemID == req.BookableItemID && s.StartDateTime.Equal(req.StartDateTime) {
			return s, nil
		}
	}
	return booking.BookableSlot{}, &booking.SlotUnavailableError{
		BookableItemID: req.BookableItemID,
		Reason:         "this time was just booked by someone else, please choose another slot",
	}
}

// buildLine takes identity from the request, which the live slot has just
// confirmed, and time window, location, therapist and price from the live
// slot where it reports them.
func (g *Guard) buildLine(req Request, live booking.BookableSlot) booking.CartBookingLine {
	line := booking.CartBookingLine{
		BookableItemID: req.BookableItemID,
		SessionTypeID:  req.SessionTypeID,
		StaffID:        req.StaffID,
		StartDateTime:  req.StartDateTime,
		EndDateTime:    live.EndDateTime,
		Price:          req.Price,
		TreatmentName:  req.TreatmentName,
		TherapistName:  firstNonEmpty(live.StaffName, req.TherapistName),
		LocationID:     live.LocationID,
		LocationName:   firstNonEmpty(live.LocationName, req.LocationName, g.defaultLocation),
		AdmittedAt:     g.now(),
	}
	if live.Price != nil && *live.Price > 0 {
		line.Price = *live.Price
	}
	if line.TreatmentName == "" {
		line.TreatmentName = live.SessionTypeName
	}

	meta := make(map[string]string, len(req.Metadata)+8)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta[MetaBookableItemID] = line.BookableItemID
	meta[MetaSessionTypeID] = line.SessionTypeID
	meta[MetaStaffID] = line.StaffID
	meta[MetaStart] = line.StartDateTime.Format(time.RFC3339)
	meta[MetaEnd] = line.EndDateTime.Format(time.RFC3339)
	meta[MetaLocation] = line.LocationName
	meta[MetaTherapist] = line.TherapistName
	meta[MetaPrice] = strconv.FormatFloat(line.Price, 'f', 2, 64)
	line.Metadata = meta
	return line
}

// ensureProduct reuses the session type's product, refreshing its price,
// or creates it.
func (g *Guard) ensureProduct(ctx context.Context, req Request, price float64) (*commerce.Product, error) {
	sku := g.SKU(req.SessionTypeID)
	product, err := g.cart.FindProductBySKU(ctx, sku)
	switch {
	case errors.Is(err, commerce.ErrProductNotFound):
		name := strings.TrimSpace(req.TreatmentName)
		if name == "" {
			name = "Treatment " + req.SessionTypeID
		}
		product, err = g.cart.CreateProduct(ctx, commerce.Product{
			SKU:              sku,
			Name:             name,
			Price:            price,
			Virtual:          true,
			SoldIndividually: true,
			Hidden:           true,
		})
		if err != nil {
			return nil, &booking.AdmissionError{Reason: "could not create the treatment product", Err: err}
		}
		if product.Price != price {
			if err := g.cart.UpdateProductPrice(ctx, product.ID, price); err != nil {
				return nil, &booking.AdmissionError{Reason: "could not update the treatment price", Err: err}
			}
			product.Price = price
		}
		return product, nil
	case err != nil:
		return nil, &booking.AdmissionError{Reason: "could not look up the treatment product", Err: err}
	}
	if product.Price != price {
		if err := g.cart.UpdateProductPrice(ctx, product.ID, price); err != nil {
			return nil, &booking.AdmissionError{Reason: "could not update the treatment price", Err: err}
		}
		g.logger.Debug("admission: refreshed product price", "sku", sku, "old_price", product.Price, "new_price", price)
		product.Price = price
	}
	return product, nil
}

func (g *Guard) observe(outcome string) {
	if g.metrics != nil {
		g.metrics.ObserveAdmission(outcome)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
