package mindbody

import (
	"context"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

// Retrying retries read operations that fail with a temporary provider
// error. CreateBooking is passed through as a single attempt: a timed-out
// POST may already have booked the slot.
type Retrying struct {
	next        booking.Provider
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ booking.Provider = (*Retrying)(nil)

func NewRetrying(next booking.Provider, logger *logging.Logger) *Retrying {
	if logger == nil {
		logger = logging.Default()
	}
	return &Retrying{
		next:        next,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   250 * time.Millisecond,
		maxDelay:    5 * time.Second,
		sleep:       sleepContext,
	}
}

func (r *Retrying) WithMaxAttempts(n int) *Retrying {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

func (r *Retrying) WithBaseDelay(d time.Duration) *Retrying {
	if d > 0 {
		r.baseDelay = d
	}
	return r
}

func (r *Retrying) FetchServices(ctx context.Context) ([]booking.RawService, error) {
	return retryGet(ctx, r, "services", r.next.FetchServices)
}

func (r *Retrying) FetchStaff(ctx context.Context) ([]booking.Staff, error) {
	return retryGet(ctx, r, "staff", r.next.FetchStaff)
}

func (r *Retrying) FetchStaffAppointments(ctx context.Context, start, end time.Time) ([]booking.StaffAppointment, error) {
	return retryGet(ctx, r, "staffappointments", func(ctx context.Context) ([]booking.StaffAppointment, error) {
		return r.next.FetchStaffAppointments(ctx, start, end)
	})
}

func (r *Retrying) FetchSessionTypes(ctx context.Context) ([]booking.SessionType, error) {
	return retryGet(ctx, r, "sessiontypes", r.next.FetchSessionTypes)
}

func (r *Retrying) FetchLocations(ctx context.Context) ([]booking.Location, error) {
	return retryGet(ctx, r, "locations", r.next.FetchLocations)
}

func (r *Retrying) FetchBookableSlots(ctx context.Context, q booking.SlotQuery) ([]booking.BookableSlot, error) {
	return retryGet(ctx, r, "bookableitems", func(ctx context.Context) ([]booking.BookableSlot, error) {
		return r.next.FetchBookableSlots(ctx, q)
	})
}

func (r *Retrying) CreateBooking(ctx context.Context, req booking.BookingRequest) (*booking.BookingConfirmation, error) {
	return r.next.CreateBooking(ctx, req)
}

func retryGet[T any](ctx context.Context, r *Retrying, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		out, err = fn(ctx)
		if err == nil || !booking.IsTemporary(err) || attempt == r.maxAttempts-1 {
			return out, err
		}
		delay := r.nextDelay(attempt)
		r.logger.Warn("mindbody: retrying request", "op", op, "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err)
		if serr := r.sleep(ctx, delay); serr != nil {
			return out, err
		}
	}
	return out, err
}

func (r *Retrying) nextDelay(attempt int) time.Duration {
	delay := r.baseDelay * time.Duration(1<<attempt)
	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
