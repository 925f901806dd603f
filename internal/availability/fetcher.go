package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/internal/catalog"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var availabilityTracer = otel.Tracer("homewellness.internal.availability")

type slotProvider interface {
	FetchBookableSlots(ctx context.Context, q booking.SlotQuery) ([]booking.BookableSlot, error)
}

type catalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

type fetchObserver interface {
	ObserveFetch(outcome string)
}

// Result is one rendered availability pass.
type Result struct {
	Range  DateRange                         `json:"-"`
	Slots  []booking.BookableSlot            `json:"slots"`
	Groups []booking.TherapistTreatmentGroup `json:"groups"`
	Days   []DaySection                      `json:"days"`
}

type inflight struct {
	cancel     context.CancelFunc
	superseded atomic.Bool
}

// Fetcher runs availability queries. For each viewer only the most recent
// query completes; an older in-flight query is cancelled and reports
// booking.ErrSuperseded.
type Fetcher struct {
	provider   slotProvider
	catalog    catalogLoader
	grouper    *Grouper
	loc        *time.Location
	daysToShow int
	logger     *logging.Logger
	metrics    fetchObserver

	mu      sync.Mutex
	running map[string]*inflight
}

type FetcherOption func(*Fetcher)

func WithFetchMetrics(m fetchObserver) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

func NewFetcher(provider slotProvider, loader catalogLoader, grouper *Grouper, loc *time.Location, daysToShow int, logger *logging.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if daysToShow <= 0 {
		daysToShow = 7
	}
	f := &Fetcher{
		provider:   provider,
		catalog:    loader,
		grouper:    grouper,
		loc:        loc,
		daysToShow: daysToShow,
		logger:     logger,
		running:    map[string]*inflight{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Location is the viewer calendar location.
func (f *Fetcher) Location() *time.Location { return f.loc }

// DaysToShow is the display window.
func (f *Fetcher) DaysToShow() int { return f.daysToShow }

// Fetch requires a category or service selection and makes no provider
// call without one.
func (f *Fetcher) Fetch(ctx context.Context, viewerKey string, state FilterState) (*Result, error) {
	if !state.HasSelection() {
		f.observe("filter_required")
		return nil, booking.ErrFilterRequired
	}

	ctx, span := availabilityTracer.Start(ctx, "availability.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("availability.categories", len(state.Categories)),
		attribute.Int("availability.services", len(state.ServiceIDs)),
		attribute.String("availability.range_start", state.Range.Start.Format(dateLayout)),
		attribute.String("availability.range_end", state.Range.End.Format(dateLayout)),
	)

	ctx, token := f.begin(ctx, viewerKey)
	defer f.end(viewerKey, token)

	result, err := f.run(ctx, state)
	if token.superseded.Load() {
		f.observe("superseded")
		span.SetAttributes(attribute.Bool("availability.superseded", true))
		return nil, booking.ErrSuperseded
	}
	if err != nil {
		f.observe("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	f.observe("ok")
	span.SetAttributes(
		attribute.Int("availability.slots", len(result.Slots)),
		attribute.Int("availability.groups", len(result.Groups)),
	)
	return result, nil
}

func (f *Fetcher) run(ctx context.Context, state FilterState) (*Result, error) {
	cat, err := f.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	q, err := BuildQuery(state, cat)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Range:  q.Range,
		Slots:  []booking.BookableSlot{},
		Groups: []booking.TherapistTreatmentGroup{},
		Days:   BuildSchedule(nil, q.Range, f.daysToShow, f.loc),
	}
	if q.Empty() {
		f.logger.Debug("availability: selection resolved to no session types", "categories", state.Categories)
		return result, nil
	}

	slots, err := f.provider.FetchBookableSlots(ctx, q.Slots)
	if err != nil {
		return nil, fmt.Errorf("availability: fetch bookable slots: %w", err)
	}
	for _, s := range slots {
		if q.Keep(s) {
			result.Slots = append(result.Slots, s)
		}
	}
	result.Groups = FilterTherapist(f.grouper.Group(result.Slots, cat), q.TherapistName)
	result.Days = BuildSchedule(result.Groups, q.Range, f.daysToShow, f.loc)
	return result, nil
}

func (f *Fetcher) begin(ctx context.Context, viewerKey string) (context.Context, *inflight) {
	ctx, cancel := context.WithCancel(ctx)
	token := &inflight{cancel: cancel}
	f.mu.Lock()
	if prev, ok := f.running[viewerKey]; ok {
		prev.superseded.Store(true)
		prev.cancel()
	}
	f.running[viewerKey] = token
	f.mu.Unlock()
	return ctx, token
}

func (f *Fetcher) end(viewerKey string, token *inflight) {
	f.mu.Lock()
	if f.running[viewerKey] == token {
		delete(f.running, viewerKey)
	}
	f.mu.Unlock()
	token.cancel()
}

func (f *Fetcher) observe(outcome string) {
	if f.metrics != nil {
		f.metrics.ObserveFetch(outcome)
	}
}

// IsSuperseded reports whether err came from a cancelled older query.
func IsSuperseded(err error) bool {
	return errors.Is(err, booking.ErrSuperseded)
}
