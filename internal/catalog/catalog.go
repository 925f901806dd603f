// Package catalog normalizes provider services into the bookable treatment
// catalog and builds the therapist roster.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

// Catalog is one normalized snapshot. It is rebuilt per request and never
// cached across requests.
type Catalog struct {
	Services     []booking.Service
	Stats        Stats
	byID         map[string]booking.Service
	sessionTypes map[string]booking.SessionType
}

func NewCatalog(services []booking.Service, stats Stats, sessionTypes []booking.SessionType) *Catalog {
	c := &Catalog{
		Services:     services,
		Stats:        stats,
		byID:         make(map[string]booking.Service, len(services)),
		sessionTypes: make(map[string]booking.SessionType, len(sessionTypes)),
	}
	for _, s := range services {
		if s.ID != "" {
			c.byID[s.ID] = s
		}
	}
	for _, st := range sessionTypes {
		if st.ID != "" {
			c.sessionTypes[st.ID] = st
		}
	}
	return c
}

// Service looks up a normalized service by id.
func (c *Catalog) Service(id string) (booking.Service, bool) {
	if c == nil {
		return booking.Service{}, false
	}
	s, ok := c.byID[id]
	return s, ok
}

// SessionType looks up explicit session-type metadata by id.
func (c *Catalog) SessionType(id string) (booking.SessionType, bool) {
	if c == nil {
		return booking.SessionType{}, false
	}
	st, ok := c.sessionTypes[id]
	return st, ok
}

// IDsInCategories returns service ids whose category is any of labels,
// in catalog order.
func (c *Catalog) IDsInCategories(labels []string) []string {
	if c == nil || len(labels) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	var ids []string
	for _, s := range c.Services {
		if _, ok := want[strings.ToLower(s.Category)]; ok && s.ID != "" {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Categories lists the categories present, sorted by name.
func (c *Catalog) Categories() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Stats.CategoriesFound))
	for name := range c.Stats.CategoriesFound {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Therapists lists distinct attributed therapist names in the catalog.
func (c *Catalog) Therapists() []string {
	if c == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, s := range c.Services {
		if s.TherapistName == GeneralTherapist {
			continue
		}
		if _, ok := seen[s.TherapistName]; ok {
			continue
		}
		seen[s.TherapistName] = struct{}{}
		out = append(out, s.TherapistName)
	}
	sort.Strings(out)
	return out
}

type catalogProvider interface {
	FetchServices(ctx context.Context) ([]booking.RawService, error)
	FetchStaff(ctx context.Context) ([]booking.Staff, error)
	FetchSessionTypes(ctx context.Context) ([]booking.SessionType, error)
}

// Loader fetches and normalizes the catalog.
type Loader struct {
	provider   catalogProvider
	normalizer *Normalizer
	logger     *logging.Logger
}

func NewLoader(provider catalogProvider, normalizer *Normalizer, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{provider: provider, normalizer: normalizer, logger: logger}
}

// Load fails only when services cannot be fetched. Staff and session types
// enrich the catalog and are skipped with a warning when unavailable.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	raw, err := l.provider.FetchServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch services: %w", err)
	}
	staff, err := l.provider.FetchStaff(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("catalog: fetch staff: %w", err)
		}
		l.logger.Warn("catalog: staff unavailable, continuing without photos", "error", err)
		staff = nil
	}
	sessionTypes, err := l.provider.FetchSessionTypes(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("catalog: fetch session types: %w", err)
		}
		l.logger.Warn("catalog: session types unavailable", "error", err)
		sessionTypes = nil
	}
	services, stats := l.normalizer.Normalize(raw, staff)
	l.logger.Debug("catalog: normalized services",
		"total", stats.Total,
		"final", stats.FinalCount,
		"wrong_category", stats.WrongCategory,
		"not_bookable_online", stats.NotBookableOnline,
		"duplicates_removed", stats.DuplicatesRemoved,
	)
	return NewCatalog(services, stats, sessionTypes), nil
}
