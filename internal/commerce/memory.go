package commerce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/homewellness-booking/internal/booking"
)

// MemoryStore is an in-process Cart for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]*Product // by id
	bySKU    map[string]string
	lines    map[string]booking.CartBookingLine
	claims   map[string]struct{}
	now      func() time.Time
}

var _ Cart = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: map[string]*Product{},
		bySKU:    map[string]string{},
		lines:    map[string]booking.CartBookingLine{},
		claims:   map[string]struct{}{},
		now:      time.Now,
	}
}

func (m *MemoryStore) FindProductBySKU(_ context.Context, sku string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySKU[sku]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := *m.products[id]
	return &p, nil
}

func (m *MemoryStore) CreateProduct(_ context.Context, p Product) (*Product, error) {
	if p.SKU == "" {
		return nil, fmt.Errorf("commerce: create product: empty sku")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.bySKU[p.SKU]; ok {
		existing := *m.products[id]
		return &existing, nil
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UpdatedAt = m.now()
	stored := p
	m.products[p.ID] = &stored
	m.bySKU[p.SKU] = p.ID
	return &p, nil
}

func (m *MemoryStore) UpdateProductPrice(_ context.Context, productID string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Price = price
	p.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) AddLine(_ context.Context, productID string, quantity int, line booking.CartBookingLine) (string, error) {
	if quantity != 1 {
		return "", fmt.Errorf("commerce: add line: product is sold individually, quantity %d", quantity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		return "", ErrProductNotFound
	}
	line.Key = uuid.NewString()
	line.ProductID = productID
	line.Metadata = cloneMeta(line.Metadata)
	m.lines[line.Key] = line
	return line.Key, nil
}

func (m *MemoryStore) GetLine(_ context.Context, lineKey string) (*booking.CartBookingLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.lines[lineKey]
	if !ok {
		return nil, ErrLineNotFound
	}
	line.Metadata = cloneMeta(line.Metadata)
	return &line, nil
}

func (m *MemoryStore) ClaimBooking(_ context.Context, lineKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.lines[lineKey]
	if !ok {
		return ErrLineNotFound
	}
	if line.Metadata[AppointmentIDKey] != "" {
		return ErrAlreadyBooked
	}
	if _, held := m.claims[lineKey]; held {
		return ErrBookingInProgress
	}
	m.claims[lineKey] = struct{}{}
	return nil
}

func (m *MemoryStore) ReleaseBooking(_ context.Context, lineKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, lineKey)
	return nil
}

func (m *MemoryStore) MarkBooked(_ context.Context, lineKey, appointmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.lines[lineKey]
	if !ok {
		return ErrLineNotFound
	}
	if line.Metadata[AppointmentIDKey] != "" {
		return ErrAlreadyBooked
	}
	line.Metadata = cloneMeta(line.Metadata)
	line.Metadata[AppointmentIDKey] = appointmentID
	m.lines[lineKey] = line
	delete(m.claims, lineKey)
	return nil
}

// LineCount is the number of admitted lines.
func (m *MemoryStore) LineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

func cloneMeta(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
