package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/homewellness-booking/internal/booking"
)

// RedisStore keeps products and cart lines in Redis. Products never
// expire; lines expire after lineTTL.
type RedisStore struct {
	redis   *redis.Client
	lineTTL time.Duration
	now     func() time.Time
}

var _ Cart = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, lineTTL time.Duration) *RedisStore {
	if lineTTL <= 0 {
		lineTTL = 24 * time.Hour
	}
	return &RedisStore{redis: client, lineTTL: lineTTL, now: time.Now}
}

func skuKey(sku string) string    { return fmt.Sprintf("commerce:product:sku:%s", sku) }
func productKey(id string) string { return fmt.Sprintf("commerce:product:%s", id) }
func lineKey(key string) string   { return fmt.Sprintf("commerce:line:%s", key) }
func bookedKey(key string) string { return fmt.Sprintf("commerce:line:%s:appointment", key) }

// pendingBooking holds bookedKey while a provider call is in flight.
const pendingBooking = "pending"

// Replaces an absent or pending marker with the appointment id.
var markBookedScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v and v ~= ARGV[2] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

var releaseBookingScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisStore) FindProductBySKU(ctx context.Context, sku string) (*Product, error) {
	id, err := s.redis.Get(ctx, skuKey(sku)).Result()
	if err == redis.Nil {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: find product: %w", err)
	}
	return s.getProduct(ctx, id)
}

func (s *RedisStore) getProduct(ctx context.Context, id string) (*Product, error) {
	data, err := s.redis.Get(ctx, productKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: get product: %w", err)
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("commerce: unmarshal product: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) putProduct(ctx context.Context, p *Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("commerce: marshal product: %w", err)
	}
	if err := s.redis.Set(ctx, productKey(p.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("commerce: set product: %w", err)
	}
	return nil
}

// CreateProduct claims the SKU with SETNX so concurrent admissions for the
// same session type converge on one product.
func (s *RedisStore) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if p.SKU == "" {
		return nil, errors.New("commerce: create product: empty sku")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UpdatedAt = s.now()
	if err := s.putProduct(ctx, &p); err != nil {
		return nil, err
	}
	claimed, err := s.redis.SetNX(ctx, skuKey(p.SKU), p.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("commerce: claim sku: %w", err)
	}
	if claimed {
		return &p, nil
	}
	_ = s.redis.Del(ctx, productKey(p.ID)).Err()
	return s.FindProductBySKU(ctx, p.SKU)
}

func (s *RedisStore) UpdateProductPrice(ctx context.Context, productID string, price float64) error {
	p, err := s.getProduct(ctx, productID)
	if err != nil {
		return err
	}
	p.Price = price
	p.UpdatedAt = s.now()
	return s.putProduct(ctx, p)
}

func (s *RedisStore) AddLine(ctx context.Context, productID string, quantity int, line booking.CartBookingLine) (string, error) {
	if quantity != 1 {
		return "", fmt.Errorf("commerce: add line: product is sold individually, quantity %d", quantity)
	}
	exists, err := s.redis.Exists(ctx, productKey(productID)).Result()
	if err != nil {
		return "", fmt.Errorf("commerce: add line: %w", err)
	}
	if exists == 0 {
		return "", ErrProductNotFound
	}
	line.Key = uuid.NewString()
	line.ProductID = productID
	data, err := json.Marshal(line)
	if err != nil {
		return "", fmt.Errorf("commerce: marshal line: %w", err)
	}
	if err := s.redis.Set(ctx, lineKey(line.Key), data, s.lineTTL).Err(); err != nil {
		return "", fmt.Errorf("commerce: set line: %w", err)
	}
	return line.Key, nil
}

func (s *RedisStore) GetLine(ctx context.Context, key string) (*booking.CartBookingLine, error) {
	data, err := s.redis.Get(ctx, lineKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: get line: %w", err)
	}
	var line booking.CartBookingLine
	if err := json.Unmarshal(data, &line); err != nil {
		return nil, fmt.Errorf("commerce: unmarshal line: %w", err)
	}
	return &line, nil
}

// ClaimBooking takes bookedKey with SETNX and a pending marker.
func (s *RedisStore) ClaimBooking(ctx context.Context, key string) error {
	line, err := s.GetLine(ctx, key)
	if err != nil {
		return err
	}
	if line.Metadata[AppointmentIDKey] != "" {
		return ErrAlreadyBooked
	}
	claimed, err := s.redis.SetNX(ctx, bookedKey(key), pendingBooking, s.lineTTL).Result()
	if err != nil {
		return fmt.Errorf("commerce: claim booking: %w", err)
	}
	if claimed {
		return nil
	}
	held, err := s.redis.Get(ctx, bookedKey(key)).Result()
	switch {
	case err == redis.Nil, err == nil && held == pendingBooking:
		return ErrBookingInProgress
	case err != nil:
		return fmt.Errorf("commerce: claim booking: %w", err)
	default:
		return ErrAlreadyBooked
	}
}

func (s *RedisStore) ReleaseBooking(ctx context.Context, key string) error {
	if err := releaseBookingScript.Run(ctx, s.redis, []string{bookedKey(key)}, pendingBooking).Err(); err != nil {
		return fmt.Errorf("commerce: release booking: %w", err)
	}
	return nil
}

// MarkBooked swaps the pending marker (or nothing) in bookedKey for the
// appointment id, then stamps the id into the line metadata.
func (s *RedisStore) MarkBooked(ctx context.Context, key, appointmentID string) error {
	line, err := s.GetLine(ctx, key)
	if err != nil {
		return err
	}
	if line.Metadata[AppointmentIDKey] != "" {
		return ErrAlreadyBooked
	}
	ttl := s.lineTTL.Milliseconds()
	set, err := markBookedScript.Run(ctx, s.redis, []string{bookedKey(key)}, appointmentID, pendingBooking, ttl).Int()
	if err != nil {
		return fmt.Errorf("commerce: mark booked: %w", err)
	}
	if set == 0 {
		return ErrAlreadyBooked
	}
	if line.Metadata == nil {
		line.Metadata = map[string]string{}
	}
	line.Metadata[AppointmentIDKey] = appointmentID
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("commerce: marshal line: %w", err)
	}
	if err := s.redis.Set(ctx, lineKey(key), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("commerce: set line: %w", err)
	}
	return nil
}
