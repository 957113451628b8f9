package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// Locker guards the check-then-write critical section of a booking.
// A booking occupies two resources at once, so callers pass one key per
// resource and the section runs only while every key is held.
type Locker interface {
	WithBookingLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// DoctorSlotKey is the lock key for a doctor's (day, time) slot.
func DoctorSlotKey(doctorID uuid.UUID, day, timeOfDay string) string {
	return fmt.Sprintf("lock:doctor:%s:%s:%s", doctorID.String(), day, timeOfDay)
}

// RoomSlotKey is the lock key for a room's (day, time) slot.
func RoomSlotKey(roomID uuid.UUID, day, timeOfDay string) string {
	return fmt.Sprintf("lock:room:%s:%s:%s", roomID.String(), day, timeOfDay)
}

type redisBookingLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBookingLocker creates a locker backed by per-slot Redis keys.
func NewRedisBookingLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisBookingLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisBookingLocker) WithBookingLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	// Acquire in a fixed order so two bookings contending for the same
	// pair of slots cannot deadlock each other.
	ordered := make([]string, len(keys))
	copy(ordered, keys)
	sort.Strings(ordered)

	var held []string
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = l.release(ctx, held[i], token)
		}
	}

	for _, key := range ordered {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			release()
			return fmt.Errorf("acquire booking lock %s: %w", key, err)
		}
		if !ok {
			release()
			return ErrLockNotAcquired
		}
		held = append(held, key)
	}

	defer release()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisBookingLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
