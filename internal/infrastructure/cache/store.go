package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nimrid/Corre/pkg/metrics"
)

// SchemaVersion is bumped whenever a stored record's shape changes.
// Records written under an older version are treated as misses rather
// than deserialized into the wrong shape.
const SchemaVersion = 1

// ErrCacheMiss is returned when a record is absent, expired, corrupt,
// or written under a different schema version.
var ErrCacheMiss = errors.New("cache miss")

// record wraps every stored value so the payload and its metadata are
// written and read as one atomic blob. This rules out the torn read
// where a value from one write is paired with a timestamp from another.
type record struct {
	SchemaVersion int             `json:"schema_version"`
	Value         json.RawMessage `json:"value"`
	StoredAt      time.Time       `json:"stored_at"`
}

// Store is a typed wrapper over the raw Redis client. All application
// state lives here: cached pool data, balance snapshots, sessions,
// billing records.
type Store struct {
	client RedisClient
	logger *zap.Logger
}

// NewStore creates a Store over the given Redis client.
func NewStore(client RedisClient, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Get reads a record into dest. Any unreadable record, whatever the
// cause, surfaces uniformly as ErrCacheMiss so callers fall back to a
// fresh fetch instead of branching on failure modes.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			metrics.CacheMisses.WithLabelValues(key, "absent").Inc()
			return ErrCacheMiss
		}
		metrics.CacheMisses.WithLabelValues(key, "error").Inc()
		return ErrCacheMiss
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("Discarding corrupt cache record", zap.String("key", key), zap.Error(err))
		metrics.CacheMisses.WithLabelValues(key, "corrupt").Inc()
		return ErrCacheMiss
	}
	if rec.SchemaVersion != SchemaVersion {
		s.logger.Info("Discarding cache record with stale schema",
			zap.String("key", key), zap.Int("version", rec.SchemaVersion))
		metrics.CacheMisses.WithLabelValues(key, "schema").Inc()
		return ErrCacheMiss
	}
	if err := json.Unmarshal(rec.Value, dest); err != nil {
		s.logger.Warn("Discarding undecodable cache record", zap.String("key", key), zap.Error(err))
		metrics.CacheMisses.WithLabelValues(key, "corrupt").Inc()
		return ErrCacheMiss
	}

	metrics.CacheHits.WithLabelValues(key).Inc()
	return nil
}

// StoredAt returns when the record under key was written, without
// decoding its payload.
func (s *Store) StoredAt(ctx context.Context, key string) (time.Time, error) {
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		return time.Time{}, ErrCacheMiss
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return time.Time{}, ErrCacheMiss
	}
	return rec.StoredAt, nil
}

// Set writes value under key as one versioned blob. A ttl of zero
// means the record never expires; billing records use that.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	rec := record{
		SchemaVersion: SchemaVersion,
		Value:         payload,
		StoredAt:      time.Now().UTC(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, ttl)
}

// Invalidate removes a record. Removing an absent key is not an error.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	return s.client.Del(ctx, key)
}

// Ping checks connectivity to the backing store.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
