package buffer

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/AiXpand/tsclient-sub000/codec"
	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
)

// DefaultRedisPrefix namespaces the per-node lists.
const DefaultRedisPrefix = "tsclient:buffer:"

// RedisStore keeps one Redis list per node. Events are stored in their broker
// wire form and decoded again on Get, so a store can be shared by processes.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	logger *slog.Logger
	stats  *Statistics
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix overrides the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(rdb redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: DefaultRedisPrefix,
		logger: slog.Default(),
		stats:  NewStatistics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.WrapTransient(err, "RedisStore", "DialRedis", "ping")
	}
	return rdb, nil
}

func (s *RedisStore) key(node string) string {
	return s.prefix + node
}

// Store implements Store.
func (s *RedisStore) Store(ctx context.Context, ev message.Event) error {
	if ev == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "RedisStore", "Store", "nil event")
	}
	data, err := codec.EncodeEvent(ev)
	if err != nil {
		return errors.WrapInvalid(err, "RedisStore", "Store", "event encoding")
	}
	if err := s.rdb.RPush(ctx, s.key(ev.Node()), data).Err(); err != nil {
		return errors.WrapTransient(err, "RedisStore", "Store", "rpush")
	}
	s.stats.recordStore()
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, node string) (message.Event, error) {
	data, err := s.rdb.LPop(ctx, s.key(node)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "RedisStore", "Get", "lpop")
	}

	ev, err := codec.Decode(data)
	if err != nil {
		// The entry is already popped; report it and let the caller move on.
		s.logger.Warn("discarding undecodable buffered event",
			"node", node,
			"error", err)
		s.stats.recordDrop()
		return nil, err
	}
	s.stats.recordGet()
	return ev, nil
}

// NodeHasMessages implements Store.
func (s *RedisStore) NodeHasMessages(ctx context.Context, node string) (bool, error) {
	n, err := s.rdb.LLen(ctx, s.key(node)).Result()
	if err != nil {
		return false, errors.WrapTransient(err, "RedisStore", "NodeHasMessages", "llen")
	}
	return n > 0, nil
}

// Stats returns store statistics. Queued counts are not tracked for Redis.
func (s *RedisStore) Stats() *Statistics {
	return s.stats
}
