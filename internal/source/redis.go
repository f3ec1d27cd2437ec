package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/logging"
)

// DefaultKeyPrefix namespaces every key written by the store
const DefaultKeyPrefix = "dicd"

// RedisConfig represents the Redis measurement store configuration
type RedisConfig struct {
	URL       string // Redis URL (e.g., redis://localhost:6379/0) or bare host:port
	Password  string // Optional password when URL is a bare address
	DB        int    // Database number when URL is a bare address
	KeyPrefix string // Key prefix (default: "dicd")
}

// RedisSource reads measurements from Redis.
//
// Layout per entity:
//
//	<prefix>:measurements:<entity>  sorted set, score = unix ms, member = encoded Measurement
//	<prefix>:spec:<entity>          hash with lsl, usl, target
//	<prefix>:limits:<entity>        hash with cl, ucl, lcl and optional cp, cpk, pp, ppk
type RedisSource struct {
	client *redis.Client
	prefix string
	codec  *Codec
	logger *logging.Logger
}

// NewRedisSource connects to Redis and verifies the connection
func NewRedisSource(cfg RedisConfig, codec *Codec, logger *logging.Logger) (*RedisSource, error) {
	// Parse URL or use defaults
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Fallback to simple options
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSourceWithClient(client, cfg.KeyPrefix, codec, logger), nil
}

// NewRedisSourceWithClient wraps an existing client
func NewRedisSourceWithClient(client *redis.Client, prefix string, codec *Codec, logger *logging.Logger) *RedisSource {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if codec == nil {
		codec = &Codec{}
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &RedisSource{
		client: client,
		prefix: prefix,
		codec:  codec,
		logger: logger.With("component", "source.redis"),
	}
}

func (s *RedisSource) measurementsKey(entityID string) string {
	return fmt.Sprintf("%s:measurements:%s", s.prefix, entityID)
}

func (s *RedisSource) specKey(entityID string) string {
	return fmt.Sprintf("%s:spec:%s", s.prefix, entityID)
}

func (s *RedisSource) limitsKey(entityID string) string {
	return fmt.Sprintf("%s:limits:%s", s.prefix, entityID)
}

// Measurements returns the measurements scored within the window
func (s *RedisSource) Measurements(ctx context.Context, entityID string, window Window) (*MeasurementSet, error) {
	key := s.measurementsKey(entityID)

	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(window.Start.UnixMilli(), 10),
		Max: strconv.FormatInt(window.End.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("%w: no measurements for %s in %s", ErrNotFound, entityID, window.Label)
	}

	measurements := make([]Measurement, 0, len(members))
	for _, member := range members {
		m, err := s.codec.Decode([]byte(member))
		if err != nil {
			s.logger.Warn("Skipping undecodable measurement", "key", key, "error", err)
			continue
		}
		measurements = append(measurements, m)
	}

	if len(measurements) == 0 {
		return nil, fmt.Errorf("%w: no decodable measurements for %s", ErrNotFound, entityID)
	}

	return NewMeasurementSet(entityID, window, measurements), nil
}

// SpecBounds returns the spec hash of the entity
func (s *RedisSource) SpecBounds(ctx context.Context, entityID string) (*analytics.SpecBounds, error) {
	fields, err := s.readHash(ctx, s.specKey(entityID))
	if err != nil {
		return nil, err
	}

	bounds := &analytics.SpecBounds{}
	if bounds.LSL, err = requiredField(fields, "lsl"); err != nil {
		return nil, err
	}
	if bounds.USL, err = requiredField(fields, "usl"); err != nil {
		return nil, err
	}
	if bounds.Target, err = optionalField(fields, "target"); err != nil {
		return nil, err
	}
	return bounds, nil
}

// ControlLimits returns the limits hash of the entity
func (s *RedisSource) ControlLimits(ctx context.Context, entityID string) (*LimitsRecord, error) {
	fields, err := s.readHash(ctx, s.limitsKey(entityID))
	if err != nil {
		return nil, err
	}

	rec := &LimitsRecord{}
	if rec.Limits.CL, err = requiredField(fields, "cl"); err != nil {
		return nil, err
	}
	if rec.Limits.UCL, err = requiredField(fields, "ucl"); err != nil {
		return nil, err
	}
	if rec.Limits.LCL, err = requiredField(fields, "lcl"); err != nil {
		return nil, err
	}

	optional := map[string]**float64{
		"cp":  &rec.Capability.Cp,
		"cpk": &rec.Capability.Cpk,
		"pp":  &rec.Capability.Pp,
		"ppk": &rec.Capability.Ppk,
	}
	for name, dst := range optional {
		if *dst, err = optionalField(fields, name); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func (s *RedisSource) readHash(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fields, nil
}

// WriteMeasurements adds measurements to the entity's sorted set in one pipeline
func (s *RedisSource) WriteMeasurements(ctx context.Context, entityID string, measurements []Measurement) (int, error) {
	if len(measurements) == 0 {
		return 0, nil
	}

	members := make([]redis.Z, 0, len(measurements))
	for _, m := range measurements {
		data, err := s.codec.Encode(m)
		if err != nil {
			return 0, err
		}
		members = append(members, redis.Z{
			Score:  float64(m.Timestamp.UnixMilli()),
			Member: data,
		})
	}

	key := s.measurementsKey(entityID)
	pipe := s.client.Pipeline()
	for start := 0; start < len(members); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(members) {
			end = len(members)
		}
		pipe.ZAdd(ctx, key, members[start:end]...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to write measurements to %s: %w", key, err)
	}

	return len(members), nil
}

// WriteSpecBounds stores the entity's spec hash
func (s *RedisSource) WriteSpecBounds(ctx context.Context, entityID string, bounds analytics.SpecBounds) error {
	if err := bounds.Validate(); err != nil {
		return err
	}

	key := s.specKey(entityID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "lsl", formatFloat(bounds.LSL), "usl", formatFloat(bounds.USL))
	if bounds.Target != nil {
		pipe.HSet(ctx, key, "target", formatFloat(*bounds.Target))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// WriteControlLimits stores the entity's limits hash
func (s *RedisSource) WriteControlLimits(ctx context.Context, entityID string, rec LimitsRecord) error {
	if err := rec.Limits.Validate(); err != nil {
		return err
	}

	values := []interface{}{
		"cl", formatFloat(rec.Limits.CL),
		"ucl", formatFloat(rec.Limits.UCL),
		"lcl", formatFloat(rec.Limits.LCL),
	}
	for name, v := range map[string]*float64{
		"cp": rec.Capability.Cp, "cpk": rec.Capability.Cpk,
		"pp": rec.Capability.Pp, "ppk": rec.Capability.Ppk,
	} {
		if v != nil {
			values = append(values, name, formatFloat(*v))
		}
	}

	key := s.limitsKey(entityID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, values...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection
func (s *RedisSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisSource) Close() error {
	return s.client.Close()
}

const writeBatchSize = 500

func requiredField(fields map[string]string, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", name, err)
	}
	return v, nil
}

func optionalField(fields map[string]string, name string) (*float64, error) {
	if _, ok := fields[name]; !ok {
		return nil, nil
	}
	v, err := requiredField(fields, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var _ Source = (*RedisSource)(nil)
