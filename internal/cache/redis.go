package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/report-board/internal/models"
)

// DefaultRedisPrefix - префикс ключей, если в конфиге он не задан.
const DefaultRedisPrefix = "report-board:"

// RedisOptions - параметры внешнего кэша.
//
// Особенности:
//   - TTL <= 0 -> ключи без срока жизни;
//   - SplitKeys включает раздельную раскладку data/fingerprint
//     для совместимости со старыми читателями (см. Redis).
type RedisOptions struct {
	Prefix    string
	TTL       time.Duration
	SplitKeys bool
}

// Redis - внешний кэш записей в Redis.
//
// По умолчанию запись хранится одним JSON-значением {fingerprint, data, restored}
// под ключом <prefix><view> и пишется одной командой SET с TTL: данные и отпечаток
// истекают и заменяются только вместе.
//
// В режиме SplitKeys данные лежат в <prefix><view>:data с TTL, а отпечаток в
// <prefix><view>:fingerprint без TTL. Данные могут истечь раньше отпечатка;
// такая ситуация читается как промах, а не как свежая запись. Пустая строка
// в ключе отпечатка означает отсутствующий отпечаток. Запись из снимка не имеет
// отпечатка и помечается ключом <prefix><view>:restored с тем же TTL, что и данные.
type Redis struct {
	rdb  *redis.Client
	opts RedisOptions
}

// NewRedis создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение.
func NewRedis(ctx context.Context, redisURL string, opts RedisOptions) (*Redis, error) {
	const op = "cache.redis.NewRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewRedisWithClient(rdb, opts), nil
}

// NewRedisWithClient оборачивает готовый клиент.
func NewRedisWithClient(rdb *redis.Client, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = DefaultRedisPrefix
	}
	if opts.TTL < 0 {
		opts.TTL = 0
	}

	return &Redis{rdb: rdb, opts: opts}
}

type redisEntry struct {
	Fingerprint models.Fingerprint `json:"fingerprint"`
	Data        *models.Grouping   `json:"data"`
	Restored    bool               `json:"restored,omitempty"`
}

func (c *Redis) key(view models.ViewID) string { return c.opts.Prefix + string(view) }

func (c *Redis) dataKey(view models.ViewID) string { return c.key(view) + ":data" }

func (c *Redis) fingerprintKey(view models.ViewID) string { return c.key(view) + ":fingerprint" }

func (c *Redis) restoredKey(view models.ViewID) string { return c.key(view) + ":restored" }

// Get читает запись представления.
func (c *Redis) Get(ctx context.Context, view models.ViewID) (Entry, bool, error) {
	const op = "cache.redis.Get"

	if c.opts.SplitKeys {
		e, ok, err := c.getSplit(ctx, view)
		if err != nil {
			return Entry{}, false, fmt.Errorf("%s: %w", op, err)
		}
		return e, ok, nil
	}

	raw, err := c.rdb.Get(ctx, c.key(view)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var re redisEntry
	if err := json.Unmarshal(raw, &re); err != nil {
		return Entry{}, false, fmt.Errorf("%s: %w: %w", op, ErrCorruptEntry, err)
	}
	if re.Data == nil {
		return Entry{}, false, fmt.Errorf("%s: %w: no data", op, ErrCorruptEntry)
	}

	return Entry{Data: re.Data, Fingerprint: re.Fingerprint, Restored: re.Restored}, true, nil
}

func (c *Redis) getSplit(ctx context.Context, view models.ViewID) (Entry, bool, error) {
	vals, err := c.rdb.MGet(ctx, c.dataKey(view), c.fingerprintKey(view), c.restoredKey(view)).Result()
	if err != nil {
		return Entry{}, false, err
	}

	rawData, dataOK := vals[0].(string)
	rawFP, fpOK := vals[1].(string)
	_, restored := vals[2].(string)
	if !dataOK || (!fpOK && !restored) {
		return Entry{}, false, nil
	}

	g := models.NewGrouping()
	if err := json.Unmarshal([]byte(rawData), g); err != nil {
		return Entry{}, false, fmt.Errorf("%w: data: %w", ErrCorruptEntry, err)
	}

	if restored {
		return Entry{Data: g, Restored: true}, true, nil
	}

	var fp models.Fingerprint
	if rawFP != "" {
		fp = models.NewFingerprint(rawFP)
	}

	return Entry{Data: g, Fingerprint: fp}, true, nil
}

// Set заменяет запись представления.
func (c *Redis) Set(ctx context.Context, view models.ViewID, e Entry) error {
	const op = "cache.redis.Set"

	if c.opts.SplitKeys {
		if err := c.setSplit(ctx, view, e); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	raw, err := json.Marshal(redisEntry{Fingerprint: e.Fingerprint, Data: e.Data, Restored: e.Restored})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.rdb.Set(ctx, c.key(view), raw, c.opts.TTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Redis) setSplit(ctx context.Context, view models.ViewID, e Entry) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.dataKey(view), raw, c.opts.TTL)
	if e.Restored {
		pipe.Del(ctx, c.fingerprintKey(view))
		pipe.Set(ctx, c.restoredKey(view), "1", c.opts.TTL)
	} else {
		pipe.Set(ctx, c.fingerprintKey(view), e.Fingerprint.String(), 0)
		pipe.Del(ctx, c.restoredKey(view))
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Close закрывает клиент Redis.
func (c *Redis) Close() error { return c.rdb.Close() }

var _ Backend = (*Redis)(nil)
