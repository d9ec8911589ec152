package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/asr-aligner/internal/secure"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// RedisManager provides the per-document lock and an encrypted cache of
// recognizer output keyed by audio id.
type RedisManager struct {
	client  *redis.Client
	lockTTL time.Duration
	ttl     time.Duration
	crypter *secure.Crypter
}

// NewRedisManager creates a new RedisManager with connection pooling.
func NewRedisManager(connStr string, encryptionKey string) (*RedisManager, error) {
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	goapp.Log.Info().Str("redis", opt.Addr).Int("db", opt.DB).Send()
	rdb := redis.NewClient(opt)

	crypter, err := secure.NewCrypter(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create crypter: %w", err)
	}

	return &RedisManager{
		client:  rdb,
		lockTTL: time.Minute * 5,
		ttl:     time.Hour * 6,
		crypter: crypter,
	}, nil
}

func (r *RedisManager) keyLock(id string) string {
	return fmt.Sprintf("lock:%s", id)
}

func (r *RedisManager) keyAlignments(id string) string {
	return fmt.Sprintf("alignments:%s", id)
}

// Lock implements Locker: exclusive, fail-fast on contention. The TTL
// keeps a crashed holder from blocking the document forever.
func (r *RedisManager) Lock(ctx context.Context, docID string) (string, error) {
	token := ulid.Make().String()
	ok, err := r.client.SetNX(ctx, r.keyLock(docID), token, r.lockTTL).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("document %s is locked", docID)
	}
	return token, nil
}

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Unlock implements Locker. Only the token holder may release.
func (r *RedisManager) Unlock(ctx context.Context, docID string, token string) error {
	n, err := unlockScript.Run(ctx, r.client, []string{r.keyLock(docID)}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lock for %s not held with this token", docID)
	}
	return nil
}

// SaveAlignments caches recognizer output for an audio id, encrypted.
func (r *RedisManager) SaveAlignments(ctx context.Context, audioID string, als []domain.Alignment) error {
	goapp.Log.Trace().Str("id", audioID).Int("count", len(als)).Msg("Save alignments")
	data, err := json.Marshal(als)
	if err != nil {
		return err
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.Set(ctx, r.keyAlignments(audioID), encrypted, r.ttl).Err()
}

// GetAlignments retrieves cached recognizer output. The second result is
// false when nothing is cached.
func (r *RedisManager) GetAlignments(ctx context.Context, audioID string) ([]domain.Alignment, bool, error) {
	bs, err := r.client.Get(ctx, r.keyAlignments(audioID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get alignments: %w", err)
	}
	decrypted, err := r.crypter.Decrypt(bs)
	if err != nil {
		return nil, false, fmt.Errorf("decrypt: %w", err)
	}
	var res []domain.Alignment
	if err := json.Unmarshal(decrypted, &res); err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (r *RedisManager) Close() error {
	return r.client.Close()
}
