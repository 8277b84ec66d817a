package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/internal/infra/database/models"
)

// memcached treats larger relative expirations as unix timestamps
const memcachedMaxRelative = 30 * 24 * time.Hour

func sessionKey(id string) string {
	return "session:" + strconv.FormatUint(xxh3.HashString(id), 16)
}

func notFound() error {
	return domain.NotFoundError{Resource: "session"}
}

// record is the stored form of a session, shared by the byte oriented drivers.
type record struct {
	Credential string          `json:"JWT"`
	Subject    *concrnt.Entity `json:"ENTITY,omitempty"`
}

func encodeSession(session domain.Session) ([]byte, error) {
	return json.Marshal(record{
		Credential: session.Credential,
		Subject:    session.Subject,
	})
}

func decodeSession(id string, data []byte) (domain.Session, error) {
	var r record
	err := json.Unmarshal(data, &r)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		ID:         id,
		Credential: r.Credential,
		Subject:    r.Subject,
	}, nil
}

// MemorySessionRepository keeps sessions in process. Sessions do not
// survive a restart and are not shared between instances.
type MemorySessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (r *MemorySessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	data, found := r.cache.Get(sessionKey(id))
	if !found {
		return domain.Session{}, notFound()
	}
	return decodeSession(id, data.([]byte))
}

func (r *MemorySessionRepository) Put(ctx context.Context, session domain.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	r.cache.Set(sessionKey(session.ID), data, r.ttl)
	return nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.cache.Delete(sessionKey(id))
	return nil
}

// RedisSessionRepository stores a session as a hash with the fields JWT and ENTITY.
type RedisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	fields, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return domain.Session{}, err
	}
	credential, ok := fields[domain.SessionCredentialKey]
	if !ok {
		return domain.Session{}, notFound()
	}

	session := domain.Session{ID: id, Credential: credential}
	if raw := fields[domain.SessionEntityKey]; raw != "" && raw != "null" {
		var entity concrnt.Entity
		err = json.Unmarshal([]byte(raw), &entity)
		if err != nil {
			return domain.Session{}, err
		}
		session.Subject = &entity
	}

	return session, nil
}

func (r *RedisSessionRepository) Put(ctx context.Context, session domain.Session) error {
	entity, err := json.Marshal(session.Subject)
	if err != nil {
		return err
	}

	key := sessionKey(session.ID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			domain.SessionCredentialKey, session.Credential,
			domain.SessionEntityKey, string(entity),
		)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	return err
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

// MemcachedSessionRepository stores a session as a single item.
type MemcachedSessionRepository struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewMemcachedSessionRepository(mc *memcache.Client, ttl time.Duration) *MemcachedSessionRepository {
	return &MemcachedSessionRepository{mc: mc, ttl: ttl}
}

func (r *MemcachedSessionRepository) expiration() int32 {
	if r.ttl > memcachedMaxRelative {
		return int32(time.Now().Add(r.ttl).Unix())
	}
	return int32(r.ttl / time.Second)
}

func (r *MemcachedSessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	item, err := r.mc.Get(sessionKey(id))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return domain.Session{}, notFound()
		}
		return domain.Session{}, err
	}
	return decodeSession(id, item.Value)
}

func (r *MemcachedSessionRepository) Put(ctx context.Context, session domain.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	return r.mc.Set(&memcache.Item{
		Key:        sessionKey(session.ID),
		Value:      data,
		Expiration: r.expiration(),
	})
}

func (r *MemcachedSessionRepository) Delete(ctx context.Context, id string) error {
	err := r.mc.Delete(sessionKey(id))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// PostgresSessionRepository stores a session as one row.
type PostgresSessionRepository struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewPostgresSessionRepository(db *gorm.DB, ttl time.Duration) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db, ttl: ttl}
}

func (r *PostgresSessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	var row models.Session
	err := r.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", sessionKey(id), time.Now()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, notFound()
		}
		return domain.Session{}, err
	}

	session := domain.Session{ID: id, Credential: row.Credential}
	if row.Subject != "" && row.Subject != "null" {
		var entity concrnt.Entity
		err = json.Unmarshal([]byte(row.Subject), &entity)
		if err != nil {
			return domain.Session{}, err
		}
		session.Subject = &entity
	}

	return session, nil
}

func (r *PostgresSessionRepository) Put(ctx context.Context, session domain.Session) error {
	subject, err := json.Marshal(session.Subject)
	if err != nil {
		return err
	}

	row := models.Session{
		Key:        sessionKey(session.ID),
		Credential: session.Credential,
		Subject:    string(subject),
		ExpiresAt:  time.Now().Add(r.ttl),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"credential", "subject", "expires_at", "m_date"}),
	}).Create(&row).Error
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("key = ?", sessionKey(id)).
		Delete(&models.Session{}).Error
}

// PurgeExpired removes rows past their expiry.
func (r *PostgresSessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&models.Session{})
	return result.RowsAffected, result.Error
}
