package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	fieldID           = "id"
	fieldEmail        = "email"
	fieldPasswordHash = "password_hash"
	fieldRefreshHash  = "hashed_rt"
	fieldCreatedAt    = "created_at"
)

// KEYS[1] email index, KEYS[2] id sequence; ARGV email, password hash,
// user key prefix, created_at.
var createUserLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
local id = redis.call("INCR", KEYS[2])
redis.call("HSET", ARGV[3] .. id, "id", id, "email", ARGV[1], "password_hash", ARGV[2], "created_at", ARGV[4])
redis.call("SET", KEYS[1], id)
return id
`)

// KEYS[1] user key; ARGV new hash.
var setRefreshLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "hashed_rt", ARGV[1])
return 1
`)

// KEYS[1] user key; ARGV expected hash, next hash.
var rotateRefreshLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local current = redis.call("HGET", KEYS[1], "hashed_rt")
if not current or current ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "hashed_rt", ARGV[2])
return 1
`)

// RedisRepository implements Repository on Redis. Each user is a hash under
// <prefix>user:<id>, with <prefix>email:<email> pointing at the id. Multi-key
// updates run as Lua scripts so they are atomic per user.
//
// Scripts address the user key derived from the sequence, so the layout
// assumes a single Redis node rather than a cluster.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisRepository) userKey(id int64) string {
	return r.userKeyPrefix() + strconv.FormatInt(id, 10)
}

func (r *RedisRepository) userKeyPrefix() string { return r.prefix + "user:" }
func (r *RedisRepository) emailKey(email string) string {
	return r.prefix + "email:" + email
}
func (r *RedisRepository) seqKey() string { return r.prefix + "user_seq" }

func (r *RedisRepository) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	createdAt := time.Now().UTC()

	id, err := createUserLua.Run(ctx, r.rdb,
		[]string{r.emailKey(email), r.seqKey()},
		email, passwordHash, r.userKeyPrefix(), createdAt.UnixNano(),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if id == 0 {
		return nil, common.ErrDuplicateEmail
	}

	return &models.User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: createdAt}, nil
}

func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := r.rdb.Get(ctx, r.emailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *RedisRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	fields, err := r.rdb.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	return decodeUser(fields)
}

func decodeUser(fields map[string]string) (*models.User, error) {
	id, err := strconv.ParseInt(fields[fieldID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}
	user := &models.User{
		ID:           id,
		Email:        fields[fieldEmail],
		PasswordHash: fields[fieldPasswordHash],
	}
	if ns, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64); err == nil {
		user.CreatedAt = time.Unix(0, ns).UTC()
	}
	if rt, ok := fields[fieldRefreshHash]; ok && rt != "" {
		user.RefreshTokenHash = &rt
	}
	return user, nil
}

func (r *RedisRepository) SetRefreshHash(ctx context.Context, id int64, hash string) error {
	ok, err := setRefreshLua.Run(ctx, r.rdb, []string{r.userKey(id)}, hash).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if ok == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *RedisRepository) RotateRefreshHash(ctx context.Context, id int64, expected, next string) error {
	status, err := rotateRefreshLua.Run(ctx, r.rdb, []string{r.userKey(id)}, expected, next).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	switch status {
	case 1:
		return nil
	case -1:
		return common.ErrorNotFound
	default:
		return common.ErrStaleRefreshHash
	}
}

func (r *RedisRepository) ClearRefreshHash(ctx context.Context, id int64) error {
	if err := r.rdb.HDel(ctx, r.userKey(id), fieldRefreshHash).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
