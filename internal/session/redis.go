package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/seatrips/internal/domain"
)

const (
	fieldToken     = "token"
	fieldUser      = "user"
	fieldAttempts  = "login_failed_attempts"
	fieldBlock     = "login_block_until"
	fieldEmail     = "login_email"
	fieldCreatedAt = "created_at"
)

// incrAttempts restarts the count when the login email changed and bumps it
// in one round trip.
var incrAttempts = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'login_email')
if current ~= ARGV[1] then
  redis.call('HSET', KEYS[1], 'login_email', ARGV[1], 'login_failed_attempts', 0)
end
local n = redis.call('HINCRBY', KEYS[1], 'login_failed_attempts', 1)
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
end
return n
`)

// RedisStore keeps one hash per session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "session:"}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeFields(fields)
}

func decodeFields(fields map[string]string) (*State, error) {
	st := &State{
		Token:      fields[fieldToken],
		LoginEmail: fields[fieldEmail],
	}
	if raw := fields[fieldUser]; raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("decode session user: %w", err)
		}
		st.User = &u
	}
	if raw := fields[fieldAttempts]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decode login attempts: %w", err)
		}
		st.LoginFailedAttempts = n
	}
	if raw := fields[fieldBlock]; raw != "" && raw != "0" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode login block: %w", err)
		}
		st.LoginBlockUntil = time.UnixMilli(ms)
	}
	return st, nil
}

func encodeFields(st *State) (map[string]any, error) {
	user := ""
	if st.User != nil {
		data, err := json.Marshal(st.User)
		if err != nil {
			return nil, fmt.Errorf("encode session user: %w", err)
		}
		user = string(data)
	}
	block := int64(0)
	if !st.LoginBlockUntil.IsZero() {
		block = st.LoginBlockUntil.UnixMilli()
	}
	return map[string]any{
		fieldToken:    st.Token,
		fieldUser:     user,
		fieldAttempts: st.LoginFailedAttempts,
		fieldBlock:    block,
		fieldEmail:    st.LoginEmail,
	}, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, st *State) error {
	values, err := encodeFields(st)
	if err != nil {
		return err
	}
	key := s.key(id)

	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, key, fieldCreatedAt, time.Now().Unix())
	pipe.HSet(ctx, key, values)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.HDel(ctx, s.key(id), fieldToken, fieldUser).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) IncrLoginAttempts(ctx context.Context, id, email string) (int, error) {
	n, err := incrAttempts.Run(ctx, s.client, []string{s.key(id)}, email, int64(s.ttl/time.Second)).Int()
	if err != nil {
		return 0, fmt.Errorf("incr login attempts: %w", err)
	}
	return n, nil
}

func (s *RedisStore) SetLoginBlock(ctx context.Context, id string, until time.Time) error {
	if err := s.client.HSet(ctx, s.key(id), fieldBlock, until.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("set login block: %w", err)
	}
	return nil
}

func (s *RedisStore) ResetLogin(ctx context.Context, id string) error {
	if err := s.client.HSet(ctx, s.key(id), fieldAttempts, 0, fieldBlock, 0).Err(); err != nil {
		return fmt.Errorf("reset login: %w", err)
	}
	return nil
}
