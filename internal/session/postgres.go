package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/seatrips/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS gateway_sessions (
	id                    TEXT PRIMARY KEY,
	token                 TEXT NOT NULL DEFAULT '',
	user_json             JSONB,
	login_failed_attempts INT NOT NULL DEFAULT 0,
	login_block_until     TIMESTAMPTZ,
	login_email           TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at            TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps sessions in the gateway_sessions table. Expired rows are
// ignored on read and removed by CleanupExpired.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, ttl: ttl}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) expiresAt() time.Time {
	ttl := s.ttl
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return time.Now().Add(ttl)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*State, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		st       State
		userJSON []byte
		block    *time.Time
	)
	query := `
		SELECT token, user_json, login_failed_attempts, login_block_until, login_email
		FROM gateway_sessions
		WHERE id = $1 AND expires_at > now()`
	err := s.pool.QueryRow(ctx, query, id).Scan(&st.Token, &userJSON, &st.LoginFailedAttempts, &block, &st.LoginEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(userJSON) > 0 {
		var u domain.User
		if err := json.Unmarshal(userJSON, &u); err != nil {
			return nil, fmt.Errorf("decode session user: %w", err)
		}
		st.User = &u
	}
	if block != nil {
		st.LoginBlockUntil = *block
	}
	return &st, nil
}

func (s *PostgresStore) Set(ctx context.Context, id string, st *State) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var userJSON []byte
	if st.User != nil {
		data, err := json.Marshal(st.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		userJSON = data
	}
	var block *time.Time
	if !st.LoginBlockUntil.IsZero() {
		block = &st.LoginBlockUntil
	}

	query := `
		INSERT INTO gateway_sessions (id, token, user_json, login_failed_attempts, login_block_until, login_email, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			user_json = EXCLUDED.user_json,
			login_failed_attempts = EXCLUDED.login_failed_attempts,
			login_block_until = EXCLUDED.login_block_until,
			login_email = EXCLUDED.login_email,
			expires_at = EXCLUDED.expires_at`
	_, err := s.pool.Exec(ctx, query, id, st.Token, userJSON, st.LoginFailedAttempts, block, st.LoginEmail, s.expiresAt())
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, `UPDATE gateway_sessions SET token = '', user_json = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM gateway_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) IncrLoginAttempts(ctx context.Context, id, email string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		INSERT INTO gateway_sessions (id, login_failed_attempts, login_email, expires_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			login_failed_attempts = CASE
				WHEN gateway_sessions.expires_at <= now() THEN 1
				WHEN gateway_sessions.login_email = EXCLUDED.login_email
				THEN gateway_sessions.login_failed_attempts + 1
				ELSE 1
			END,
			token = CASE WHEN gateway_sessions.expires_at <= now() THEN '' ELSE gateway_sessions.token END,
			user_json = CASE WHEN gateway_sessions.expires_at <= now() THEN NULL ELSE gateway_sessions.user_json END,
			login_block_until = CASE WHEN gateway_sessions.expires_at <= now() THEN NULL ELSE gateway_sessions.login_block_until END,
			login_email = EXCLUDED.login_email,
			expires_at = EXCLUDED.expires_at
		RETURNING login_failed_attempts`
	var n int
	if err := s.pool.QueryRow(ctx, query, id, email, s.expiresAt()).Scan(&n); err != nil {
		return 0, fmt.Errorf("incr login attempts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) SetLoginBlock(ctx context.Context, id string, until time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, `UPDATE gateway_sessions SET login_block_until = $2 WHERE id = $1`, id, until)
	if err != nil {
		return fmt.Errorf("set login block: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResetLogin(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, `UPDATE gateway_sessions SET login_failed_attempts = 0, login_block_until = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset login: %w", err)
	}
	return nil
}

func (s *PostgresStore) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := s.pool.Exec(ctx, `DELETE FROM gateway_sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
