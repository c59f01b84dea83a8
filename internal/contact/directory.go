// Package contact resolves the address a channel needs to reach a user.
package contact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

const (
	DefaultCacheTTL    = 5 * time.Minute
	DefaultTokenPrefix = "push_token:"
	cachePrefix        = "contact:"
)

// Directory returns the contact details for a user on a channel. It returns
// an error wrapping domain.ErrUndeliverable when the user has no address for
// that channel; any other error is transient.
type Directory interface {
	Lookup(ctx context.Context, userID string, channel domain.Channel) (domain.Contact, error)
}

type Options struct {
	CacheTTL    time.Duration
	TokenPrefix string
}

// Store reads email and phone from the users table with a Redis read-through
// cache, and push tokens from Redis.
type Store struct {
	db     *sql.DB
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

type profile struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func NewStore(db *sql.DB, rdb *redis.Client, opts Options, log *zap.Logger) *Store {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.TokenPrefix == "" {
		opts.TokenPrefix = DefaultTokenPrefix
	}
	return &Store{db: db, rdb: rdb, ttl: opts.CacheTTL, prefix: opts.TokenPrefix, log: log}
}

func (s *Store) Lookup(ctx context.Context, userID string, channel domain.Channel) (domain.Contact, error) {
	c := domain.Contact{UserID: userID}

	switch channel {
	case domain.ChannelInApp:
		return c, nil

	case domain.ChannelPush:
		token, err := s.rdb.Get(ctx, s.prefix+userID).Result()
		if errors.Is(err, redis.Nil) || (err == nil && token == "") {
			return c, fmt.Errorf("%w: user %s has no push token", domain.ErrUndeliverable, userID)
		}
		if err != nil {
			return c, fmt.Errorf("get push token: %w", err)
		}
		c.PushToken = token
		return c, nil

	case domain.ChannelEmail, domain.ChannelSMS:
		p, err := s.profile(ctx, userID)
		if err != nil {
			return c, err
		}
		c.Email, c.Phone = p.Email, p.Phone
		if channel == domain.ChannelEmail && c.Email == "" {
			return c, fmt.Errorf("%w: user %s has no email address", domain.ErrUndeliverable, userID)
		}
		if channel == domain.ChannelSMS && c.Phone == "" {
			return c, fmt.Errorf("%w: user %s has no phone number", domain.ErrUndeliverable, userID)
		}
		return c, nil
	}

	return c, fmt.Errorf("%w: unsupported channel %q", domain.ErrUndeliverable, channel)
}

func (s *Store) profile(ctx context.Context, userID string) (profile, error) {
	key := cachePrefix + userID
	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var p profile
		if err := json.Unmarshal([]byte(val), &p); err == nil {
			return p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// A cache outage degrades to the database.
		s.log.Warn("contact cache read failed", zap.String("user_id", userID), zap.Error(err))
	}

	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`, userID).Scan(&email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return profile{}, fmt.Errorf("%w: user %s not found", domain.ErrUndeliverable, userID)
	}
	if err != nil {
		return profile{}, fmt.Errorf("query contact: %w", err)
	}

	p := profile{Email: email.String, Phone: phone.String}
	data, _ := json.Marshal(p)
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.Warn("contact cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return p, nil
}

var _ Directory = (*Store)(nil)
