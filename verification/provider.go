// Package verification sends and checks one-time phone verification codes.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrInvalidPhone    = errors.New("invalid phone number format")
	ErrNoCode          = errors.New("no verification code sent to this number")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrDeliveryFailed  = errors.New("failed to send verification code")
)

// Provider sends a code to a phone number and checks it later. Phone
// numbers are E.164.
type Provider interface {
	Send(ctx context.Context, phone string) error
	Check(ctx context.Context, phone, code string) error
}

// Deliverer gets a code to the user, e.g. by SMS.
type Deliverer interface {
	Deliver(ctx context.Context, phone, code string) error
}

// LogDeliverer writes codes to the log. Development only.
type LogDeliverer struct {
	Log *zap.SugaredLogger
}

func (d LogDeliverer) Deliver(_ context.Context, phone, code string) error {
	d.Log.Infow("verification code generated", "phone", phone, "code", code)
	return nil
}

type Options struct {
	CodeTTL     time.Duration
	MaxAttempts int
}

// RedisProvider keeps one code per phone in Redis. A code is single use and
// burns after MaxAttempts wrong guesses.
type RedisProvider struct {
	client    redis.UniversalClient
	deliverer Deliverer
	opts      Options
	log       *zap.SugaredLogger
}

func NewRedisProvider(client redis.UniversalClient, deliverer Deliverer, opts Options, log *zap.SugaredLogger) *RedisProvider {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &RedisProvider{client: client, deliverer: deliverer, opts: opts, log: log}
}

func codeKey(phone string) string     { return "verify:code:" + phone }
func attemptsKey(phone string) string { return "verify:attempts:" + phone }

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func (p *RedisProvider) Send(ctx context.Context, phone string) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey(phone), code, p.opts.CodeTTL)
		pipe.Del(ctx, attemptsKey(phone))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := p.deliverer.Deliver(ctx, phone, code); err != nil {
		p.log.Errorw("failed to deliver verification code", "phone", phone, "error", err)
		_ = p.client.Del(ctx, codeKey(phone)).Err()
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func (p *RedisProvider) Check(ctx context.Context, phone, code string) error {
	stored, err := p.client.Get(ctx, codeKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNoCode
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}

	attempts, err := p.client.Incr(ctx, attemptsKey(phone)).Result()
	if err != nil {
		return fmt.Errorf("count attempts: %w", err)
	}
	if attempts == 1 {
		_ = p.client.Expire(ctx, attemptsKey(phone), p.opts.CodeTTL).Err()
	}
	if attempts > int64(p.opts.MaxAttempts) {
		_ = p.client.Del(ctx, codeKey(phone), attemptsKey(phone)).Err()
		return ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	if err := p.client.Del(ctx, codeKey(phone), attemptsKey(phone)).Err(); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}
