package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meriawaaz-be/logger"
)

type captureDeliverer struct {
	codes map[string]string
	err   error
}

func (d *captureDeliverer) Deliver(_ context.Context, phone, code string) error {
	if d.err != nil {
		return d.err
	}
	d.codes[phone] = code
	return nil
}

func setup(t *testing.T) (*RedisProvider, *captureDeliverer, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	d := &captureDeliverer{codes: make(map[string]string)}
	return NewRedisProvider(client, d, Options{CodeTTL: 10 * time.Minute, MaxAttempts: 3}, logger.Nop()), d, s
}

func TestFormatAndNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"9876543210":       "+919876543210",
		"+91 98765-43210":  "+919876543210",
		"919876543210":     "+919876543210",
		"09876543210":      "+919876543210",
		"+1 (415) 5550100": "+14155550100",
		"12345":            "+9112345",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatPhone(in), in)
	}

	phone, err := NormalizePhone("98765 43210")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", phone)

	for _, bad := range []string{"12345", "5876543210", "+14155550100"} {
		_, err := NormalizePhone(bad)
		assert.ErrorIs(t, err, ErrInvalidPhone, bad)
	}
}

func TestSendAndCheck(t *testing.T) {
	ctx := context.Background()
	p, d, s := setup(t)
	phone := "+919876543210"

	require.NoError(t, p.Send(ctx, phone))
	code := d.codes[phone]
	require.Len(t, code, 6)
	assert.True(t, s.Exists(codeKey(phone)))
	assert.Equal(t, 10*time.Minute, s.TTL(codeKey(phone)))

	assert.ErrorIs(t, p.Check(ctx, phone, "000000"), ErrInvalidCode)
	require.NoError(t, p.Check(ctx, phone, code))

	assert.ErrorIs(t, p.Check(ctx, phone, code), ErrNoCode)
}

func TestCheckExpiredCode(t *testing.T) {
	ctx := context.Background()
	p, _, s := setup(t)
	phone := "+919876543210"

	require.NoError(t, p.Send(ctx, phone))
	s.FastForward(11 * time.Minute)
	assert.ErrorIs(t, p.Check(ctx, phone, "123456"), ErrNoCode)
}

func TestCheckBurnsCodeAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	p, d, _ := setup(t)
	phone := "+919876543210"

	require.NoError(t, p.Send(ctx, phone))
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, p.Check(ctx, phone, "bad"), ErrInvalidCode)
	}
	assert.ErrorIs(t, p.Check(ctx, phone, d.codes[phone]), ErrTooManyAttempts)
	assert.ErrorIs(t, p.Check(ctx, phone, d.codes[phone]), ErrNoCode)

	require.NoError(t, p.Send(ctx, phone))
	assert.NoError(t, p.Check(ctx, phone, d.codes[phone]))
}

func TestSendDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	p, d, s := setup(t)
	d.err = errors.New("sms gateway down")

	assert.ErrorIs(t, p.Send(ctx, "+919876543210"), ErrDeliveryFailed)
	assert.False(t, s.Exists(codeKey("+919876543210")))
}
