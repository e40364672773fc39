package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// La ventana es fija: arranca con la primera solicitud y el TTL la cierra.
const redisOTPAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const otpResetKeyPrefix = "edunexus:otp:reset:"

// redisOTPRateLimiter cuenta las solicitudes de recuperación por email entre
// todas las réplicas de la API. Las claves llevan el hash del email, no el
// email en claro. Si Redis falla la solicitud pasa: el límite protege la
// bandeja del usuario, no la seguridad del código.
type redisOTPRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	logger *zap.Logger
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func NewRedisOTPRateLimiter(client redis.UniversalClient, window time.Duration, max int, logger *zap.Logger) OTPRateLimiter {
	if client == nil {
		return nil
	}
	if window < time.Second {
		window = otpRequestWindow
	}
	if max <= 0 {
		max = otpRequestMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisOTPRateLimiter{client: client, window: window, max: max, logger: logger}
}

func otpResetKey(email string) string {
	sum := sha256.Sum256([]byte(normalizeEmail(email)))
	return otpResetKeyPrefix + hex.EncodeToString(sum[:16])
}

func (l *redisOTPRateLimiter) Allow(ctx context.Context, email string) bool {
	if l == nil || l.client == nil {
		return true
	}
	if normalizeEmail(email) == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	key := otpResetKey(email)
	count, err := l.client.Eval(ctx, redisOTPAllowScript, []string{key}, int(l.window/time.Second)).Int()
	if err != nil {
		l.logger.Warn("otp rate limiter unavailable", zap.Error(err), zap.String("key", key))
		return true
	}
	return count <= l.max
}
