package middleware

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/tasky-bot/tasky/internal/request"
)

const defaultRatelimitRate = "5-M"

// RateLimit returns middleware that limits requests per client IP using
// ulule/limiter with Redis. rate uses limiter's formatted notation,
// for example "5-M" for five per minute.
func RateLimit(redisClient *redis.Client, rate string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = defaultRatelimitRate
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(store, parsed)
	keyGetter := func(r *http.Request) string {
		return request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}
