package web

import (
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/cache"
	"golang.org/x/time/rate"
)

// ipLimiter hands out one token bucket per client IP. Idle buckets age out
// of the cache and start full again.
type ipLimiter struct {
	perMinute int
	buckets   *cache.Cache[string, *rate.Limiter]
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		perMinute: perMinute,
		buckets:   cache.New[string, *rate.Limiter](10 * time.Minute),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	if l.perMinute <= 0 {
		return true
	}
	lim, ok := l.buckets.Get(ip)
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.buckets.Set(ip, lim)
	}
	return lim.Allow()
}

// RateLimitLogin throttles sign-in attempts per client IP.
func (a *API) RateLimitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many sign-in attempts; try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP keys on the connection peer. Forwarding headers are only
// reflected here when middleware.RealIP has already rewritten RemoteAddr,
// which the router does when the proxy is trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
