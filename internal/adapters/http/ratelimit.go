package httpadapter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TrafficLimits caps the request rate per client address. Zero values
// disable limiting, which the demo and tests rely on.
type TrafficLimits struct {
	RequestsPerSecond float64
	Burst             int
}

func (l TrafficLimits) enabled() bool {
	return l.RequestsPerSecond > 0 && l.Burst > 0
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type trafficLimiter struct {
	limits TrafficLimits

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

const clientLimiterTTL = 10 * time.Minute

func newTrafficLimiter(limits TrafficLimits) *trafficLimiter {
	return &trafficLimiter{
		limits:  limits,
		clients: make(map[string]*clientLimiter),
	}
}

func (t *trafficLimiter) middleware(next http.Handler) http.Handler {
	if !t.limits.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.allow(clientAddr(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *trafficLimiter) allow(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	client, ok := t.clients[addr]
	if !ok {
		t.evictStaleLocked(now)
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(t.limits.RequestsPerSecond), t.limits.Burst),
		}
		t.clients[addr] = client
	}
	client.lastSeen = now
	return client.limiter.Allow()
}

func (t *trafficLimiter) evictStaleLocked(now time.Time) {
	for addr, client := range t.clients {
		if now.Sub(client.lastSeen) > clientLimiterTTL {
			delete(t.clients, addr)
		}
	}
}

func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
