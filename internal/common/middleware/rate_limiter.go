package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/common/metrics"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware ограничивает частоту запросов к API уведомлений
// по IP клиента. Состояние клиентов живёт в памяти и очищается фоново.
type RateLimiterMiddleware struct {
	clients    map[string]*clientLimiter
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	expiration time.Duration
	logger     *slog.Logger

	ctx context.Context
}

func NewRateLimiterMiddleware(
	ctx context.Context,
	requestsPerWindow int,
	window time.Duration,
	logger *slog.Logger,
) *RateLimiterMiddleware {
	m := &RateLimiterMiddleware{
		clients:    make(map[string]*clientLimiter),
		rate:       rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst:      requestsPerWindow,
		expiration: 1 * time.Hour,
		logger:     logger,
		ctx:        ctx,
	}

	go m.cleanupClients()

	return m
}

func (m *RateLimiterMiddleware) limiterFor(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, exists := m.clients[ip]
	if !exists {
		client = &clientLimiter{
			limiter:  rate.NewLimiter(m.rate, m.burst),
			lastSeen: time.Now(),
		}
		m.clients[ip] = client
	} else {
		client.lastSeen = time.Now()
	}

	return client.limiter
}

func (m *RateLimiterMiddleware) cleanupClients() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for ip, client := range m.clients {
				if time.Since(client.lastSeen) > m.expiration {
					delete(m.clients, ip)
				}
			}
			m.mu.Unlock()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !m.limiterFor(ip).Allow() {
			m.reject(w, r, ip)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimiterMiddleware) reject(w http.ResponseWriter, r *http.Request, ip string) {
	metrics.RecordRateLimited()

	m.logger.Warn("Запрос отклонён рейт-лимитером",
		"ip", ip,
		"path", r.URL.Path,
	)

	retryAfter := int(1 / float64(m.rate))
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.burst))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	payload := map[string]string{"error": "превышен лимит запросов"}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		m.logger.Error("Ошибка при сериализации ответа рейт-лимитера",
			"error", err,
		)
	}
}
