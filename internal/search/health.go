package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/metrics"
)

const (
	providerFailureThreshold = 3
	providerBlockBase        = 2 * time.Minute
	providerBlockMax         = 15 * time.Minute
)

type providerHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastLatency         time.Duration
	totalRequests       int64
	totalFailures       int64
}

func (s *Service) isProviderBlocked(providerName string, now time.Time) (bool, time.Time, string) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		return false, time.Time{}, ""
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		return false, time.Time{}, ""
	}
	if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
		return false, time.Time{}, ""
	}
	return true, state.blockedUntil, state.lastError
}

func (s *Service) recordProviderResult(providerName string, err error, latency time.Duration, now time.Time) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		return
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		state = &providerHealth{}
		s.health[name] = state
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.ProviderRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastError = ""
		metrics.ProviderRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.ProviderAvailable.WithLabelValues(name).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastError = err.Error()

	status := "error"
	if isTimeoutLikeError(err) {
		status = "timeout"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(name, status).Inc()

	if state.consecutiveFailures >= providerFailureThreshold {
		state.blockedUntil = now.Add(exponentialBlockDuration(state.consecutiveFailures))
		metrics.ProviderAvailable.WithLabelValues(name).Set(0)
	}
}

// exponentialBlockDuration grows the block window as failures pile up:
// base × 2^(failures - threshold), capped at providerBlockMax.
func exponentialBlockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - providerFailureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := providerBlockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > providerBlockMax {
			return providerBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

func (s *Service) ProviderDiagnostics() []domain.ProviderDiagnostics {
	infos := s.Providers()
	if len(infos) == 0 {
		return nil
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]domain.ProviderDiagnostics, 0, len(infos))
	for _, info := range infos {
		item := domain.ProviderDiagnostics{
			Name:    info.Name,
			Label:   info.Label,
			Enabled: info.Enabled,
		}
		if state := s.health[info.Name]; state != nil {
			item.ConsecutiveFailures = state.consecutiveFailures
			if !state.blockedUntil.IsZero() {
				item.BlockedUntilUnix = state.blockedUntil.Unix()
			}
			item.LastError = state.lastError
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.TotalRequests = state.totalRequests
			item.TotalFailures = state.totalFailures
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}
