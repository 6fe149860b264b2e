// SPDX-License-Identifier: AGPL-3.0-or-later

package relaymesh

import (
	gobreaker "github.com/sony/gobreaker/v2"
)

// NewCircuitBreaker builds a circuit breaker from cfg. It has no nats
// build tag: the breaker itself is pure policy and is exercised by
// tests regardless of whether the real NATS publisher is linked in.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}

// CircuitBreakerState converts the breaker's state to a string for
// logging and metrics.
func CircuitBreakerState(cb *gobreaker.CircuitBreaker[interface{}]) string {
	return cb.State().String()
}

// ExecuteWithBreaker runs fn under circuit breaker protection.
func ExecuteWithBreaker(cb *gobreaker.CircuitBreaker[interface{}], fn func() (interface{}, error)) (interface{}, error) {
	return cb.Execute(fn)
}
