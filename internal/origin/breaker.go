// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package origin

import (
	"context"
	"errors"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/dlcs/protagonist-sub009/internal/logging"
	"github.com/dlcs/protagonist-sub009/internal/metrics"
)

// loadResult carries a successful origin read through the breaker.
type loadResult struct {
	stream io.ReadCloser
	length int64
}

// BreakerReader wraps a Reader with a circuit breaker so a failing origin
// sheds load quickly instead of tying up copy workers on doomed reads.
//
// The breaker uses real time for its interval and timeout; tests exercise the
// wrapped reader directly rather than mocking the breaker.
type BreakerReader struct {
	inner Reader
	cb    *gobreaker.CircuitBreaker[loadResult]
	name  string
}

// NewBreakerReader wraps inner. The circuit opens after a 60% failure rate
// over at least 10 requests and probes recovery after 30 seconds.
func NewBreakerReader(inner Reader) *BreakerReader {
	name := "origin-reads"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[loadResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Origin circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerReader{inner: inner, cb: cb, name: name}
}

// LoadFromOrigin implements Reader.
func (b *BreakerReader) LoadFromOrigin(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	result, err := b.cb.Execute(func() (loadResult, error) {
		stream, length, err := b.inner.LoadFromOrigin(ctx, location)
		if err != nil {
			return loadResult{}, err
		}
		return loadResult{stream: stream, length: length}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.OriginRequests.WithLabelValues("rejected").Inc()
		} else {
			metrics.OriginRequests.WithLabelValues("failure").Inc()
		}
		return nil, 0, err
	}

	metrics.OriginRequests.WithLabelValues("success").Inc()
	return result.stream, result.length, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
