// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of the client's request counters,
// surfaced by the get_resource_usage tool and the status resource.
type MetricsSnapshot struct {
	// Requests counts every remote call attempted, successful or not.
	Requests uint64

	// Failures counts remote calls that returned an error.
	Failures uint64

	// FailuresByKind breaks Failures down by taxonomy kind label.
	FailuresByKind map[string]uint64

	// LastRequest is when the most recent remote call finished.
	LastRequest time.Time

	// LastError holds the detail of the most recent failure, if any.
	LastError string
}

// metrics tracks request counters under a mutex. The http.Client itself is
// concurrency-safe; this is the only mutable state on the Client.
type metrics struct {
	mu             sync.Mutex
	requests       uint64
	failures       uint64
	failuresByKind map[string]uint64
	lastRequest    time.Time
	lastError      string
}

func (m *metrics) record(err *Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.lastRequest = time.Now().UTC()

	if err == nil {
		return
	}

	m.failures++
	if m.failuresByKind == nil {
		m.failuresByKind = make(map[string]uint64)
	}
	m.failuresByKind[err.Kind.String()]++
	m.lastError = err.Detail
}

func (m *metrics) snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[string]uint64, len(m.failuresByKind))
	for k, v := range m.failuresByKind {
		byKind[k] = v
	}

	return MetricsSnapshot{
		Requests:       m.requests,
		Failures:       m.failures,
		FailuresByKind: byKind,
		LastRequest:    m.lastRequest,
		LastError:      m.lastError,
	}
}

// Metrics returns a snapshot of the client's request counters.
func (c *Client) Metrics() MetricsSnapshot { return c.metrics.snapshot() }
