// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
)

func intPtr(v int) *int { return &v }

// captureJSON decodes the request body into a generic map so tests can assert
// the exact wire form.
func captureJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body), "request body must be JSON")
	return body
}

func TestDateDaysAgo(t *testing.T) {
	before := time.Now().AddDate(0, 0, -7).Format(misp.DateLayout)
	got := misp.DateDaysAgo(7)
	after := time.Now().AddDate(0, 0, -7).Format(misp.DateLayout)

	// Tolerate a midnight rollover between the reference calls.
	assert.Contains(t, []string{before, after}, got)

	parsed, err := time.Parse(misp.DateLayout, misp.DateDaysAgo(30))
	require.NoError(t, err)
	assert.InDelta(t, 30*24, time.Since(parsed).Hours(), 25, "window start should sit about thirty days back")
}

func TestCreateEventDefaults(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/events/add", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body = captureJSON(t, r)
		w.Write([]byte(`{"Event":{"id":"42","uuid":"5e96045c-ea80-4762-9f11-45e0a4c9d95e","info":"Suspicious login burst","date":"2026-08-26","threat_level_id":"3","distribution":"1","analysis":"0","published":false}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	todayBefore := time.Now().Format(misp.DateLayout)
	event, err := client.CreateEvent(t.Context(), misp.CreateEventRequest{Info: "Suspicious login burst"})
	todayAfter := time.Now().Format(misp.DateLayout)
	require.NoError(t, err)

	assert.Equal(t, "Suspicious login burst", body["info"])
	assert.Equal(t, float64(1), body["distribution"], "default distribution is This Community Only")
	assert.Equal(t, float64(3), body["threat_level_id"], "default threat level is Low")
	assert.Equal(t, float64(0), body["analysis"], "default analysis is Initial")
	assert.Contains(t, []string{todayBefore, todayAfter}, body["date"], "default date is today")
	assert.NotContains(t, body, "Tag", "no tags requested, none submitted")

	assert.Equal(t, "42", event.ID)
	assert.Equal(t, "Suspicious login burst", event.Info)
	assert.False(t, bool(event.Published))
}

func TestCreateEventExplicit(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = captureJSON(t, r)
		w.Write([]byte(`{"Event":{"id":"43","info":"Phishing campaign"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	_, err := client.CreateEvent(t.Context(), misp.CreateEventRequest{
		Info:          "Phishing campaign",
		Distribution:  intPtr(misp.DistributionOrganisation),
		ThreatLevelID: intPtr(misp.ThreatLevelHigh),
		Analysis:      intPtr(misp.AnalysisComplete),
		Date:          "2026-01-15",
		Tags:          []string{" tlp:amber ", "", "type:OSINT"},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(0), body["distribution"])
	assert.Equal(t, float64(1), body["threat_level_id"])
	assert.Equal(t, float64(2), body["analysis"])
	assert.Equal(t, "2026-01-15", body["date"])

	tags, ok := body["Tag"].([]any)
	require.True(t, ok, "tags must serialize as a Tag list, got %T", body["Tag"])
	require.Len(t, tags, 2, "blank tags are dropped")
	assert.Equal(t, map[string]any{"name": "tlp:amber"}, tags[0])
	assert.Equal(t, map[string]any{"name": "type:OSINT"}, tags[1])
}

func TestCreateEventValidation(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"Event":{}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	tests := []struct {
		name   string
		req    misp.CreateEventRequest
		detail string
	}{
		{
			name:   "empty info",
			req:    misp.CreateEventRequest{Info: "   "},
			detail: "info",
		},
		{
			name:   "threat level out of range",
			req:    misp.CreateEventRequest{Info: "x", ThreatLevelID: intPtr(0)},
			detail: "threat_level_id",
		},
		{
			name:   "event distribution cannot inherit",
			req:    misp.CreateEventRequest{Info: "x", Distribution: intPtr(5)},
			detail: "distribution",
		},
		{
			name:   "analysis out of range",
			req:    misp.CreateEventRequest{Info: "x", Analysis: intPtr(3)},
			detail: "analysis",
		},
		{
			name:   "malformed date",
			req:    misp.CreateEventRequest{Info: "x", Date: "15/01/2026"},
			detail: "YYYY-MM-DD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateEvent(t.Context(), tt.req)
			require.Error(t, err)
			assert.True(t, misp.IsKind(err, misp.KindValidation), "want validation error, got %v", err)
			assert.Contains(t, misp.Detail(err), tt.detail)
		})
	}

	assert.Zero(t, requests.Load(), "validation failures must not reach the server")
}

func TestGetEvent(t *testing.T) {
	t.Run("by id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/events/view/42", r.URL.Path)
			w.Write([]byte(`{"Event":{
				"id":"42","info":"Suspicious login burst","attribute_count":"1",
				"Attribute":[{"id":"7","type":"ip-src","category":"Network activity","value":"198.51.100.7","to_ids":"1"}],
				"Org":{"id":"1","name":"CIRCL"}
			}}`))
		}))
		defer srv.Close()

		client := newTestClient(t, srv)

		event, err := client.GetEvent(t.Context(), "42")
		require.NoError(t, err)
		assert.Equal(t, "42", event.ID)
		assert.Equal(t, "CIRCL", event.OrgName())
		require.Len(t, event.Attributes, 1)
		assert.Equal(t, "ip-src", event.Attributes[0].Type)
		assert.True(t, bool(event.Attributes[0].ToIDS))
		assert.Equal(t, 1, event.NumAttributes())
	})

	t.Run("escapes the id", func(t *testing.T) {
		var requestURI string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestURI = r.RequestURI
			w.Write([]byte(`{"Event":{"id":"1066"}}`))
		}))
		defer srv.Close()

		client := newTestClient(t, srv)

		_, err := client.GetEvent(t.Context(), "1066/../../admin")
		require.NoError(t, err)
		assert.Equal(t, "/events/view/1066%2F..%2F..%2Fadmin", requestURI,
			"path separators in the id must not change the endpoint")
	})

	t.Run("empty id", func(t *testing.T) {
		var requests atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
		}))
		defer srv.Close()

		client := newTestClient(t, srv)

		_, err := client.GetEvent(t.Context(), "  ")
		require.Error(t, err)
		assert.True(t, misp.IsKind(err, misp.KindValidation), "want validation error, got %v", err)
		assert.Zero(t, requests.Load())
	})
}

func TestSearchEventsBody(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/events/restSearch", r.URL.Path)
		body = captureJSON(t, r)
		w.Write([]byte(`{"response":[
			{"Event":{"id":"10","info":"Botnet sinkhole hits","threat_level_id":"1"}},
			{"Event":{"id":"11","info":"Credential stuffing","threat_level_id":"2"}}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	fromBefore := misp.DateDaysAgo(7)
	events, err := client.SearchEvents(t.Context(), misp.EventSearchRequest{
		Limit:       10,
		DaysBack:    7,
		Org:         " CIRCL ",
		Tags:        []string{"tlp:white", "  "},
		ThreatLevel: misp.ThreatLevelHigh,
	})
	fromAfter := misp.DateDaysAgo(7)
	require.NoError(t, err)

	assert.Equal(t, "json", body["returnFormat"])
	assert.Equal(t, float64(10), body["limit"])
	assert.Contains(t, []string{fromBefore, fromAfter}, body["from"], "days_back sets the inclusive window start")
	assert.Equal(t, "CIRCL", body["org"])
	assert.Equal(t, []any{"tlp:white"}, body["tags"], "blank tags are dropped")
	assert.Equal(t, float64(1), body["threat_level_id"])
	assert.NotContains(t, body, "to")

	require.Len(t, events, 2)
	assert.Equal(t, "Botnet sinkhole hits", events[0].Info)
	assert.Equal(t, "High", misp.ThreatLevelName(events[0].ThreatLevelID))
}

func TestSearchEventsExplicitWindow(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = captureJSON(t, r)
		w.Write([]byte(`{"response":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	events, err := client.SearchEvents(t.Context(), misp.EventSearchRequest{
		DaysBack: 14,
		DateFrom: "2026-01-01",
		DateTo:   "2026-01-31",
	})
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.Equal(t, "2026-01-01", body["from"], "an explicit date_from wins over days_back")
	assert.Equal(t, "2026-01-31", body["to"])
	assert.NotContains(t, body, "limit")
	assert.NotContains(t, body, "org")
	assert.NotContains(t, body, "threat_level_id")
}

func TestSearchEventsValidation(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"response":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	tests := []struct {
		name string
		req  misp.EventSearchRequest
	}{
		{name: "negative limit", req: misp.EventSearchRequest{Limit: -1}},
		{name: "negative days_back", req: misp.EventSearchRequest{DaysBack: -2}},
		{name: "threat level out of range", req: misp.EventSearchRequest{ThreatLevel: 9}},
		{name: "malformed date_from", req: misp.EventSearchRequest{DateFrom: "Jan 1"}},
		{name: "malformed date_to", req: misp.EventSearchRequest{DateTo: "2026-13-40"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SearchEvents(t.Context(), tt.req)
			require.Error(t, err)
			assert.True(t, misp.IsKind(err, misp.KindValidation), "want validation error, got %v", err)
		})
	}

	assert.Zero(t, requests.Load(), "validation failures must not reach the server")
}
