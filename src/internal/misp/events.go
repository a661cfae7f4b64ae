// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DateLayout is the calendar-day format MISP uses for event dates and search
// windows.
const DateLayout = "2006-01-02"

// DateDaysAgo returns today minus the given number of days in [DateLayout].
//
// Window rule: MISP treats the "from" filter as inclusive of the boundary
// day, so searching with DateDaysAgo(7) returns events dated exactly seven
// days ago as well as everything newer. Resource handlers and the days_back
// tool parameter both rely on this rule.
func DateDaysAgo(days int) string {
	return time.Now().AddDate(0, 0, -days).Format(DateLayout)
}

// CreateEventRequest carries the caller-supplied fields for a new event.
// Zero values for the enums are replaced by the documented defaults before
// submission: distribution 1 (This Community Only), threat level 3 (Low),
// analysis 0 (Initial), date today.
type CreateEventRequest struct {
	Info          string
	Distribution  *int
	ThreatLevelID *int
	Analysis      *int
	Date          string
	Tags          []string
}

// createEventBody is the wire form of POST /events/add.
type createEventBody struct {
	Info          string `json:"info"`
	Distribution  int    `json:"distribution"`
	ThreatLevelID int    `json:"threat_level_id"`
	Analysis      int    `json:"analysis"`
	Date          string `json:"date,omitempty"`
	Tags          []Tag  `json:"Tag,omitempty"`
}

// eventEnvelope wraps the single-event payloads MISP returns from
// /events/add and /events/view.
type eventEnvelope struct {
	Event Event `json:"Event"`
}

// eventSearchBody is the wire form of POST /events/restSearch. The from/to
// members are MISP's calendar-day range filters.
type eventSearchBody struct {
	ReturnFormat  string   `json:"returnFormat"`
	Limit         int      `json:"limit,omitempty"`
	From          string   `json:"from,omitempty"`
	To            string   `json:"to,omitempty"`
	Org           string   `json:"org,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	ThreatLevelID int      `json:"threat_level_id,omitempty"`
}

// eventSearchResponse is the envelope of POST /events/restSearch.
type eventSearchResponse struct {
	Response []eventEnvelope `json:"response"`
}

// TestConnection verifies that the MISP instance is reachable and the API key
// is accepted, in a single version request bounded by the client timeout.
func (c *Client) TestConnection(ctx context.Context) (*VersionInfo, error) {
	return c.version(ctx, "misp: test connection")
}

// GetVersion returns the remote MISP version and permission flags.
func (c *Client) GetVersion(ctx context.Context) (*VersionInfo, error) {
	return c.version(ctx, "misp: get version")
}

func (c *Client) version(ctx context.Context, op string) (*VersionInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/servers/getVersion", nil)
	if err != nil {
		return nil, newError(KindUnknown, op, "building the request failed", err)
	}

	var info VersionInfo
	if err := c.do(op, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateEvent validates the enum fields locally, applies the documented
// defaults, and creates the event with one POST /events/add call.
func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error) {
	const op = "misp: create event"

	if strings.TrimSpace(req.Info) == "" {
		return nil, validationErrorf(op, "info is required and must not be empty")
	}

	body := createEventBody{
		Info:          req.Info,
		Distribution:  DistributionCommunity,
		ThreatLevelID: ThreatLevelLow,
		Analysis:      AnalysisInitial,
		Date:          req.Date,
	}
	if req.Distribution != nil {
		body.Distribution = *req.Distribution
	}
	if req.ThreatLevelID != nil {
		body.ThreatLevelID = *req.ThreatLevelID
	}
	if req.Analysis != nil {
		body.Analysis = *req.Analysis
	}

	if err := ValidateEventDistribution(op, body.Distribution); err != nil {
		return nil, err
	}
	if err := ValidateThreatLevel(op, body.ThreatLevelID); err != nil {
		return nil, err
	}
	if err := ValidateAnalysis(op, body.Analysis); err != nil {
		return nil, err
	}

	if body.Date == "" {
		body.Date = time.Now().Format(DateLayout)
	} else if err := validateDate(op, "date", body.Date); err != nil {
		return nil, err
	}

	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			body.Tags = append(body.Tags, Tag{Name: tag})
		}
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/events/add", body)
	if err != nil {
		return nil, newError(KindUnknown, op, "building the request failed", err)
	}

	var envelope eventEnvelope
	if err := c.do(op, httpReq, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Event, nil
}

// GetEvent retrieves one event by numeric id or UUID. The response includes
// the event's attributes; callers decide how many to surface.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	const op = "misp: get event"

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, validationErrorf(op, "event_id is required and must not be empty")
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/events/view/"+url.PathEscape(eventID), nil)
	if err != nil {
		return nil, newError(KindUnknown, op, "building the request failed", err)
	}

	var envelope eventEnvelope
	if err := c.do(op, req, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Event, nil
}

// EventSearchRequest carries the supported event search filters. All fields
// are optional; the zero request returns the most recent events up to the
// server's default limit.
type EventSearchRequest struct {
	// Limit caps the number of returned events. Zero leaves the cap to the
	// server.
	Limit int

	// DaysBack widens the window to the last N days (inclusive boundary, see
	// [DateDaysAgo]). Ignored when DateFrom is set explicitly.
	DaysBack int

	// DateFrom and DateTo bound the event date in [DateLayout].
	DateFrom string
	DateTo   string

	// Org filters by owning organisation name or id.
	Org string

	// Tags filters by tag names.
	Tags []string

	// ThreatLevel filters by threat level id (1..4). Zero disables the filter.
	ThreatLevel int
}

// SearchEvents runs one POST /events/restSearch call with the given filters.
func (c *Client) SearchEvents(ctx context.Context, req EventSearchRequest) ([]Event, error) {
	const op = "misp: search events"

	if req.Limit < 0 {
		return nil, validationErrorf(op, "limit must not be negative, got %d", req.Limit)
	}
	if req.DaysBack < 0 {
		return nil, validationErrorf(op, "days_back must not be negative, got %d", req.DaysBack)
	}
	if req.ThreatLevel != 0 {
		if err := ValidateThreatLevel(op, req.ThreatLevel); err != nil {
			return nil, err
		}
	}

	body := eventSearchBody{
		ReturnFormat:  "json",
		Limit:         req.Limit,
		From:          req.DateFrom,
		To:            req.DateTo,
		Org:           strings.TrimSpace(req.Org),
		ThreatLevelID: req.ThreatLevel,
	}

	if body.From == "" && req.DaysBack > 0 {
		body.From = DateDaysAgo(req.DaysBack)
	}
	if body.From != "" {
		if err := validateDate(op, "date_from", body.From); err != nil {
			return nil, err
		}
	}
	if body.To != "" {
		if err := validateDate(op, "date_to", body.To); err != nil {
			return nil, err
		}
	}

	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			body.Tags = append(body.Tags, tag)
		}
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/events/restSearch", body)
	if err != nil {
		return nil, newError(KindUnknown, op, "building the request failed", err)
	}

	var result eventSearchResponse
	if err := c.do(op, httpReq, &result); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(result.Response))
	for _, envelope := range result.Response {
		events = append(events, envelope.Event)
	}
	return events, nil
}

func validateDate(op, field, value string) error {
	if _, err := time.Parse(DateLayout, value); err != nil {
		return validationErrorf(op, "%s must use the YYYY-MM-DD format, got %q", field, value)
	}
	return nil
}
