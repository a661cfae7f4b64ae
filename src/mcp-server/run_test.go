// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/mcptest"
	"github.com/mark3labs/mcp-go/server"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
)

// Test certificate from www.google.com (valid until December 15, 2025)
// Retrieved: October 16, 2025
const testCertPEM = `
-----BEGIN CERTIFICATE-----
MIIEVzCCAz+gAwIBAgIQXEsKucZT6MwJr/NcaQmnozANBgkqhkiG9w0BAQsFADA7
MQswCQYDVQQGEwJVUzEeMBwGA1UEChMVR29vZ2xlIFRydXN0IFNlcnZpY2VzMQww
CgYDVQQDEwNXUjIwHhcNMjUwOTIyMDg0MjQwWhcNMjUxMjE1MDg0MjM5WjAZMRcw
FQYDVQQDEw53d3cuZ29vZ2xlLmNvbTBZMBMGByqGSM49AgEGCCqGSM49AwEHA0IA
BM3QmmV89za/vDWm/Ctodj6J5s0RLy5fo5QsoGRdMlzItH3jBRpmdWEMysalvQtm
aLGUUvJv5ASJHKfixPD3LWijggJCMIICPjAOBgNVHQ8BAf8EBAMCB4AwEwYDVR0l
BAwwCgYIKwYBBQUHAwEwDAYDVR0TAQH/BAIwADAdBgNVHQ4EFgQUUYk76ccIt4qc
kyjMh0xUc5iMmTIwHwYDVR0jBBgwFoAU3hse7XkV1D43JMMhu+w0OW1CsjAwWAYI
KwYBBQUHAQEETDBKMCEGCCsGAQUFBzABhhVodHRwOi8vby5wa2kuZ29vZy93cjIw
JQYIKwYBBQUHMAKGGWh0dHA6Ly9pLnBraS5nb29nL3dyMi5jcnQwGQYDVR0RBBIw
EIIOd3d3Lmdvb2dsZS5jb20wEwYDVR0gBAwwCjAIBgZngQwBAgEwNgYDVR0fBC8w
LTAroCmgJ4YlaHR0cDovL2MucGtpLmdvb2cvd3IyL0dTeVQxTjRQQnJnLmNybDCC
AQUGCisGAQQB1nkCBAIEgfYEgfMA8QB2AN3cyjSV1+EWBeeVMvrHn/g9HFDf2wA6
FBJ2Ciysu8gqAAABmXDN1WkAAAQDAEcwRQIgdH62Tub0woIi1sa+gQHvdMpNlfa6
WQgVn2Ov2CM0ktkCIQDyivdzECaAyaCq8GG+EtKWge4nLJ8FM++Q5WVQD9kCUgB3
AMz7D2qFcQll/pWbU87psnwi6YVcDZeNtql+VMD+TA2wAAABmXDN1WgAAAQDAEgw
RgIhAPNnKBAUSFiPjBYsu9A+UlI8ykhnoaZiFMhaDvrHGMKvAiEA02wfQcWu2753
HW54J/Iyeak0ni5z8jqayf1Rd5518Q0wDQYJKoZIhvcNAQELBQADggEBAAqYHEc6
CiVjrSPb0E4QSHYZIbqpHSYnOs8OQ7T54QM8yoMWOb4tWaMZGwdZayaL6ehyYKzS
8lhyxL4OPN9E51//mScXtemV4EbgrDm0fk3uH0gAX3oP+0DZH4X7t7L9aO8nalSl
KGJvEoHrphu2HbkAJY9OUqUo804OjXHeiY3FLUkoER7hb89w1qcaWxjRrVfflJ/Q
0pJCjtltJFSBTZbM6t0Y0uir9/XNPHcec4nMSyp3W/UEmcAoKc3kDJrT6CE2l2lI
Dd4Zns+bUA5A9z1Qy5c9MKX6I3rsHmUNUhGRz/lCyJDdc6UNoGKPmilI98JSRZYY
tXHHbX1dudpKfHM=
-----END CERTIFICATE-----
`

// fakeMISP is an in-memory misp.API implementation backing the handler tests.
// It is seeded with one fully populated event and a pair of feeds, and injects
// classified errors through the err* fields.
type fakeMISP struct {
	version    *misp.VersionInfo
	events     map[string]*misp.Event
	searchHits []misp.Event
	attributes []misp.Attribute
	feeds      []misp.Feed
	nextAttrID int

	connectErr error
	createErr  error
	searchErr  error
	addErr     error
}

var _ misp.API = (*fakeMISP)(nil)

func newFakeMISP() *fakeMISP {
	event42 := &misp.Event{
		ID:            "42",
		UUID:          "5bd591f2-7a3c-4b0e-9d2a-b1e6c79a0f11",
		Info:          "Phishing campaign targeting finance",
		Date:          "2026-08-20",
		ThreatLevelID: "1",
		Distribution:  "1",
		Analysis:      "1",
		Published:     true,
		Timestamp:     "1787000000",
		OrgID:         "1",
		OrgcID:        "1",
		Org:           &misp.Org{ID: "1", Name: "CIRCL"},
		Tags:          []misp.Tag{{Name: "tlp:amber"}, {Name: "type:phishing"}},
		Attributes: []misp.Attribute{
			{ID: "501", EventID: "42", Type: "ip-dst", Category: "Network activity", Value: "198.51.100.7", ToIDS: true, Distribution: "5"},
			{ID: "502", EventID: "42", Type: "sha256", Category: "Payload delivery", Value: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Comment: "dropper hash", Distribution: "5"},
		},
	}

	event43 := misp.Event{
		ID:            "43",
		UUID:          "9c0f1a6e-2d44-4f7b-8a31-57e0d2c4ab90",
		Info:          "Commodity malware sighting",
		Date:          "2026-08-28",
		ThreatLevelID: "2",
		Distribution:  "1",
		Analysis:      "0",
		Timestamp:     "1786000000",
	}

	return &fakeMISP{
		version: &misp.VersionInfo{
			Version:      "2.4.190",
			PermSync:     true,
			PermSighting: true,
		},
		events:     map[string]*misp.Event{"42": event42},
		searchHits: []misp.Event{*event42, event43},
		attributes: append([]misp.Attribute(nil), event42.Attributes...),
		feeds: []misp.Feed{
			{ID: "1", Name: "CIRCL OSINT Feed", Provider: "CIRCL", URL: "https://www.circl.lu/doc/misp/feed-osint", SourceFormat: "misp", Enabled: true, CachingEnabled: true},
			{ID: "2", Name: "Botvrij.eu Data", Provider: "Botvrij.eu", SourceFormat: "misp", Enabled: false},
		},
		nextAttrID: 1000,
	}
}

// enumString renders an optional enum pointer the way MISP serializes it.
func enumString(p *int, def int) string {
	if p == nil {
		return strconv.Itoa(def)
	}
	return strconv.Itoa(*p)
}

func (f *fakeMISP) TestConnection(ctx context.Context) (*misp.VersionInfo, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.version, nil
}

func (f *fakeMISP) GetVersion(ctx context.Context) (*misp.VersionInfo, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.version, nil
}

func (f *fakeMISP) CreateEvent(ctx context.Context, req misp.CreateEventRequest) (*misp.Event, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	date := req.Date
	if date == "" {
		date = time.Now().Format(misp.DateLayout)
	}

	event := &misp.Event{
		ID:            "101",
		UUID:          "0f7a2b1c-90ad-4de3-a1b2-3c4d5e6f7a80",
		Info:          req.Info,
		Date:          date,
		Distribution:  enumString(req.Distribution, misp.DistributionCommunity),
		ThreatLevelID: enumString(req.ThreatLevelID, misp.ThreatLevelLow),
		Analysis:      enumString(req.Analysis, misp.AnalysisInitial),
	}
	for _, tag := range req.Tags {
		event.Tags = append(event.Tags, misp.Tag{Name: tag})
	}
	f.events[event.ID] = event
	return event, nil
}

func (f *fakeMISP) GetEvent(ctx context.Context, eventID string) (*misp.Event, error) {
	event, ok := f.events[eventID]
	if !ok {
		return nil, &misp.Error{
			Kind:   misp.KindNotFound,
			Op:     "misp: get event",
			Detail: fmt.Sprintf("event %s does not exist", eventID),
		}
	}
	return event, nil
}

func (f *fakeMISP) SearchEvents(ctx context.Context, req misp.EventSearchRequest) ([]misp.Event, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	var hits []misp.Event
	for _, event := range f.searchHits {
		if req.ThreatLevel > 0 && event.ThreatLevelID != strconv.Itoa(req.ThreatLevel) {
			continue
		}
		hits = append(hits, event)
	}
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

func (f *fakeMISP) AddAttribute(ctx context.Context, eventID string, payload misp.AttributePayload) (*misp.Attribute, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	if _, ok := f.events[eventID]; !ok {
		return nil, &misp.Error{
			Kind:   misp.KindNotFound,
			Op:     "misp: add attribute",
			Detail: fmt.Sprintf("event %s does not exist", eventID),
		}
	}

	f.nextAttrID++
	attr := misp.Attribute{
		ID:           strconv.Itoa(f.nextAttrID),
		EventID:      eventID,
		Type:         payload.Type,
		Category:     payload.Category,
		Value:        payload.Value,
		ToIDS:        misp.Flag(payload.ToIDS),
		Comment:      payload.Comment,
		Distribution: enumString(payload.Distribution, misp.DistributionInherit),
	}
	f.attributes = append(f.attributes, attr)
	return &attr, nil
}

func (f *fakeMISP) SearchAttributes(ctx context.Context, req misp.AttributeSearchRequest) ([]misp.Attribute, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	var hits []misp.Attribute
	for _, attr := range f.attributes {
		if req.EventID != "" && attr.EventID != req.EventID {
			continue
		}
		if req.Type != "" && attr.Type != req.Type {
			continue
		}
		if req.Category != "" && attr.Category != req.Category {
			continue
		}
		hits = append(hits, attr)
	}
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

func (f *fakeMISP) ListFeeds(ctx context.Context) ([]misp.Feed, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.feeds, nil
}

func (f *fakeMISP) Metrics() misp.MetricsSnapshot {
	return misp.MetricsSnapshot{
		Requests:       7,
		Failures:       1,
		FailuresByKind: map[string]uint64{"transport error": 1},
		LastRequest:    time.Now().UTC(),
		LastError:      "dial tcp 192.0.2.1:443: connection refused",
	}
}

// testServerTools wraps the production tool catalog with a fake client and the
// given configuration, the same way the ServerBuilder binds them at startup.
func testServerTools(config *Config, client misp.API) []server.ServerTool {
	tools, toolsWithClient, toolsWithConfig := createTools()

	var serverTools []server.ServerTool
	for _, td := range tools {
		serverTools = append(serverTools, server.ServerTool{Tool: td.Tool, Handler: td.Handler})
	}
	for _, td := range toolsWithClient {
		handler := td.Handler
		serverTools = append(serverTools, server.ServerTool{
			Tool: td.Tool,
			Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handler(ctx, request, client)
			},
		})
	}
	for _, td := range toolsWithConfig {
		handler := td.Handler
		serverTools = append(serverTools, server.ServerTool{
			Tool: td.Tool,
			Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handler(ctx, request, config, client)
			},
		})
	}
	return serverTools
}

func resultText(result *mcp.CallToolResult) string {
	content := ""
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			content += tc.Text
		}
	}
	return content
}

func TestMCPTools(t *testing.T) {
	t.Setenv("MISP_MCP_CONFIG_FILE", "")
	t.Setenv("MISP_AI_APIKEY", "")

	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	config.AI.APIKey = ""

	fake := newFakeMISP()
	certData := base64.StdEncoding.EncodeToString([]byte(testCertPEM))

	srv := mcptest.NewUnstartedServer(t)
	srv.AddTools(testServerTools(config, fake)...)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	client := srv.Client()

	tests := []struct {
		name           string
		toolName       string
		args           map[string]any
		expectError    bool
		expectContains []string
	}{
		{
			name:           "check_connection reports instance version",
			toolName:       "check_connection",
			args:           map[string]any{},
			expectContains: []string{"connected and authenticated", "2.4.190"},
		},
		{
			name:           "get_version reports permissions",
			toolName:       "get_version",
			args:           map[string]any{},
			expectContains: []string{"MISP Instance Version", "Galaxy Editor: false", "Sync:          true"},
		},
		{
			name:     "create_event with tags",
			toolName: "create_event",
			args: map[string]any{
				"info":            "Suspicious C2 infrastructure",
				"threat_level_id": 1,
				"tags":            "tlp:amber, type:c2",
			},
			expectContains: []string{"Event Created", "Event ID: 101", "Threat Level: High", "tlp:amber", "Next step: attach indicators"},
		},
		{
			name:           "create_event missing info",
			toolName:       "create_event",
			args:           map[string]any{},
			expectError:    true,
			expectContains: []string{"required"},
		},
		{
			name:     "get_event with attributes",
			toolName: "get_event",
			args: map[string]any{
				"event_id": "42",
			},
			expectContains: []string{
				"Event 42: Phishing campaign targeting finance",
				"Organisation: CIRCL",
				"Threat Level: High",
				"Attributes (2):",
				"198.51.100.7",
				"[IDS]",
				"# dropper hash",
			},
		},
		{
			name:     "get_event header only",
			toolName: "get_event",
			args: map[string]any{
				"event_id":           "42",
				"include_attributes": false,
			},
			expectContains: []string{"Published: true", "tlp:amber, type:phishing"},
		},
		{
			name:     "get_event unknown id",
			toolName: "get_event",
			args: map[string]any{
				"event_id": "999",
			},
			expectError:    true,
			expectContains: []string{"not found", "999"},
		},
		{
			name:           "get_event missing event_id",
			toolName:       "get_event",
			args:           map[string]any{},
			expectError:    true,
			expectContains: []string{"required"},
		},
		{
			name:     "search_events finds seeded events",
			toolName: "search_events",
			args: map[string]any{
				"days_back": 30,
			},
			expectContains: []string{
				"Event Search Results (2 found, limit 10)",
				"Phishing campaign targeting finance",
				"Commodity malware sighting",
				"[P] = published",
			},
		},
		{
			name:     "search_events clamps oversized limit",
			toolName: "search_events",
			args: map[string]any{
				"limit": 500,
			},
			expectContains: []string{"limit 50)"},
		},
		{
			name:     "search_events without matches",
			toolName: "search_events",
			args: map[string]any{
				"threat_level": 3,
			},
			expectContains: []string{"No events matched the given filters"},
		},
		{
			name:     "add_attribute with common type",
			toolName: "add_attribute",
			args: map[string]any{
				"event_id":       "42",
				"attribute_type": "ip-dst",
				"value":          "203.0.113.10",
				"category":       "Network activity",
				"to_ids":         true,
				"comment":        "C2 callback",
			},
			expectContains: []string{
				"Attribute Added",
				"Type: ip-dst",
				"To IDS: true",
				"Distribution: Inherit from Event",
				"Comment: C2 callback",
			},
		},
		{
			name:     "add_attribute warns on uncommon type",
			toolName: "add_attribute",
			args: map[string]any{
				"event_id":       "42",
				"attribute_type": "frobnicator",
				"value":          "whatever",
				"category":       "Network activity",
			},
			expectContains: []string{"Attribute Added", "not in the common vocabulary"},
		},
		{
			name:     "add_attribute missing value",
			toolName: "add_attribute",
			args: map[string]any{
				"event_id":       "42",
				"attribute_type": "ip-dst",
				"category":       "Network activity",
			},
			expectError:    true,
			expectContains: []string{"required"},
		},
		{
			name:     "add_attribute to unknown event",
			toolName: "add_attribute",
			args: map[string]any{
				"event_id":       "999",
				"attribute_type": "ip-dst",
				"value":          "203.0.113.10",
				"category":       "Network activity",
			},
			expectError:    true,
			expectContains: []string{"not found"},
		},
		{
			name:     "get_event_attributes lists all",
			toolName: "get_event_attributes",
			args: map[string]any{
				"event_id": "42",
			},
			expectContains: []string{
				"Attributes of Event 42", "sha256", "198.51.100.7",
				"By type:", "ip-dst: 1", "sha256: 1",
			},
		},
		{
			name:     "get_event_attributes with type filter",
			toolName: "get_event_attributes",
			args: map[string]any{
				"event_id":       "42",
				"attribute_type": "sha256",
			},
			expectContains: []string{"Type filter: sha256", "(1 found"},
		},
		{
			name:     "get_event_attributes without matches",
			toolName: "get_event_attributes",
			args: map[string]any{
				"event_id":       "42",
				"attribute_type": "md5",
			},
			expectContains: []string{"No attributes matched"},
		},
		{
			name:     "add_certificate_attributes from base64",
			toolName: "add_certificate_attributes",
			args: map[string]any{
				"event_id":    "42",
				"certificate": certData,
			},
			expectContains: []string{
				"Certificate Observables",
				"www.google.com",
				"x509-fingerprint-sha256",
				"x509-fingerprint-md5",
				"Summary: 3 of 3 attributes added to event 42.",
			},
		},
		{
			name:     "add_certificate_attributes with unreadable input",
			toolName: "add_certificate_attributes",
			args: map[string]any{
				"event_id":    "42",
				"certificate": "not-a-certificate!",
			},
			expectError:    true,
			expectContains: []string{"failed to read certificate"},
		},
		{
			name:     "add_certificate_attributes with undecodable data",
			toolName: "add_certificate_attributes",
			args: map[string]any{
				"event_id":    "42",
				"certificate": base64.StdEncoding.EncodeToString([]byte("garbage")),
			},
			expectError:    true,
			expectContains: []string{"validation error"},
		},
		{
			name:           "list_attribute_types all groups",
			toolName:       "list_attribute_types",
			args:           map[string]any{},
			expectContains: []string{"Common MISP Attribute Types", "Network:", "ip-dst", "Standard Categories:"},
		},
		{
			name:     "list_attribute_types single group",
			toolName: "list_attribute_types",
			args: map[string]any{
				"category": "Files",
			},
			expectContains: []string{"Common MISP Attribute Types - Files", "sha256"},
		},
		{
			name:     "list_attribute_types unknown group",
			toolName: "list_attribute_types",
			args: map[string]any{
				"category": "Gadgets",
			},
			expectError:    true,
			expectContains: []string{"unknown type group"},
		},
		{
			name:           "get_resource_usage markdown",
			toolName:       "get_resource_usage",
			args:           map[string]any{},
			expectContains: []string{"# Resource Usage Report", "## MISP Client", "METRIC"},
		},
		{
			name:     "get_resource_usage json",
			toolName: "get_resource_usage",
			args: map[string]any{
				"format":   "json",
				"detailed": true,
			},
			expectContains: []string{`"memory_usage"`, `"misp_client"`, `"detailed_memory"`},
		},
		{
			name:     "analyze_event_with_ai without api key",
			toolName: "analyze_event_with_ai",
			args: map[string]any{
				"event_id": "42",
			},
			expectContains: []string{
				"No AI API key configured",
				"=== MISP EVENT ===",
				"Analysis Prompt Ready",
			},
		},
		{
			name:     "analyze_event_with_ai with focus",
			toolName: "analyze_event_with_ai",
			args: map[string]any{
				"event_id": "42",
				"focus":    "attribution",
			},
			expectContains: []string{"AI Collaborative Analysis (attribution)", "attribution"},
		},
		{
			name:     "analyze_event_with_ai unknown event",
			toolName: "analyze_event_with_ai",
			args: map[string]any{
				"event_id": "999",
			},
			expectError:    true,
			expectContains: []string{"not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{
				Params: mcp.CallToolParams{
					Name:      tt.toolName,
					Arguments: tt.args,
				},
			}

			result, err := client.CallTool(context.Background(), req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil {
				t.Fatal("expected result but got nil")
			}

			if result.IsError != tt.expectError {
				t.Errorf("expected IsError=%t, got %t. Result: %s", tt.expectError, result.IsError, resultText(result))
			}

			content := resultText(result)
			for _, expected := range tt.expectContains {
				if !strings.Contains(content, expected) {
					t.Errorf("expected result to contain %q, but it didn't. Result: %s", expected, content)
				}
			}
		})
	}
}

func TestGetEventTruncatesAttributeList(t *testing.T) {
	fake := newFakeMISP()

	big := &misp.Event{
		ID:            "77",
		Info:          "Bulk sighting import",
		Date:          "2026-08-29",
		ThreatLevelID: "3",
		Distribution:  "1",
		Analysis:      "0",
		Timestamp:     "1787100000",
		Org:           &misp.Org{ID: "1", Name: "CIRCL"},
	}
	for i := range 25 {
		big.Attributes = append(big.Attributes, misp.Attribute{
			ID:       fmt.Sprintf("9%02d", i),
			Type:     "ip-dst",
			Category: "Network activity",
			Value:    fmt.Sprintf("203.0.113.%d", i),
		})
	}
	fake.events["77"] = big

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "get_event",
			Arguments: map[string]any{
				"event_id":           "77",
				"include_attributes": true,
			},
		},
	}

	result, err := handleGetEvent(context.Background(), req, fake)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := resultText(result)

	if !strings.Contains(content, "Attributes (25):") {
		t.Errorf("expected the full attribute count in the header. Result: %s", content)
	}
	if got := strings.Count(content, "  ["); got != getEventAttributeDisplayLimit {
		t.Errorf("expected %d attribute lines, got %d. Result: %s", getEventAttributeDisplayLimit, got, content)
	}
	if !strings.Contains(content, "... and 5 more. Use get_event_attributes") {
		t.Errorf("expected a pointer to get_event_attributes for the remainder. Result: %s", content)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("MISP_MCP_CONFIG_FILE", "/nonexistent/config.json")

	err := Run("1.0.0-test")
	if err == nil {
		t.Fatal("expected Run() to return an error with invalid config file")
	}
	if !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("expected error to contain 'failed to load config', got: %v", err)
	}
}

func TestRun_MissingMISPURL(t *testing.T) {
	t.Setenv("MISP_MCP_CONFIG_FILE", "")
	t.Setenv("MISP_URL", "")
	t.Setenv("MISP_API_KEY", "")

	err := Run("1.0.0-test")
	if err == nil {
		t.Fatal("expected Run() to return an error without MISP_URL")
	}
	if !strings.Contains(err.Error(), "MISP_URL is required") {
		t.Errorf("expected error to name MISP_URL, got: %v", err)
	}
}

func TestServerBuilder_RequiresClient(t *testing.T) {
	deps, err := DefaultServerDependencies("1.0.0-test")
	if err != nil {
		t.Fatalf("DefaultServerDependencies failed: %v", err)
	}

	_, err = NewServerBuilder().
		WithVersion("1.0.0-test").
		WithToolsWithClient(deps.ToolsWithClient...).
		Build()
	if err == nil {
		t.Fatal("expected Build() to fail without a MISP client")
	}
	if !strings.Contains(err.Error(), "MISP client is required") {
		t.Errorf("expected client error, got: %v", err)
	}
}

func TestServerBuilder_Build(t *testing.T) {
	t.Setenv("MISP_MCP_CONFIG_FILE", "")

	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	deps, err := DefaultServerDependencies("1.0.0-test")
	if err != nil {
		t.Fatalf("DefaultServerDependencies failed: %v", err)
	}

	fake := newFakeMISP()
	s, err := NewServerBuilder().
		WithConfig(config).
		WithEmbed(deps.Embed).
		WithVersion("1.0.0-test").
		WithClient(fake).
		WithTools(deps.Tools...).
		WithToolsWithClient(deps.ToolsWithClient...).
		WithToolsWithConfig(deps.ToolsWithConfig...).
		WithResources(deps.Resources...).
		WithResourcesWithConfig(deps.ResourcesWithConfig...).
		WithResourcesWithClient(deps.ResourcesWithClient...).
		WithPrompts(deps.Prompts...).
		WithInstructions(deps.Instructions).
		WithPopulate().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s == nil {
		t.Fatal("expected a server instance")
	}

	// WithPopulate filled the metadata cache backing the status resources.
	tools, err := loadToolsConfig()
	if err != nil {
		t.Fatalf("loadToolsConfig failed: %v", err)
	}
	if len(tools.AllTools) != 11 {
		t.Errorf("expected 11 cached tools, got %d", len(tools.AllTools))
	}

	prompts, err := loadPromptsConfig()
	if err != nil {
		t.Fatalf("loadPromptsConfig failed: %v", err)
	}
	if len(prompts) != 4 {
		t.Errorf("expected 4 cached prompts, got %d", len(prompts))
	}

	resources, err := loadResourcesConfig()
	if err != nil {
		t.Fatalf("loadResourcesConfig failed: %v", err)
	}
	if len(resources) != 8 {
		t.Errorf("expected 8 cached resources, got %d", len(resources))
	}

	// The version and status resources read the populated cache.
	contents, err := handleVersionResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleVersionResource failed: %v", err)
	}
	versionDoc := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(versionDoc, serverName) {
		t.Errorf("version resource missing server name: %s", versionDoc)
	}
	if !strings.Contains(versionDoc, "search_events") {
		t.Errorf("version resource missing tool catalog: %s", versionDoc)
	}

	contents, err = handleStatusResource(context.Background(), mcp.ReadResourceRequest{}, fake)
	if err != nil {
		t.Fatalf("handleStatusResource failed: %v", err)
	}
	statusDoc := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(statusDoc, `"status": "healthy"`) {
		t.Errorf("status resource missing health field: %s", statusDoc)
	}
	if !strings.Contains(statusDoc, `"failures": 1`) {
		t.Errorf("status resource missing client counters: %s", statusDoc)
	}
}

func TestDefaultServerDependencies(t *testing.T) {
	deps, err := DefaultServerDependencies("1.0.0-test")
	if err != nil {
		t.Fatalf("DefaultServerDependencies failed: %v", err)
	}

	if len(deps.Tools) != 1 {
		t.Errorf("expected 1 local tool, got %d", len(deps.Tools))
	}
	if len(deps.ToolsWithClient) != 9 {
		t.Errorf("expected 9 client-bound tools, got %d", len(deps.ToolsWithClient))
	}
	if len(deps.ToolsWithConfig) != 1 {
		t.Errorf("expected 1 config-bound tool, got %d", len(deps.ToolsWithConfig))
	}
	if len(deps.Resources) != 2 || len(deps.ResourcesWithConfig) != 1 || len(deps.ResourcesWithClient) != 5 {
		t.Errorf("unexpected resource split: %d/%d/%d",
			len(deps.Resources), len(deps.ResourcesWithConfig), len(deps.ResourcesWithClient))
	}
	if len(deps.Prompts) != 4 {
		t.Errorf("expected 4 prompts, got %d", len(deps.Prompts))
	}
	if deps.Instructions == "" {
		t.Error("expected rendered instructions")
	}
	for _, tool := range []string{"create_event", "search_events", "add_attribute"} {
		if !strings.Contains(deps.Instructions, tool) {
			t.Errorf("instructions missing tool %s", tool)
		}
	}
	if !deps.PopulateCache {
		t.Error("expected PopulateCache to default to true")
	}
}

func TestRecentEventsHandler(t *testing.T) {
	fake := newFakeMISP()
	handler := recentEventsHandler(7)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{}, fake)
	if err != nil {
		t.Fatalf("recentEventsHandler failed: %v", err)
	}

	text := contents[0].(mcp.TextResourceContents).Text
	var document struct {
		Timeframe string           `json:"timeframe"`
		Count     int              `json:"count"`
		Events    []map[string]any `json:"events"`
		Summary   map[string]int   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(text), &document); err != nil {
		t.Fatalf("resource is not valid JSON: %v", err)
	}

	if document.Timeframe != "7 days" {
		t.Errorf("expected timeframe '7 days', got %q", document.Timeframe)
	}
	if document.Count != 2 {
		t.Errorf("expected 2 events, got %d", document.Count)
	}
	if document.Summary["published"] != 1 || document.Summary["high"] != 1 || document.Summary["medium"] != 1 {
		t.Errorf("unexpected summary: %v", document.Summary)
	}
	// Newest first by timestamp.
	if len(document.Events) != 2 {
		t.Fatalf("expected 2 event entries, got %d", len(document.Events))
	}
	entry := document.Events[0]
	if entry["id"] != "42" {
		t.Errorf("expected event 42 first, got %v", entry["id"])
	}

	// Per-event entries carry the id/name enum objects and the raw
	// organisation and timestamp fields for programmatic consumers.
	threatLevel, ok := entry["threat_level"].(map[string]any)
	if !ok {
		t.Fatalf("expected threat_level object, got %T", entry["threat_level"])
	}
	if threatLevel["id"] != "1" || threatLevel["name"] != "High" {
		t.Errorf("unexpected threat_level: %v", threatLevel)
	}
	analysis, ok := entry["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("expected analysis object, got %T", entry["analysis"])
	}
	if analysis["id"] != "1" || analysis["name"] != "Ongoing" {
		t.Errorf("unexpected analysis: %v", analysis)
	}
	distribution, ok := entry["distribution"].(map[string]any)
	if !ok {
		t.Fatalf("expected distribution object, got %T", entry["distribution"])
	}
	if distribution["id"] != "1" || distribution["name"] != "This Community Only" {
		t.Errorf("unexpected distribution: %v", distribution)
	}
	if entry["timestamp"] != "1787000000" {
		t.Errorf("expected timestamp 1787000000, got %v", entry["timestamp"])
	}
	if entry["org_id"] != "1" || entry["orgc_id"] != "1" {
		t.Errorf("expected org_id and orgc_id, got %v / %v", entry["org_id"], entry["orgc_id"])
	}
}

func TestHandleFeedsResource(t *testing.T) {
	fake := newFakeMISP()

	contents, err := handleFeedsResource(context.Background(), mcp.ReadResourceRequest{}, fake)
	if err != nil {
		t.Fatalf("handleFeedsResource failed: %v", err)
	}

	text := contents[0].(mcp.TextResourceContents).Text
	for _, expected := range []string{
		"Configured MISP Feeds (2)",
		"CIRCL OSINT Feed (enabled, cached)",
		"Botvrij.eu Data (disabled)",
		"Provider: CIRCL",
	} {
		if !strings.Contains(text, expected) {
			t.Errorf("expected feeds resource to contain %q, got: %s", expected, text)
		}
	}
}

func TestHandleConfigResource_RedactsSecrets(t *testing.T) {
	config := &Config{}
	config.MISP.URL = "https://misp.example.org"
	config.MISP.APIKey = "super-secret-automation-key"
	config.Server.Host = "localhost"
	config.Server.Port = 8000
	config.Server.Transport = transportStdio
	config.AI.APIKey = "another-secret"

	contents, err := handleConfigResource(context.Background(), mcp.ReadResourceRequest{}, config)
	if err != nil {
		t.Fatalf("handleConfigResource failed: %v", err)
	}

	text := contents[0].(mcp.TextResourceContents).Text
	if strings.Contains(text, "super-secret-automation-key") || strings.Contains(text, "another-secret") {
		t.Errorf("config resource leaked a secret: %s", text)
	}
	if !strings.Contains(text, "[redacted]") {
		t.Errorf("expected redaction marker in config resource: %s", text)
	}
	if !strings.Contains(text, "https://misp.example.org") {
		t.Errorf("expected MISP URL in config resource: %s", text)
	}
}

func TestHandleUsageDocsResource(t *testing.T) {
	contents, err := handleUsageDocsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleUsageDocsResource failed: %v", err)
	}

	doc := contents[0].(mcp.TextResourceContents)
	if doc.URI != "docs://misp-usage" {
		t.Errorf("unexpected URI: %s", doc.URI)
	}
	if doc.MIMEType != "text/markdown" {
		t.Errorf("unexpected MIME type: %s", doc.MIMEType)
	}
	if len(doc.Text) == 0 {
		t.Error("expected embedded usage documentation")
	}
}

func TestPromptHandlers(t *testing.T) {
	tests := []struct {
		name    string
		handler func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
		args    map[string]string
		expect  string
	}{
		{
			name:    "incident triage with event id",
			handler: handleIncidentTriagePrompt,
			args:    map[string]string{"event_id": "42"},
			expect:  "42",
		},
		{
			name:    "ioc enrichment",
			handler: handleIOCEnrichmentPrompt,
			args:    map[string]string{"indicator": "198.51.100.7", "indicator_type": "ip-dst"},
			expect:  "198.51.100.7",
		},
		{
			name:    "threat hunting defaults",
			handler: handleThreatHuntingPrompt,
			args:    map[string]string{},
			expect:  "30",
		},
		{
			name:    "event reporting for executives",
			handler: handleEventReportingPrompt,
			args:    map[string]string{"event_id": "42", "audience": "executive"},
			expect:  "executive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.GetPromptRequest{}
			req.Params.Arguments = tt.args

			result, err := tt.handler(context.Background(), req)
			if err != nil {
				t.Fatalf("prompt handler failed: %v", err)
			}
			if len(result.Messages) == 0 {
				t.Fatal("expected prompt messages")
			}

			var combined string
			for _, msg := range result.Messages {
				if tc, ok := msg.Content.(mcp.TextContent); ok {
					combined += tc.Text
				}
			}
			if !strings.Contains(combined, tt.expect) {
				t.Errorf("expected prompt to contain %q, got: %s", tt.expect, combined)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MISP_MCP_CONFIG_FILE", "")

	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if config.Server.Transport != transportStdio {
		t.Errorf("expected default transport stdio, got %q", config.Server.Transport)
	}
	if config.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", config.Server.Port)
	}
	if !config.MISP.VerifySSL {
		t.Error("expected SSL verification enabled by default")
	}
	if config.Defaults.SearchLimit != 10 || config.Defaults.AttributeLimit != 20 {
		t.Errorf("unexpected default limits: %d/%d", config.Defaults.SearchLimit, config.Defaults.AttributeLimit)
	}
	if config.AI.Endpoint == "" || config.AI.Model == "" {
		t.Error("expected AI endpoint and model defaults")
	}
}

func TestLoadConfig_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "misp": {"url": "https://misp.example.org", "apiKey": "test-key", "verifySsl": false},
  "server": {"transport": "http", "port": 9000},
  "defaults": {"searchLimit": 25}
}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if config.MISP.URL != "https://misp.example.org" {
		t.Errorf("unexpected URL: %s", config.MISP.URL)
	}
	if config.MISP.VerifySSL {
		t.Error("expected SSL verification disabled")
	}
	if config.Server.Transport != transportHTTP || config.Server.Port != 9000 {
		t.Errorf("unexpected server settings: %s/%d", config.Server.Transport, config.Server.Port)
	}
	if config.Defaults.SearchLimit != 25 {
		t.Errorf("unexpected search limit: %d", config.Defaults.SearchLimit)
	}
	// Untouched sections keep their defaults.
	if config.Defaults.AttributeLimit != 20 {
		t.Errorf("expected default attribute limit, got %d", config.Defaults.AttributeLimit)
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
misp:
  url: https://misp.example.org
  apiKey: test-key
server:
  transport: http
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if config.MISP.URL != "https://misp.example.org" {
		t.Errorf("unexpected URL: %s", config.MISP.URL)
	}
	if config.Server.Transport != transportHTTP {
		t.Errorf("unexpected transport: %s", config.Server.Transport)
	}
}

func TestLoadConfig_SchemaRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"mispp": {"url": "x"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := loadConfig(path)
	if err == nil {
		t.Fatal("expected schema validation to reject unknown key")
	}
	if !strings.Contains(err.Error(), "invalid config file") {
		t.Errorf("expected schema error, got: %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MISP_MCP_CONFIG_FILE", "")
	t.Setenv("MISP_URL", "https://misp.internal")
	t.Setenv("MISP_API_KEY", "env-key")
	t.Setenv("MISP_VERIFY_SSL", "false")
	t.Setenv("MCP_SERVER_PORT", "9999")
	t.Setenv("MISP_MCP_TRANSPORT", "HTTP")

	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if config.MISP.URL != "https://misp.internal" || config.MISP.APIKey != "env-key" {
		t.Errorf("env overrides not applied: %s/%s", config.MISP.URL, config.MISP.APIKey)
	}
	if config.MISP.VerifySSL {
		t.Error("expected MISP_VERIFY_SSL=false to apply")
	}
	if config.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", config.Server.Port)
	}
	if config.Server.Transport != transportHTTP {
		t.Errorf("expected transport normalized to http, got %q", config.Server.Transport)
	}
}

func TestLoadConfig_BadEnvValue(t *testing.T) {
	t.Setenv("MISP_MCP_CONFIG_FILE", "")
	t.Setenv("MISP_VERIFY_SSL", "banana")

	_, err := loadConfig("")
	if err == nil {
		t.Fatal("expected error for unparseable MISP_VERIFY_SSL")
	}
	if !strings.Contains(err.Error(), "MISP_VERIFY_SSL") {
		t.Errorf("expected error to name the variable, got: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		config := &Config{}
		config.MISP.URL = "https://misp.example.org"
		config.MISP.APIKey = "test-key"
		config.Server.Port = 8000
		config.Server.Transport = transportStdio
		return config
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:        "missing URL",
			mutate:      func(c *Config) { c.MISP.URL = "" },
			errContains: "MISP_URL is required",
		},
		{
			name:        "non-http scheme",
			mutate:      func(c *Config) { c.MISP.URL = "ftp://misp.example.org" },
			errContains: "absolute http(s) URL",
		},
		{
			name:        "missing API key",
			mutate:      func(c *Config) { c.MISP.APIKey = "" },
			errContains: "MISP_API_KEY is required",
		},
		{
			name:        "port out of range",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			errContains: "MCP_SERVER_PORT",
		},
		{
			name:        "unknown transport",
			mutate:      func(c *Config) { c.Server.Transport = "carrier-pigeon" },
			errContains: "MISP_MCP_TRANSPORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error to contain %q, got: %v", tt.errContains, err)
			}
		})
	}
}

func TestMispErrorMessage(t *testing.T) {
	err := &misp.Error{
		Kind:   misp.KindAuthentication,
		Op:     "misp: test connection",
		Detail: "the MISP API key was rejected",
	}
	msg := mispErrorMessage(err)
	if msg != "authentication error: the MISP API key was rejected" {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestClampLimit(t *testing.T) {
	if got := clampLimit(0, 1, 50); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := clampLimit(500, 1, 50); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
	if got := clampLimit(25, 1, 50); got != 25 {
		t.Errorf("expected 25, got %d", got)
	}
}

func TestSplitTags(t *testing.T) {
	tags := splitTags(" tlp:amber , type:phishing ,, ")
	if len(tags) != 2 || tags[0] != "tlp:amber" || tags[1] != "type:phishing" {
		t.Errorf("unexpected tags: %v", tags)
	}
	if got := splitTags(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}
