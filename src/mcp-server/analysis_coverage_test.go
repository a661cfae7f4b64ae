// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
	"github.com/mark3labs/mcp-go/mcp"
)

func TestHandleAnalyzeEventWithAI_NoAPIKey(t *testing.T) {
	fake := newFakeMISP()

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "analyze_event_with_ai",
			Arguments: map[string]any{
				"event_id": "42",
				"focus":    "mitigation",
			},
		},
	}

	config := &Config{}
	config.AI.APIKey = ""

	result, err := handleAnalyzeEventWithAI(context.Background(), req, config, fake)
	if err != nil {
		t.Fatalf("handleAnalyzeEventWithAI returned error: %v", err)
	}

	content, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("expected text content result")
	}

	// Without an API key the prepared context is returned for direct use.
	if !strings.Contains(content.Text, "No AI API key") {
		t.Error("expected no API key warning")
	}
	if !strings.Contains(content.Text, "Phishing campaign targeting finance") {
		t.Error("result missing event info in prepared context")
	}
	if !strings.Contains(content.Text, "198.51.100.7") {
		t.Error("result missing event attributes in prepared context")
	}
	if !strings.Contains(content.Text, "mitigation") {
		t.Error("result missing the focused analysis instruction")
	}
}

func TestHandleAnalyzeEventWithAI_SamplingFails(t *testing.T) {
	fake := newFakeMISP()

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "analyze_event_with_ai",
			Arguments: map[string]any{
				"event_id": "42",
			},
		},
	}

	// Config with unreachable endpoint
	config := &Config{}
	config.AI.APIKey = "test-key"
	config.AI.Endpoint = "http://192.0.2.1:12345" // Test-Net-1 (reserved, unreachable)
	config.AI.Model = "test-model"
	config.AI.Timeout = 1
	config.AI.MaxTokens = 256

	result, err := handleAnalyzeEventWithAI(context.Background(), req, config, fake)

	// It should NOT return error, but return a ToolResult with the error message
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("expected text content")
	}

	if !strings.Contains(content.Text, "AI Analysis Request Failed") {
		t.Errorf("expected failure message, got: %s", content.Text)
	}
}

func TestBuildEventContext(t *testing.T) {
	fake := newFakeMISP()
	event, err := fake.GetEvent(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}

	eventContext := buildEventContext(event)

	for _, expected := range []string{
		"=== MISP EVENT ===",
		"Event 42: Phishing campaign targeting finance",
		"=== ATTRIBUTES (2) ===",
		"[IDS]",
		"# dropper hash",
		"Tags: tlp:amber, type:phishing",
	} {
		if !strings.Contains(eventContext, expected) {
			t.Errorf("expected event context to contain %q, got: %s", expected, eventContext)
		}
	}
}

func TestBuildEventContext_NoAttributes(t *testing.T) {
	fake := newFakeMISP()
	event, err := fake.CreateEvent(context.Background(), misp.CreateEventRequest{Info: "Bare event"})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	eventContext := buildEventContext(event)
	if !strings.Contains(eventContext, "(no attributes attached)") {
		t.Errorf("expected empty attribute marker, got: %s", eventContext)
	}
}

func TestGetAnalysisInstruction(t *testing.T) {
	tests := []struct {
		focus  string
		expect string
	}{
		{"attribution", "attribution"},
		{"impact", "impact"},
		{"mitigation", "mitigation"},
		{"general", "general analysis"},
		{"", "general analysis"},
		{"lateral movement", "lateral movement"},
	}

	for _, tt := range tests {
		instruction := getAnalysisInstruction(tt.focus)
		if !strings.Contains(instruction, tt.expect) {
			t.Errorf("focus %q: expected instruction to contain %q, got: %s", tt.focus, tt.expect, instruction)
		}
	}
}
