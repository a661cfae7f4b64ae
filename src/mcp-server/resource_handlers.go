// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/mcp-server/templates"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/version"
	"github.com/mark3labs/mcp-go/mcp"
)

// recentEventsLimit caps the number of events embedded in one recent-events
// resource document.
const recentEventsLimit = 50

// recentEventsHandler returns the handler for one events://recent/{days}
// window. The window is inclusive of the boundary day (see
// [misp.DateDaysAgo]); events are sorted newest first by timestamp and capped
// at [recentEventsLimit].
//
// The document shape is stable for programmatic consumers:
//
//	{
//	  "timeframe": "7 days",
//	  "date_from": "2026-08-24",
//	  "date_to": "2026-08-31",
//	  "count": 2,
//	  "events": [...],
//	  "summary": {"total": 2, "published": 1, "high": 0, ...}
//	}
func recentEventsHandler(days int) ResourceHandlerWithClient {
	return func(ctx context.Context, request mcp.ReadResourceRequest, mispClient misp.API) ([]mcp.ResourceContents, error) {
		events, err := mispClient.SearchEvents(ctx, misp.EventSearchRequest{
			Limit:    recentEventsLimit,
			DaysBack: days,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search recent events: %w", err)
		}

		// Newest first. MISP timestamps are Unix seconds serialized as
		// strings, so the raw values compare correctly by length then value;
		// sorting on the padded form keeps it simple.
		sort.SliceStable(events, func(i, j int) bool {
			a, b := events[i].Timestamp, events[j].Timestamp
			if len(a) != len(b) {
				return len(a) > len(b)
			}
			return a > b
		})

		summary := map[string]int{
			"total":              len(events),
			"published":          0,
			"high":               0,
			"medium":             0,
			"low":                0,
			"completed_analysis": 0,
		}

		entries := make([]map[string]any, 0, len(events))
		for _, event := range events {
			if event.Published {
				summary["published"]++
			}
			switch event.ThreatLevelID {
			case "1":
				summary["high"]++
			case "2":
				summary["medium"]++
			case "3":
				summary["low"]++
			}
			if event.Analysis == "2" {
				summary["completed_analysis"]++
			}

			entries = append(entries, map[string]any{
				"id":        event.ID,
				"uuid":      event.UUID,
				"info":      event.Info,
				"date":      event.Date,
				"timestamp": event.Timestamp,
				"org":       event.OrgName(),
				"org_id":    event.OrgID,
				"orgc_id":   event.OrgcID,
				"threat_level": map[string]any{
					"id":   event.ThreatLevelID,
					"name": misp.ThreatLevelName(event.ThreatLevelID),
				},
				"analysis": map[string]any{
					"id":   event.Analysis,
					"name": misp.AnalysisName(event.Analysis),
				},
				"distribution": map[string]any{
					"id":   event.Distribution,
					"name": misp.DistributionName(event.Distribution),
				},
				"published":       bool(event.Published),
				"attribute_count": event.NumAttributes(),
			})
		}

		document := map[string]any{
			"timeframe": fmt.Sprintf("%d days", days),
			"date_from": misp.DateDaysAgo(days),
			"date_to":   time.Now().Format(misp.DateLayout),
			"count":     len(events),
			"events":    entries,
			"summary":   summary,
		}

		jsonData, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal recent events: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      fmt.Sprintf("events://recent/%d", days),
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		}, nil
	}
}

// handleFeedsResource handles requests for the feed inventory resource.
// It lists the feed sources configured on the MISP instance as a plain-text
// report, marking which feeds are enabled and cached.
func handleFeedsResource(ctx context.Context, request mcp.ReadResourceRequest, mispClient misp.API) ([]mcp.ResourceContents, error) {
	feeds, err := mispClient.ListFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	text := fmt.Sprintf("Configured MISP Feeds (%d)\n\n", len(feeds))
	if len(feeds) == 0 {
		text += "No feeds are configured on this instance.\n"
	}
	for _, feed := range feeds {
		state := "disabled"
		if feed.Enabled {
			state = "enabled"
		}
		cached := ""
		if feed.CachingEnabled {
			cached = ", cached"
		}
		text += fmt.Sprintf("[%s] %s (%s%s)\n", feed.ID, feed.Name, state, cached)
		if feed.Provider != "" {
			text += fmt.Sprintf("      Provider: %s\n", feed.Provider)
		}
		if feed.URL != "" {
			text += fmt.Sprintf("      URL: %s\n", feed.URL)
		}
		if feed.SourceFormat != "" {
			text += fmt.Sprintf("      Format: %s\n", feed.SourceFormat)
		}
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "feeds://list",
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}

// handleConfigResource handles requests for the active configuration resource.
// It renders the running configuration as JSON with both API keys redacted,
// so clients can verify the connection target and limits without exposure.
func handleConfigResource(ctx context.Context, request mcp.ReadResourceRequest, config *Config) ([]mcp.ResourceContents, error) {
	redact := func(secret string) string {
		if secret == "" {
			return ""
		}
		return "[redacted]"
	}

	document := map[string]any{
		"misp": map[string]any{
			"url":            config.MISP.URL,
			"apiKey":         redact(config.MISP.APIKey),
			"verifySsl":      config.MISP.VerifySSL,
			"timeoutSeconds": config.MISP.Timeout,
		},
		"server": map[string]any{
			"host":      config.Server.Host,
			"port":      config.Server.Port,
			"transport": config.Server.Transport,
		},
		"defaults": map[string]any{
			"searchLimit":    config.Defaults.SearchLimit,
			"attributeLimit": config.Defaults.AttributeLimit,
		},
		"ai": map[string]any{
			"apiKey":   redact(config.AI.APIKey),
			"endpoint": config.AI.Endpoint,
			"model":    config.AI.Model,
			"timeout":  config.AI.Timeout,
		},
	}

	jsonData, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config resource: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "config://server",
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleVersionResource handles requests for version information resource.
// It provides server metadata including version, capabilities, and supported features.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP resource read request for version information
//
// Returns:
//   - A slice containing version and capability information as JSON content
//   - An error if JSON marshaling fails
//
// The resource includes server name, version, and the registered tools,
// resources, and prompts with their metadata. All capabilities are loaded
// from the metadata cache populated during server construction.
func handleVersionResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	// Load configurations dynamically
	prompts, err := loadPromptsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts config: %w", err)
	}

	tools, err := loadToolsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load tools config: %w", err)
	}

	resources, err := loadResourcesConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load resources config: %w", err)
	}

	versionInfo := map[string]any{
		"name":    serverName,
		"version": version.Version,
		"type":    "MCP Server",
		"capabilities": map[string]any{
			"tools":     tools.AllTools,
			"resources": resources,
			"prompts":   prompts,
		},
		"supportedTransports": []string{transportStdio, transportHTTP},
	}

	jsonData, err := json.MarshalIndent(versionInfo, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal version info: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "info://version",
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleUsageDocsResource handles requests for the MISP usage documentation resource.
// It serves the embedded reference covering attribute types, categories,
// enum values, and search window semantics.
func handleUsageDocsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	content, err := templates.MagicEmbed.ReadFile("misp-usage.md")
	if err != nil {
		return nil, fmt.Errorf("failed to read usage documentation template: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "docs://misp-usage",
			MIMEType: "text/markdown",
			Text:     string(content),
		},
	}, nil
}

// handleStatusResource handles requests for server status information resource.
// It provides current server health, capability counts, and the MISP client
// request counters.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP resource read request for server status
//   - mispClient: The authenticated MISP API handle, source of the counters
//
// Returns:
//   - A slice containing server status information as JSON content
//   - An error if JSON marshaling fails
func handleStatusResource(ctx context.Context, request mcp.ReadResourceRequest, mispClient misp.API) ([]mcp.ResourceContents, error) {
	prompts, err := loadPromptsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts config: %w", err)
	}

	tools, err := loadToolsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load tools config: %w", err)
	}

	resources, err := loadResourcesConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load resources config: %w", err)
	}

	metrics := mispClient.Metrics()
	mispStatus := map[string]any{
		"requests": metrics.Requests,
		"failures": metrics.Failures,
	}
	if len(metrics.FailuresByKind) > 0 {
		mispStatus["failures_by_kind"] = metrics.FailuresByKind
	}
	if !metrics.LastRequest.IsZero() {
		mispStatus["last_request"] = metrics.LastRequest.UTC().Format(time.RFC3339)
	}
	if metrics.LastError != "" {
		mispStatus["last_error"] = metrics.LastError
	}

	statusInfo := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"server":    serverName,
		"version":   version.Version,
		"capabilities": map[string]any{
			"tools":     len(tools.AllTools),
			"resources": len(resources),
			"prompts":   len(prompts),
		},
		"misp_client": mispStatus,
	}

	jsonData, err := json.MarshalIndent(statusInfo, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status info: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "status://server",
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
