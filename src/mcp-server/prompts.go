// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// createPrompts creates and returns all MCP prompt definitions with their handlers
func createPrompts() []server.ServerPrompt {
	return []server.ServerPrompt{
		{
			Prompt: mcp.NewPrompt("incident-triage",
				mcp.WithPromptDescription("Guided triage workflow for a newly reported incident"),
				mcp.WithArgument("event_id",
					mcp.ArgumentDescription("Existing MISP event ID or UUID to triage (omit to start from scratch)"),
				),
				mcp.WithArgument("incident_summary",
					mcp.ArgumentDescription("One-line description of the incident when no event exists yet"),
				),
			),
			Handler: handleIncidentTriagePrompt,
		},
		{
			Prompt: mcp.NewPrompt("ioc-enrichment",
				mcp.WithPromptDescription("Enrich an indicator of compromise against the MISP instance"),
				mcp.WithArgument("indicator",
					mcp.ArgumentDescription("The indicator value to enrich, e.g. an IP, domain, or file hash"),
				),
				mcp.WithArgument("indicator_type",
					mcp.ArgumentDescription("MISP attribute type of the indicator, e.g. 'ip-dst' or 'sha256'"),
				),
			),
			Handler: handleIOCEnrichmentPrompt,
		},
		{
			Prompt: mcp.NewPrompt("threat-hunting",
				mcp.WithPromptDescription("Hunt for threat activity across recent MISP events"),
				mcp.WithArgument("days_back",
					mcp.ArgumentDescription("How many days of events to hunt across (default: 30)"),
				),
				mcp.WithArgument("tags",
					mcp.ArgumentDescription("Comma-separated tags to scope the hunt, e.g. 'ransomware,tlp:amber'"),
				),
			),
			Handler: handleThreatHuntingPrompt,
		},
		{
			Prompt: mcp.NewPrompt("event-reporting",
				mcp.WithPromptDescription("Produce a shareable report for a MISP event"),
				mcp.WithArgument("event_id",
					mcp.ArgumentDescription("MISP event ID or UUID to report on"),
				),
				mcp.WithArgument("audience",
					mcp.ArgumentDescription("Report audience: 'technical', 'management', or 'partners' (default: technical)"),
				),
			),
			Handler: handleEventReportingPrompt,
		},
	}
}
