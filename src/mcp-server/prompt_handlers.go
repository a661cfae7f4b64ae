// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleIncidentTriagePrompt handles the incident triage workflow prompt
func handleIncidentTriagePrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	eventID := request.Params.Arguments["event_id"]
	incidentSummary := request.Params.Arguments["incident_summary"]

	var messages []mcp.PromptMessage

	if eventID != "" {
		messages = []mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(fmt.Sprintf(`I'll help you triage MISP event %s.

Let's start by reviewing what is already recorded:`, eventID)),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`1. First, retrieve the event with its attributes.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`Use the "get_event" tool to see the event header, tags, and every attached indicator.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`2. Check whether the indicators appear in other recent events.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`Use the "search_events" tool with the event's tags and a wide days_back window to find related activity.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`3. Get an analytical assessment of the event.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`Use the "analyze_event_with_ai" tool to summarize the indicators, attribution signals, and recommended actions.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(`4. Based on the results, decide the threat level, update the analysis stage, and add any missing indicators with "add_attribute".`),
			),
		}
	} else {
		summary := incidentSummary
		if summary == "" {
			summary = "the reported incident"
		}
		messages = []mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(fmt.Sprintf(`I'll help you triage %s and record it in MISP.`, summary)),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`1. Verify connectivity first with the "check_connection" tool.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`2. Create a new event with the "create_event" tool. Choose a clear title, a threat level, and TLP tags matching how far the event may be shared.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleUser,
				mcp.NewTextContent(`3. Attach every known indicator with the "add_attribute" tool. Use "list_attribute_types" when unsure about a type or category name.`),
			),
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(`4. Once the indicators are in place, run "analyze_event_with_ai" to assess scope and decide the next escalation step.`),
			),
		}
	}

	return mcp.NewGetPromptResult(
		"Incident Triage Workflow",
		messages,
	), nil
}

// handleIOCEnrichmentPrompt handles the indicator enrichment prompt
func handleIOCEnrichmentPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	indicator := request.Params.Arguments["indicator"]
	indicatorType := request.Params.Arguments["indicator_type"]
	if indicatorType == "" {
		indicatorType = "unknown type"
	}

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(fmt.Sprintf(`I'll help you enrich the indicator %s (%s) against the MISP instance.`, indicator, indicatorType)),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`1. Search for recent events that could contain this indicator.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`Use the "search_events" tool with a 90-day window, then inspect promising hits with "get_event_attributes" filtered by the indicator's type.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`2. Check the configured feed sources for additional context.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`Read the "feeds://list" resource to see which external sources the instance already correlates against.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(`Key things to establish:
• Whether the indicator already appears in recorded events
• Which campaigns or tags it co-occurs with
• Whether it is marked actionable (to_ids) anywhere
• Whether it should be added to an existing event or a new one`),
		),
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(`3. Based on the findings, record the indicator with "add_attribute" on the most appropriate event, with a comment citing the enrichment source.`),
		),
	}

	return mcp.NewGetPromptResult(
		"IOC Enrichment",
		messages,
	), nil
}

// handleThreatHuntingPrompt handles the threat hunting prompt
func handleThreatHuntingPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	daysBack := request.Params.Arguments["days_back"]
	if daysBack == "" {
		daysBack = "30"
	}
	tags := request.Params.Arguments["tags"]

	scope := fmt.Sprintf("the last %s days", daysBack)
	if tags != "" {
		scope += fmt.Sprintf(" scoped to tags: %s", tags)
	}

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(fmt.Sprintf(`I'll run a threat hunt across MISP events from %s.`, scope)),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`1. Build the activity picture.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(fmt.Sprintf(`Use the "search_events" tool with days_back=%s (and the tag filter if given) to collect the candidate events. Start with high threat level (threat_level=1) and widen from there.`, daysBack)),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`2. Pivot into the interesting events.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`Use "get_event_attributes" on each candidate, filtering by network types (ip-dst, domain, url) to extract huntable indicators.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(`Hunting heuristics to apply:
• Indicators shared across unrelated events suggest common infrastructure
• Clusters of events from one organisation in a short window suggest a campaign
• Unpublished high-threat events deserve priority review
• to_ids indicators are the ready-to-deploy detection set`),
		),
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(`3. Summarize findings per cluster and record new observations back into MISP with "create_event" or "add_attribute".`),
		),
	}

	return mcp.NewGetPromptResult(
		"Threat Hunting Sweep",
		messages,
	), nil
}

// handleEventReportingPrompt handles the event reporting prompt
func handleEventReportingPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	eventID := request.Params.Arguments["event_id"]
	audience := request.Params.Arguments["audience"]
	if audience == "" {
		audience = "technical"
	}

	var guidance string
	switch audience {
	case "management":
		guidance = `Report structure for a management audience:
• One-paragraph executive summary: what happened, business impact, current status
• Risk assessment tied to the event's threat level
• Actions taken and actions requiring sign-off
• No raw indicators; reference the event ID for details`
	case "partners":
		guidance = `Report structure for sharing with partner organisations:
• Respect the event's TLP tag strictly; include only what its distribution level allows
• Defang every network indicator (hxxp, [.])
• Include actionable indicators with their types so partners can import them
• State the confidence and the observation window`
	default:
		guidance = `Report structure for a technical audience:
• Timeline and event metadata (date, organisation, analysis stage)
• Full indicator table grouped by type, with to_ids flags
• Detection guidance: which indicators to block, which to monitor
• Related events found via tag or indicator overlap`
	}

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(fmt.Sprintf(`I'll help you produce a %s report for MISP event %s.`, audience, eventID)),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`1. Gather the complete event data.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleUser,
			mcp.NewTextContent(`Use the "get_event" tool with include_attributes=true, and "analyze_event_with_ai" for an analytical summary to build on.`),
		),
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(guidance),
		),
		mcp.NewPromptMessage(
			mcp.RoleAssistant,
			mcp.NewTextContent(`2. Draft the report from the gathered data. Flag any gap (missing indicators, unset analysis stage) as a follow-up item rather than omitting it silently.`),
		),
	}

	return mcp.NewGetPromptResult(
		"Event Reporting",
		messages,
	), nil
}
