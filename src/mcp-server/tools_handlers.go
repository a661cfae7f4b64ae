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
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/mcp-server/templates"
	"github.com/mark3labs/mcp-go/mcp"
)

// mispErrorMessage renders a MISP client error for a tool error result. The
// kind label leads so agents can branch on the classification without parsing
// the rest of the message.
func mispErrorMessage(err error) string {
	return fmt.Sprintf("%s: %s", misp.KindOf(err), misp.Detail(err))
}

// getEventAttributeDisplayLimit caps the attribute lines rendered inline by
// get_event; larger events point the caller at get_event_attributes instead of
// flooding the context.
const getEventAttributeDisplayLimit = 20

// clampLimit forces a caller-supplied limit into the [min, max] range.
func clampLimit(limit, low, high int) int {
	if limit < low {
		return low
	}
	if limit > high {
		return high
	}
	return limit
}

// readCertificateInput resolves the certificate parameter, which may be a
// file path, inline PEM text, or base64-encoded certificate data.
func readCertificateInput(input string) ([]byte, error) {
	if strings.Contains(input, "-----BEGIN") {
		return []byte(input), nil
	}

	if _, err := os.Stat(input); err == nil {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate file: %w", err)
		}
		return data, nil
	}

	if data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(input)); err == nil {
		return data, nil
	}

	return nil, fmt.Errorf("not a valid file path, PEM text, or base64 data")
}

// handleCheckConnection handles the check_connection tool.
// It verifies that the configured MISP instance is reachable and the API key
// is accepted, and reports the instance version on success.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP tool call request (no parameters)
//   - mispClient: The authenticated MISP API handle
//
// Returns:
//   - The tool execution result with a connectivity report
//   - Never returns a Go error; failures become tool error results
func handleCheckConnection(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	info, err := mispClient.TestConnection(ctx)
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := "✓ MISP Connection Check\n\n"
	result += "Status: connected and authenticated\n"
	result += fmt.Sprintf("MISP Version: %s\n", info.Version)
	result += fmt.Sprintf("Sync Permission: %t\n", bool(info.PermSync))
	result += fmt.Sprintf("Sighting Permission: %t\n", bool(info.PermSighting))

	return mcp.NewToolResultText(result), nil
}

// handleGetVersion handles the get_version tool.
// It reports the remote MISP version together with the permission flags
// granted to the configured API key.
func handleGetVersion(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	info, err := mispClient.GetVersion(ctx)
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := "MISP Instance Version\n\n"
	result += fmt.Sprintf("Version: %s\n\n", info.Version)
	result += "API Key Permissions:\n"
	result += fmt.Sprintf("  Sync:          %t\n", bool(info.PermSync))
	result += fmt.Sprintf("  Sighting:      %t\n", bool(info.PermSighting))
	result += fmt.Sprintf("  Galaxy Editor: %t\n", bool(info.PermGalaxyEditor))

	return mcp.NewToolResultText(result), nil
}

// handleCreateEvent handles the create_event tool.
// It validates the enum parameters, creates the event through the MISP client,
// and reports the assigned identifiers.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP tool call request with info, distribution, threat_level_id,
//     analysis, date, and tags parameters
//   - mispClient: The authenticated MISP API handle
//
// Returns:
//   - The tool execution result describing the created event
//   - Never returns a Go error; failures become tool error results
func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	info, err := request.RequireString("info")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("info parameter required: %v", err)), nil
	}

	distribution := request.GetInt("distribution", misp.DistributionCommunity)
	threatLevel := request.GetInt("threat_level_id", misp.ThreatLevelLow)
	analysis := request.GetInt("analysis", misp.AnalysisInitial)
	date := request.GetString("date", "")
	tags := splitTags(request.GetString("tags", ""))

	event, err := mispClient.CreateEvent(ctx, misp.CreateEventRequest{
		Info:          info,
		Distribution:  &distribution,
		ThreatLevelID: &threatLevel,
		Analysis:      &analysis,
		Date:          date,
		Tags:          tags,
	})
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := "✓ Event Created\n\n"
	result += fmt.Sprintf("Event ID: %s\n", event.ID)
	result += fmt.Sprintf("UUID: %s\n", event.UUID)
	result += fmt.Sprintf("Info: %s\n", event.Info)
	result += fmt.Sprintf("Date: %s\n", event.Date)
	result += fmt.Sprintf("Distribution: %s\n", misp.DistributionName(event.Distribution))
	result += fmt.Sprintf("Threat Level: %s\n", misp.ThreatLevelName(event.ThreatLevelID))
	result += fmt.Sprintf("Analysis: %s\n", misp.AnalysisName(event.Analysis))
	if len(tags) > 0 {
		result += fmt.Sprintf("Tags: %s\n", strings.Join(tags, ", "))
	}
	result += "\nNext step: attach indicators with add_attribute or add_certificate_attributes."

	return mcp.NewToolResultText(result), nil
}

// handleGetEvent handles the get_event tool.
// It retrieves one event by id or UUID and renders its header fields plus,
// optionally, the attached attributes.
func handleGetEvent(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("event_id parameter required: %v", err)), nil
	}
	includeAttributes := request.GetBool("include_attributes", true)

	event, err := mispClient.GetEvent(ctx, eventID)
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := formatEventHeader(event)

	if includeAttributes {
		result += fmt.Sprintf("\nAttributes (%d):\n", event.NumAttributes())
		if len(event.Attributes) == 0 {
			result += "  (none)\n"
		}
		shown := len(event.Attributes)
		if shown > getEventAttributeDisplayLimit {
			shown = getEventAttributeDisplayLimit
		}
		for i := range event.Attributes[:shown] {
			result += formatAttributeLine(&event.Attributes[i])
		}
		if remaining := len(event.Attributes) - shown; remaining > 0 {
			result += fmt.Sprintf("  ... and %d more. Use get_event_attributes to page through the full list.\n", remaining)
		}
	}

	return mcp.NewToolResultText(result), nil
}

// handleSearchEvents handles the search_events tool.
// It builds the search filters from the request parameters, clamps the limit
// into the supported 1-50 range, and renders one summary line per event.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP tool call request with limit, days_back, date_from,
//     date_to, org, tags, and threat_level parameters
//   - mispClient: The authenticated MISP API handle
//
// Returns:
//   - The tool execution result listing the matching events
//   - Never returns a Go error; failures become tool error results
func handleSearchEvents(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	limit := clampLimit(request.GetInt("limit", 10), 1, 50)

	searchReq := misp.EventSearchRequest{
		Limit:       limit,
		DaysBack:    request.GetInt("days_back", 0),
		DateFrom:    request.GetString("date_from", ""),
		DateTo:      request.GetString("date_to", ""),
		Org:         request.GetString("org", ""),
		Tags:        splitTags(request.GetString("tags", "")),
		ThreatLevel: request.GetInt("threat_level", 0),
	}

	events, err := mispClient.SearchEvents(ctx, searchReq)
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := fmt.Sprintf("Event Search Results (%d found, limit %d)\n\n", len(events), limit)
	if len(events) == 0 {
		result += "No events matched the given filters. Consider widening the time window with days_back."
		return mcp.NewToolResultText(result), nil
	}

	for _, event := range events {
		published := " "
		if event.Published {
			published = "P"
		}
		result += fmt.Sprintf("[%s] %s  %s  %-6s  %s (%d attributes)\n",
			published,
			event.ID,
			event.Date,
			misp.ThreatLevelName(event.ThreatLevelID),
			event.Info,
			event.NumAttributes(),
		)
	}
	result += "\n[P] = published. Use get_event with an ID for full details."

	return mcp.NewToolResultText(result), nil
}

// handleAddAttribute handles the add_attribute tool.
// It validates the payload, warns on attribute types or categories outside
// the common vocabulary without rejecting them, and attaches the indicator to
// the event.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP tool call request with event_id, attribute_type, value,
//     category, to_ids, comment, and distribution parameters
//   - mispClient: The authenticated MISP API handle
//
// Returns:
//   - The tool execution result describing the created attribute
//   - Never returns a Go error; failures become tool error results
func handleAddAttribute(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("event_id parameter required: %v", err)), nil
	}
	attrType, err := request.RequireString("attribute_type")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("attribute_type parameter required: %v", err)), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("value parameter required: %v", err)), nil
	}
	category, err := request.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("category parameter required: %v", err)), nil
	}

	toIDS := request.GetBool("to_ids", false)
	comment := request.GetString("comment", "")
	distribution := request.GetInt("distribution", misp.DistributionInherit)

	// Unknown types and categories are warnings, not rejections: MISP
	// instances accept site-specific vocabulary beyond the common set.
	var warnings []string
	if !misp.IsCommonType(attrType) {
		warnings = append(warnings, fmt.Sprintf("⚠️  type %q is not in the common vocabulary (see list_attribute_types)", attrType))
	}
	if !misp.IsCommonCategory(category) {
		warnings = append(warnings, fmt.Sprintf("⚠️  category %q is not a standard MISP category", category))
	}

	attr, err := mispClient.AddAttribute(ctx, eventID, misp.AttributePayload{
		Type:         attrType,
		Value:        value,
		Category:     category,
		ToIDS:        toIDS,
		Comment:      comment,
		Distribution: &distribution,
	})
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := "✓ Attribute Added\n\n"
	result += fmt.Sprintf("Attribute ID: %s\n", attr.ID)
	result += fmt.Sprintf("Event ID: %s\n", attr.EventID)
	result += fmt.Sprintf("Type: %s\n", attr.Type)
	result += fmt.Sprintf("Category: %s\n", attr.Category)
	result += fmt.Sprintf("Value: %s\n", attr.Value)
	result += fmt.Sprintf("To IDS: %t\n", bool(attr.ToIDS))
	result += fmt.Sprintf("Distribution: %s\n", misp.DistributionName(attr.Distribution))
	if attr.Comment != "" {
		result += fmt.Sprintf("Comment: %s\n", attr.Comment)
	}
	if len(warnings) > 0 {
		result += "\n" + strings.Join(warnings, "\n") + "\n"
	}

	return mcp.NewToolResultText(result), nil
}

// handleGetEventAttributes handles the get_event_attributes tool.
// It lists an event's attributes through the attribute search endpoint with
// optional type and category filters, clamping the limit into 1-100.
func handleGetEventAttributes(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("event_id parameter required: %v", err)), nil
	}

	limit := clampLimit(request.GetInt("limit", 20), 1, 100)
	attrType := request.GetString("attribute_type", "")
	category := request.GetString("category", "")

	attrs, err := mispClient.SearchAttributes(ctx, misp.AttributeSearchRequest{
		EventID:  eventID,
		Type:     attrType,
		Category: category,
		Limit:    limit,
	})
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := fmt.Sprintf("Attributes of Event %s (%d found, limit %d)\n", eventID, len(attrs), limit)
	if attrType != "" {
		result += fmt.Sprintf("Type filter: %s\n", attrType)
	}
	if category != "" {
		result += fmt.Sprintf("Category filter: %s\n", category)
	}
	result += "\n"

	if len(attrs) == 0 {
		result += "No attributes matched. Drop the filters or verify the event id."
		return mcp.NewToolResultText(result), nil
	}

	typeCounts := make(map[string]int)
	for _, attr := range attrs {
		typeCounts[attr.Type]++
		result += formatAttributeLine(&attr)
	}

	types := make([]string, 0, len(typeCounts))
	for t := range typeCounts {
		types = append(types, t)
	}
	sort.Strings(types)

	result += "\nBy type:\n"
	for _, t := range types {
		result += fmt.Sprintf("  %s: %d\n", t, typeCounts[t])
	}

	return mcp.NewToolResultText(result), nil
}

// handleAddCertificateAttributes handles the add_certificate_attributes tool.
// It parses the certificate input, derives the fingerprint attribute payloads,
// and attaches each of them to the event. Partial failures are reported per
// fingerprint so a transient error does not hide the attributes that were
// created.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP tool call request with event_id, certificate, and comment
//     parameters
//   - mispClient: The authenticated MISP API handle
//
// Returns:
//   - The tool execution result with the certificate summary and the outcome
//     per derived attribute
//   - Never returns a Go error; failures become tool error results
func handleAddCertificateAttributes(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("event_id parameter required: %v", err)), nil
	}
	certInput, err := request.RequireString("certificate")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("certificate parameter required: %v", err)), nil
	}
	comment := request.GetString("comment", "")

	certData, err := readCertificateInput(certInput)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read certificate: %v", err)), nil
	}

	payloads, summary, err := misp.DeriveCertificateAttributes(certData, comment)
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	result := "Certificate Observables\n\n"
	result += fmt.Sprintf("Subject: %s\n", summary.Subject)
	result += fmt.Sprintf("Issuer: %s\n", summary.Issuer)
	result += fmt.Sprintf("Valid: %s to %s\n",
		summary.NotBefore.UTC().Format(misp.DateLayout),
		summary.NotAfter.UTC().Format(misp.DateLayout))
	if summary.Expired() {
		result += "⚠️  Certificate is expired\n"
	}
	result += "\nDerived attributes:\n"

	added := 0
	for _, payload := range payloads {
		attr, err := mispClient.AddAttribute(ctx, eventID, payload)
		if err != nil {
			result += fmt.Sprintf("  ✗ %s: %s\n", payload.Type, mispErrorMessage(err))
			continue
		}
		added++
		result += fmt.Sprintf("  ✓ %s = %s (attribute %s)\n", attr.Type, attr.Value, attr.ID)
	}

	result += fmt.Sprintf("\nSummary: %d of %d attributes added to event %s.", added, len(payloads), eventID)
	if added == 0 {
		return mcp.NewToolResultError(result), nil
	}
	return mcp.NewToolResultText(result), nil
}

// handleListAttributeTypes handles the list_attribute_types tool.
// It renders the common MISP attribute-type vocabulary grouped by indicator
// family, optionally restricted to one group, plus the standard categories.
func handleListAttributeTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group := request.GetString("category", "")

	if group != "" {
		types, ok := misp.CommonAttributeTypes[group]
		if !ok {
			groups := make([]string, 0, len(misp.CommonAttributeTypes))
			for g := range misp.CommonAttributeTypes {
				groups = append(groups, g)
			}
			sort.Strings(groups)
			return mcp.NewToolResultError(fmt.Sprintf("unknown type group %q, expected one of: %s", group, strings.Join(groups, ", "))), nil
		}

		result := fmt.Sprintf("Common MISP Attribute Types - %s\n\n", group)
		for _, t := range types {
			result += fmt.Sprintf("  %s\n", t)
		}
		return mcp.NewToolResultText(result), nil
	}

	groups := make([]string, 0, len(misp.CommonAttributeTypes))
	for g := range misp.CommonAttributeTypes {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	result := "Common MISP Attribute Types\n\n"
	for _, g := range groups {
		result += fmt.Sprintf("%s:\n", g)
		for _, t := range misp.CommonAttributeTypes[g] {
			result += fmt.Sprintf("  %s\n", t)
		}
		result += "\n"
	}

	result += "Standard Categories:\n"
	for _, c := range misp.CommonCategories {
		result += fmt.Sprintf("  %s\n", c)
	}
	result += "\nMISP instances may define additional site-specific types; unknown types are accepted with a warning."

	return mcp.NewToolResultText(result), nil
}

// handleAnalyzeEventWithAI handles the analyze_event_with_ai tool.
// It fetches the event, builds an analysis context from its header, tags, and
// attributes, and submits it to the configured AI endpoint through the
// sampling handler. Without an API key the prepared context is returned so
// the caller can reason over it directly.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP tool call request with event_id and focus parameters
//   - config: Server configuration carrying the AI settings (may be nil)
//   - mispClient: The authenticated MISP API handle
//
// Returns:
//   - The tool execution result with the AI analysis or the prepared context
//   - Never returns a Go error; failures become tool error results
func handleAnalyzeEventWithAI(ctx context.Context, request mcp.CallToolRequest, config *Config, mispClient misp.API) (*mcp.CallToolResult, error) {
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("event_id parameter required: %v", err)), nil
	}
	focus := request.GetString("focus", "general")

	event, err := mispClient.GetEvent(ctx, eventID)
	if err != nil {
		return mcp.NewToolResultError(mispErrorMessage(err)), nil
	}

	eventContext := buildEventContext(event)
	analysisPrompt := eventContext + "\n\n" + getAnalysisInstruction(focus)

	// Try to get AI analysis if API key is configured
	if config != nil && config.AI.APIKey != "" {
		// Read system prompt from embedded template
		systemPromptBytes, err := templates.MagicEmbed.ReadFile("event-analysis-system-prompt.md")
		systemPrompt := ""
		if err == nil {
			systemPrompt = string(systemPromptBytes)
		} else {
			// Fallback system prompt if file cannot be read
			systemPrompt = "You are a threat intelligence analyst. Follow these exact instructions for analyzing MISP events."
		}

		// Create sampling handler for this request
		samplingHandler := &DefaultSamplingHandler{
			apiKey:   config.AI.APIKey,
			endpoint: config.AI.Endpoint,
			model:    config.AI.Model,
			timeout:  time.Duration(config.AI.Timeout) * time.Second,
			client:   &http.Client{Timeout: time.Duration(config.AI.Timeout) * time.Second},
		}

		// Prepare sampling request with system prompt
		samplingRequest := mcp.CreateMessageRequest{
			CreateMessageParams: mcp.CreateMessageParams{
				Messages: []mcp.SamplingMessage{
					{
						Role:    mcp.RoleUser,
						Content: mcp.TextContent{Text: analysisPrompt},
					},
				},
				SystemPrompt: systemPrompt,
				MaxTokens:    config.AI.MaxTokens,
				Temperature:  config.AI.Temperature,
			},
		}

		// Call the AI API
		samplingResult, err := samplingHandler.CreateMessage(ctx, samplingRequest)
		if err != nil {
			result := fmt.Sprintf("AI Analysis Request Failed: %v", err)
			return mcp.NewToolResultText(result), nil
		}

		// Return the AI's analysis
		result := fmt.Sprintf("🤖 AI-Powered Event Analysis (%s)\n\n", focus)
		if textContent, ok := samplingResult.SamplingMessage.Content.(mcp.TextContent); ok {
			result += textContent.Text
		} else {
			result += "AI provided analysis (content format not supported for display)"
		}
		result += fmt.Sprintf("\n\n---\n*AI Model: %s*", samplingResult.Model)

		return mcp.NewToolResultText(result), nil
	}

	// Fallback: Show what would be sent to AI (no API key configured)
	result := fmt.Sprintf("AI Collaborative Analysis (%s)\n\n", focus)
	result += "⚠️  No AI API key configured. To enable real AI analysis:\n"
	result += "   1. Set MISP_AI_APIKEY environment variable, or\n"
	result += "   2. Configure 'ai.apiKey' in your config file\n\n"
	result += "📋 Event Context Prepared for AI Analysis:\n"
	result += eventContext
	result += fmt.Sprintf("\n\n💭 Analysis Prompt Ready:\n%s", getAnalysisInstruction(focus))

	return mcp.NewToolResultText(result), nil
}

// handleGetResourceUsage handles requests for current resource usage statistics including memory, GC, and MISP client request counters.
// It collects comprehensive system and application resource data and formats it according to the requested output format.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: MCP tool call request containing format and detail level parameters
//   - mispClient: The authenticated MISP API handle, source of the request counters
//
// Returns:
//   - The tool execution result containing formatted resource usage data
//   - An error if resource collection or formatting fails
//
// The function supports both JSON and Markdown output formats, with optional detailed metrics
// including MISP request counters, memory breakdown, and system information.
func handleGetResourceUsage(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error) {
	detailed := request.GetBool("detailed", false)
	format := request.GetString("format", "markdown")

	// Collect resource usage data
	data := CollectResourceUsage(detailed, mispClient)

	// Format output based on format parameter
	switch format {
	case "json":
		jsonData, err := FormatResourceUsageAsJSON(data)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format resource usage: %v", err)), nil
		}

		// Parse the JSON string back to a map for structured content
		var structuredData map[string]any
		if err := json.Unmarshal([]byte(jsonData), &structuredData); err != nil {
			// Fallback to text if parsing fails
			return mcp.NewToolResultText(jsonData), nil
		}

		// Return structured JSON content for programmatic access
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(jsonData),
			},
			StructuredContent: structuredData,
			IsError:           false,
		}, nil
	case "markdown":
		fallthrough
	default:
		markdown := FormatResourceUsageAsMarkdown(data)
		return mcp.NewToolResultText(markdown), nil
	}
}

// splitTags splits a comma-separated tag string, dropping empty entries.
func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// formatEventHeader renders the header fields of an event for tool reports.
func formatEventHeader(event *misp.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Event %s: %s\n\n", event.ID, event.Info)
	fmt.Fprintf(&b, "UUID: %s\n", event.UUID)
	fmt.Fprintf(&b, "Date: %s\n", event.Date)
	fmt.Fprintf(&b, "Organisation: %s\n", event.OrgName())
	fmt.Fprintf(&b, "Threat Level: %s\n", misp.ThreatLevelName(event.ThreatLevelID))
	fmt.Fprintf(&b, "Analysis: %s\n", misp.AnalysisName(event.Analysis))
	fmt.Fprintf(&b, "Distribution: %s\n", misp.DistributionName(event.Distribution))
	fmt.Fprintf(&b, "Published: %t\n", bool(event.Published))
	if len(event.Tags) > 0 {
		names := make([]string, 0, len(event.Tags))
		for _, tag := range event.Tags {
			names = append(names, tag.Name)
		}
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(names, ", "))
	}

	return b.String()
}

// formatAttributeLine renders one attribute as a single report line.
func formatAttributeLine(attr *misp.Attribute) string {
	ids := ""
	if attr.ToIDS {
		ids = " [IDS]"
	}
	line := fmt.Sprintf("  [%s] %s/%s = %s%s\n", attr.ID, attr.Category, attr.Type, attr.Value, ids)
	if attr.Comment != "" {
		line += fmt.Sprintf("        # %s\n", attr.Comment)
	}
	return line
}

// buildEventContext assembles the event description sent to the AI for
// analysis. It mirrors what an analyst would read: the header, the tags, and
// every attribute with its IDS flag.
func buildEventContext(event *misp.Event) string {
	var b strings.Builder

	b.WriteString("=== MISP EVENT ===\n")
	b.WriteString(formatEventHeader(event))

	b.WriteString(fmt.Sprintf("\n=== ATTRIBUTES (%d) ===\n", event.NumAttributes()))
	if len(event.Attributes) == 0 {
		b.WriteString("(no attributes attached)\n")
	}
	for _, attr := range event.Attributes {
		b.WriteString(formatAttributeLine(&attr))
	}

	return b.String()
}

// getAnalysisInstruction returns the analysis instruction appended to the
// event context, shaped by the requested focus.
func getAnalysisInstruction(focus string) string {
	switch focus {
	case "attribution":
		return "Focus your analysis on attribution: which actor, campaign, or tool family do the indicators and tags point to? State your confidence and the evidence behind it."
	case "impact":
		return "Focus your analysis on impact: what do the indicators suggest about the scope and severity of this incident, and is the declared threat level consistent with them?"
	case "mitigation":
		return "Focus your analysis on mitigation: which indicators should be blocked or monitored first, and what concrete defensive actions follow from this event?"
	case "general", "":
		return "Provide a general analysis of this event covering a summary, indicator assessment, attribution signals, impact, and recommended actions."
	default:
		return fmt.Sprintf("Analyze this event with particular attention to: %s. Cover a brief summary and recommended actions as well.", focus)
	}
}
