// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createTools creates and returns all MCP tool definitions with their handlers.
// It organizes tools into three categories: local tools without dependencies, tools
// bound to the MISP client, and tools that additionally need server configuration
// (e.g., for AI integration).
//
// Returns:
//   - A slice of ToolDefinition for local tools without dependencies
//   - A slice of ToolDefinitionWithClient for tools that call the MISP instance
//   - A slice of ToolDefinitionWithConfig for tools that require server configuration
//
// The function defines the following tools:
//   - list_attribute_types: Lists the common MISP attribute-type vocabulary by group
//   - check_connection: Verifies connectivity and authentication against MISP
//   - get_version: Reports the MISP instance version and API-key permissions
//   - create_event: Creates a new MISP event with validated enum fields
//   - get_event: Retrieves a single event with its attributes
//   - search_events: Searches events by time window, organisation, tags, and threat level
//   - add_attribute: Adds an indicator attribute to an existing event
//   - get_event_attributes: Lists an event's attributes with optional type/category filters
//   - add_certificate_attributes: Derives fingerprint attributes from an X.509 certificate
//   - get_resource_usage: Provides server resource usage and MISP client statistics
//   - analyze_event_with_ai: Performs AI-powered event analysis
//
// Each tool includes proper parameter definitions, descriptions, and default values
// as required by the MCP specification.
func createTools() ([]ToolDefinition, []ToolDefinitionWithClient, []ToolDefinitionWithConfig) {
	// Tools that run locally without touching the MISP instance
	tools := []ToolDefinition{
		{
			Tool: mcp.NewTool("list_attribute_types",
				mcp.WithDescription("List common MISP attribute types and categories for building well-formed attributes"),
				mcp.WithString("category",
					mcp.Description("Restrict the listing to one type group: 'Network', 'Files', 'Email', 'Registry', or 'Other' (default: all groups)"),
				),
			),
			Handler: handleListAttributeTypes,
			Role:    "typeCatalog",
		},
	}

	// Tools that talk to the MISP instance
	toolsWithClient := []ToolDefinitionWithClient{
		{
			Tool: mcp.NewTool("check_connection",
				mcp.WithDescription("Check connectivity and authentication against the configured MISP instance"),
			),
			Handler: handleCheckConnection,
			Role:    "connectionChecker",
		},
		{
			Tool: mcp.NewTool("get_version",
				mcp.WithDescription("Get the MISP instance version and the permission flags granted to the configured API key"),
			),
			Handler: handleGetVersion,
			Role:    "versionReader",
		},
		{
			Tool: mcp.NewTool("create_event",
				mcp.WithDescription("Create a new MISP event to group related indicators of compromise"),
				mcp.WithString("info",
					mcp.Required(),
					mcp.Description("Event title describing the incident or campaign"),
				),
				mcp.WithNumber("distribution",
					mcp.Description("Distribution level: 0=your organisation, 1=this community, 2=connected communities, 3=all communities (default: 1)"),
					mcp.DefaultNumber(1),
				),
				mcp.WithNumber("threat_level_id",
					mcp.Description("Threat level: 1=high, 2=medium, 3=low, 4=undefined (default: 3)"),
					mcp.DefaultNumber(3),
				),
				mcp.WithNumber("analysis",
					mcp.Description("Analysis state: 0=initial, 1=ongoing, 2=completed (default: 0)"),
					mcp.DefaultNumber(0),
				),
				mcp.WithString("date",
					mcp.Description("Event date in YYYY-MM-DD format (default: today)"),
				),
				mcp.WithString("tags",
					mcp.Description("Comma-separated tags to attach, e.g. 'tlp:amber,type:phishing'"),
				),
			),
			Handler: handleCreateEvent,
			Role:    "eventCreator",
		},
		{
			Tool: mcp.NewTool("get_event",
				mcp.WithDescription("Get details of a MISP event by its ID or UUID"),
				mcp.WithString("event_id",
					mcp.Required(),
					mcp.Description("Event ID (numeric) or UUID"),
				),
				mcp.WithBoolean("include_attributes",
					mcp.Description("Include the event's attributes in the result (default: true)"),
					mcp.DefaultBool(true),
				),
			),
			Handler: handleGetEvent,
			Role:    "eventReader",
		},
		{
			Tool: mcp.NewTool("search_events",
				mcp.WithDescription("Search MISP events by time window, organisation, tags, and threat level"),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of events to return, between 1 and 50 (default: 10)"),
					mcp.DefaultNumber(10),
				),
				mcp.WithNumber("days_back",
					mcp.Description("Restrict to events dated within the last N days"),
				),
				mcp.WithString("date_from",
					mcp.Description("Start date in YYYY-MM-DD format (overrides days_back)"),
				),
				mcp.WithString("date_to",
					mcp.Description("End date in YYYY-MM-DD format"),
				),
				mcp.WithString("org",
					mcp.Description("Filter by creating organisation name"),
				),
				mcp.WithString("tags",
					mcp.Description("Comma-separated tags to match, e.g. 'tlp:white,ransomware'"),
				),
				mcp.WithNumber("threat_level",
					mcp.Description("Filter by threat level: 1=high, 2=medium, 3=low, 4=undefined"),
				),
			),
			Handler: handleSearchEvents,
			Role:    "eventSearcher",
		},
		{
			Tool: mcp.NewTool("add_attribute",
				mcp.WithDescription("Add an indicator attribute (IP, domain, hash, URL, ...) to an existing MISP event"),
				mcp.WithString("event_id",
					mcp.Required(),
					mcp.Description("Event ID (numeric) or UUID to attach the attribute to"),
				),
				mcp.WithString("attribute_type",
					mcp.Required(),
					mcp.Description("MISP attribute type, e.g. 'ip-dst', 'domain', 'sha256', 'url' (see list_attribute_types)"),
				),
				mcp.WithString("value",
					mcp.Required(),
					mcp.Description("The indicator value itself"),
				),
				mcp.WithString("category",
					mcp.Required(),
					mcp.Description("MISP category, e.g. 'Network activity', 'Payload delivery'"),
				),
				mcp.WithBoolean("to_ids",
					mcp.Description("Mark the attribute as actionable for IDS export (default: false)"),
					mcp.DefaultBool(false),
				),
				mcp.WithString("comment",
					mcp.Description("Free-text analyst comment for the attribute"),
				),
				mcp.WithNumber("distribution",
					mcp.Description("Distribution level: 0-3 as for events, or 5 to inherit from the event (default: 5)"),
					mcp.DefaultNumber(5),
				),
			),
			Handler: handleAddAttribute,
			Role:    "attributeWriter",
		},
		{
			Tool: mcp.NewTool("get_event_attributes",
				mcp.WithDescription("List the attributes of a MISP event with optional type and category filters"),
				mcp.WithString("event_id",
					mcp.Required(),
					mcp.Description("Event ID (numeric) or UUID"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of attributes to return, between 1 and 100 (default: 20)"),
					mcp.DefaultNumber(20),
				),
				mcp.WithString("attribute_type",
					mcp.Description("Filter by attribute type, e.g. 'ip-dst'"),
				),
				mcp.WithString("category",
					mcp.Description("Filter by category, e.g. 'Network activity'"),
				),
			),
			Handler: handleGetEventAttributes,
			Role:    "attributeReader",
		},
		{
			Tool: mcp.NewTool("add_certificate_attributes",
				mcp.WithDescription("Parse an X.509 certificate and add its fingerprints and subject metadata to a MISP event as attributes"),
				mcp.WithString("event_id",
					mcp.Required(),
					mcp.Description("Event ID (numeric) or UUID to attach the certificate observables to"),
				),
				mcp.WithString("certificate",
					mcp.Required(),
					mcp.Description("Certificate file path, PEM text, or base64-encoded certificate data"),
				),
				mcp.WithString("comment",
					mcp.Description("Analyst comment applied to every derived attribute"),
				),
			),
			Handler: handleAddCertificateAttributes,
			Role:    "certEnricher",
		},
		{
			Tool: mcp.NewTool("get_resource_usage",
				mcp.WithDescription("Get current resource usage statistics including memory, GC, and MISP client request counters"),
				mcp.WithBoolean("detailed",
					mcp.Description("Include detailed memory breakdown (default: false)"),
					mcp.DefaultBool(false),
				),
				mcp.WithString("format",
					mcp.Description("Output format: 'markdown' or 'json' (default: 'markdown')"),
					mcp.DefaultString("markdown"),
				),
			),
			Handler: handleGetResourceUsage,
			Role:    "resourceMonitor",
		},
	}

	// Tools that need config
	toolsWithConfig := []ToolDefinitionWithConfig{
		{
			Tool: mcp.NewTool("analyze_event_with_ai",
				mcp.WithDescription("Analyze a MISP event using AI collaboration (requires bidirectional communication)"),
				mcp.WithString("event_id",
					mcp.Required(),
					mcp.Description("Event ID (numeric) or UUID to analyze"),
				),
				mcp.WithString("focus",
					mcp.Description("Aspect to focus the analysis on: 'attribution', 'impact', 'mitigation', or free text"),
				),
			),
			Handler: handleAnalyzeEventWithAI,
			Role:    "aiAnalyzer",
		},
	}

	return tools, toolsWithClient, toolsWithConfig
}
