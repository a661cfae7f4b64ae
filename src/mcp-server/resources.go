// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// createResources creates and returns all MCP resource definitions with their
// handlers, split by dependency the same way the tools are: static resources,
// resources that read the server configuration, and resources that query the
// MISP instance.
//
// Returns:
//   - A slice of server.ServerResource for static resources
//   - A slice of ResourceDefinitionWithConfig for configuration-backed resources
//   - A slice of ResourceDefinitionWithClient for MISP-backed resources
//
// The function defines the following resources:
//   - info://version: Server version and capability catalog
//   - docs://misp-usage: Attribute type and category reference documentation
//   - config://server: The active configuration with secrets redacted
//   - events://recent/{7,30,90}: Recent event windows as JSON documents
//   - feeds://list: The feed sources configured on the MISP instance
//   - status://server: Server health plus MISP client request counters
func createResources() ([]server.ServerResource, []ResourceDefinitionWithConfig, []ResourceDefinitionWithClient) {
	resources := []server.ServerResource{
		{
			Resource: mcp.NewResource("info://version", "Server Version",
				mcp.WithResourceDescription("MISP MCP server version and capability catalog"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: handleVersionResource,
		},
		{
			Resource: mcp.NewResource("docs://misp-usage", "MISP Usage Reference",
				mcp.WithResourceDescription("Reference for MISP attribute types, categories, enums, and search windows"),
				mcp.WithMIMEType("text/markdown"),
			),
			Handler: handleUsageDocsResource,
		},
	}

	resourcesWithConfig := []ResourceDefinitionWithConfig{
		{
			Resource: mcp.NewResource("config://server", "Active Configuration",
				mcp.WithResourceDescription("The active server configuration with the API keys redacted"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: handleConfigResource,
		},
	}

	resourcesWithClient := []ResourceDefinitionWithClient{
		{
			Resource: mcp.NewResource("events://recent/7", "Events from the Last 7 Days",
				mcp.WithResourceDescription("MISP events dated within the last week, newest first, with summary counts"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: recentEventsHandler(7),
		},
		{
			Resource: mcp.NewResource("events://recent/30", "Events from the Last 30 Days",
				mcp.WithResourceDescription("MISP events dated within the last month, newest first, with summary counts"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: recentEventsHandler(30),
		},
		{
			Resource: mcp.NewResource("events://recent/90", "Events from the Last 90 Days",
				mcp.WithResourceDescription("MISP events dated within the last quarter, newest first, with summary counts"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: recentEventsHandler(90),
		},
		{
			Resource: mcp.NewResource("feeds://list", "Configured Feeds",
				mcp.WithResourceDescription("The threat intelligence feed sources configured on the MISP instance"),
				mcp.WithMIMEType("text/plain"),
			),
			Handler: handleFeedsResource,
		},
		{
			Resource: mcp.NewResource("status://server", "Server Status",
				mcp.WithResourceDescription("Server health, capability counts, and MISP client request counters"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: handleStatusResource,
		},
	}

	return resources, resourcesWithConfig, resourcesWithClient
}
