// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"text/template"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/mcp-server/templates"
	"github.com/mark3labs/mcp-go/server"
)

// instructionData holds the data used to populate the MCP server instructions template.
type instructionData struct {
	Tools     []toolInfo
	ToolRoles map[string]string // Maps tool roles to tool names for template use
}

// toolInfo represents information about an MCP tool for template rendering.
type toolInfo struct {
	Name        string
	Description string
}

// loadInstructions parses the template with dynamic data from the provided tools and returns the rendered instructions as a string for MCP client initialization.
//
// Parameters:
//   - tools: Slice of tool definitions without dependency requirements
//   - toolsWithClient: Slice of tool definitions bound to the MISP client
//   - toolsWithConfig: Slice of tool definitions that require configuration access
//
// Returns:
//   - string: The rendered instruction text describing server capabilities and tool usage
//   - error: If the embedded file cannot be read or template parsing fails
//
// The instructions provide MCP clients with comprehensive guidance on using
// all available threat-intelligence tools and workflows.
func loadInstructions(tools []ToolDefinition, toolsWithClient []ToolDefinitionWithClient, toolsWithConfig []ToolDefinitionWithConfig) (string, error) {
	// Read the template file
	templateBytes, err := templates.MagicEmbed.ReadFile("MISP_instructions.md")
	if err != nil {
		return "", fmt.Errorf("failed to load MCP server instructions template: %w", err)
	}

	// Extract tool info and build role mappings for template
	var toolInfos []toolInfo
	toolRoles := make(map[string]string)

	record := func(name, description, role string) {
		toolInfos = append(toolInfos, toolInfo{Name: name, Description: description})
		if role != "" {
			toolRoles[role] = name
		}
	}

	for _, tool := range tools {
		record(string(tool.Tool.Name), tool.Tool.Description, tool.Role)
	}
	for _, tool := range toolsWithClient {
		record(string(tool.Tool.Name), tool.Tool.Description, tool.Role)
	}
	for _, tool := range toolsWithConfig {
		record(string(tool.Tool.Name), tool.Tool.Description, tool.Role)
	}

	// Prepare data for template
	data := instructionData{
		Tools:     toolInfos,
		ToolRoles: toolRoles,
	}

	// Parse the template
	tmpl, err := template.New("instructions").Parse(string(templateBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse instructions template: %w", err)
	}

	// Execute the template
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute instructions template: %w", err)
	}

	return buf.String(), nil
}

// Cache structure for server capabilities
type serverCache struct {
	prompts         []map[string]any
	tools           []map[string]any
	toolsWithClient []map[string]any
	toolsWithConfig []map[string]any
	resources       []map[string]any
}

// Global cache instance with sync.Once for thread-safe lazy initialization
var (
	cache     *serverCache
	cacheOnce sync.Once
)

// getServerCache returns the lazily initialized server cache.
// Uses sync.Once to ensure initialization happens exactly once, even with concurrent access.
func getServerCache() *serverCache {
	cacheOnce.Do(func() {
		cache = &serverCache{
			// Cache is populated dynamically through populate*MetadataCache functions
			// called from the ServerBuilder's Build() method when WithPopulate() is used
		}
	})
	return cache
}

// loadPromptsConfig loads the prompts configuration from the cache.
// Returns the prompts array with user-facing information only (filters out internal fields).
func loadPromptsConfig() ([]map[string]any, error) {
	cache := getServerCache()
	return cache.prompts, nil
}

// toolsConfig holds the structured configuration for the three tool groups.
// This provides separate access to local tools, client-bound tools, and
// config-bound tools.
type toolsConfig struct {
	Tools           []map[string]any // Local tools without dependencies
	ToolsWithClient []map[string]any // Tools bound to the MISP client
	ToolsWithConfig []map[string]any // Tools that require configuration access
	AllTools        []map[string]any // Merged list for backward compatibility
}

// loadToolsConfig loads the tools configuration from the cache.
// Returns structured tool configuration with separate access to the three
// tool groups and a merged list for backward compatibility.
func loadToolsConfig() (*toolsConfig, error) {
	cache := getServerCache()
	local := len(cache.tools) - len(cache.toolsWithClient) - len(cache.toolsWithConfig)
	return &toolsConfig{
		Tools:           cache.tools[:local],
		ToolsWithClient: cache.toolsWithClient,
		ToolsWithConfig: cache.toolsWithConfig,
		AllTools:        cache.tools,
	}, nil
}

// loadResourcesConfig loads the resources configuration from the cache.
// Returns the resources with user-facing information only (filters out internal fields).
func loadResourcesConfig() ([]map[string]any, error) {
	cache := getServerCache()
	return cache.resources, nil
}

// populateToolMetadataCache extracts metadata from created tools and caches it for resource handlers.
// This function is called once during server initialization via the ServerBuilder's Build() method
// when WithPopulate() is used. It processes tools created by the builder's tool registration methods.
func populateToolMetadataCache(serverCache *serverCache, tools []ToolDefinition, toolsWithClient []ToolDefinitionWithClient, toolsWithConfig []ToolDefinitionWithConfig) {
	serverCache.tools = make([]map[string]any, 0, len(tools)+len(toolsWithClient)+len(toolsWithConfig))
	serverCache.toolsWithClient = make([]map[string]any, 0, len(toolsWithClient))
	serverCache.toolsWithConfig = make([]map[string]any, 0, len(toolsWithConfig))

	// Extract metadata from local tools
	for _, toolDef := range tools {
		tool := toolDef.Tool
		serverCache.tools = append(serverCache.tools, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
		})
	}

	// Extract metadata from client-bound tools
	for _, toolDef := range toolsWithClient {
		tool := toolDef.Tool
		serverCache.toolsWithClient = append(serverCache.toolsWithClient, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
		})
	}

	// Extract metadata from tools with config
	for _, toolDef := range toolsWithConfig {
		tool := toolDef.Tool
		serverCache.toolsWithConfig = append(serverCache.toolsWithConfig, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
		})
	}

	// Merge the three groups for the loadToolsConfig function
	// This provides the AllTools field in toolsConfig for resource handlers
	serverCache.tools = append(serverCache.tools, serverCache.toolsWithClient...)
	serverCache.tools = append(serverCache.tools, serverCache.toolsWithConfig...)
}

// populatePromptMetadataCache extracts metadata from created prompts and caches it for resource handlers.
// This function is called once during server initialization via the ServerBuilder's Build() method
// when WithPopulate() is used. It processes prompts created by the builder's prompt registration methods.
func populatePromptMetadataCache(serverCache *serverCache, prompts []server.ServerPrompt) {
	serverCache.prompts = make([]map[string]any, 0, len(prompts))

	for _, promptDef := range prompts {
		prompt := promptDef.Prompt
		metadata := map[string]any{
			"name":        prompt.Name,
			"description": prompt.Description,
		}

		// Extract arguments
		if len(prompt.Arguments) > 0 {
			args := make([]map[string]any, 0, len(prompt.Arguments))
			for _, arg := range prompt.Arguments {
				argMap := map[string]any{
					"name":        arg.Name,
					"description": arg.Description,
					"required":    arg.Required,
				}
				args = append(args, argMap)
			}
			metadata["arguments"] = args
		}

		// Extract meta information
		if prompt.Meta != nil {
			// Convert Meta struct to map for JSON serialization
			metaMap := make(map[string]any)
			maps.Copy(metaMap, prompt.Meta.AdditionalFields)
			// Remove any null/empty progressToken that might be set by MCP library
			if progressToken, exists := metaMap["progressToken"]; exists {
				if progressToken == nil || progressToken == "" || progressToken == "null" {
					delete(metaMap, "progressToken")
				}
			}
			if len(metaMap) > 0 {
				metadata["meta"] = metaMap
			}
		}

		serverCache.prompts = append(serverCache.prompts, metadata)
	}
}

// populateResourceMetadataCache extracts metadata from created resources and caches it for resource handlers.
// This function is called once during server initialization via the ServerBuilder's Build() method
// when WithPopulate() is used. It processes all three resource groups registered by the builder.
func populateResourceMetadataCache(serverCache *serverCache, resources []server.ServerResource, resourcesWithConfig []ResourceDefinitionWithConfig, resourcesWithClient []ResourceDefinitionWithClient) {
	serverCache.resources = make([]map[string]any, 0, len(resources)+len(resourcesWithConfig)+len(resourcesWithClient))

	record := func(resource any) {
		var uri, name, description, mimeType string
		var meta map[string]any

		switch r := resource.(type) {
		case server.ServerResource:
			uri, name, description, mimeType = r.Resource.URI, r.Resource.Name, r.Resource.Description, r.Resource.MIMEType
			if r.Resource.Meta != nil {
				meta = r.Resource.Meta.AdditionalFields
			}
		case ResourceDefinitionWithConfig:
			uri, name, description, mimeType = r.Resource.URI, r.Resource.Name, r.Resource.Description, r.Resource.MIMEType
			if r.Resource.Meta != nil {
				meta = r.Resource.Meta.AdditionalFields
			}
		case ResourceDefinitionWithClient:
			uri, name, description, mimeType = r.Resource.URI, r.Resource.Name, r.Resource.Description, r.Resource.MIMEType
			if r.Resource.Meta != nil {
				meta = r.Resource.Meta.AdditionalFields
			}
		default:
			return
		}

		metadata := map[string]any{
			"uri":         uri,
			"name":        name,
			"description": description,
			"mimeType":    mimeType,
		}

		if meta != nil {
			// Convert Meta struct to map for JSON serialization
			metaMap := make(map[string]any)
			maps.Copy(metaMap, meta)
			// Remove any null/empty progressToken that might be set by MCP library
			if progressToken, exists := metaMap["progressToken"]; exists {
				if progressToken == nil || progressToken == "" || progressToken == "null" {
					delete(metaMap, "progressToken")
				}
			}
			if len(metaMap) > 0 {
				metadata["meta"] = metaMap
			}
		}

		serverCache.resources = append(serverCache.resources, metadata)
	}

	for _, r := range resources {
		record(r)
	}
	for _, r := range resourcesWithConfig {
		record(r)
	}
	for _, r := range resourcesWithClient {
		record(r)
	}
}
