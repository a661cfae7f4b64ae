// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/helper/gc"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/mcp-server/templates"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// serverName identifies this server to MCP clients during initialization.
const serverName = "MISP MCP Server"

// ToolHandler defines the signature for tool handlers that matches [MCP] server expectations.
// It processes tool calls and returns results.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: The MCP tool call request containing arguments and metadata
//
// Returns:
//   - The tool execution result or an error if the tool failed
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ToolHandlerWithClient defines tool handlers that require access to the MISP client.
// It extends ToolHandler with a [misp.API] parameter injected by the server builder,
// so handlers stay stateless and tests can substitute a fake client.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: The MCP tool call request containing arguments and metadata
//   - mispClient: The authenticated MISP API handle shared by all handlers
//
// Returns:
//   - The tool execution result or an error if the tool failed
type ToolHandlerWithClient func(ctx context.Context, request mcp.CallToolRequest, mispClient misp.API) (*mcp.CallToolResult, error)

// ToolHandlerWithConfig defines tool handlers that require both server configuration
// and the MISP client. It is used by tools that need configuration data such as AI
// API keys or timeouts in addition to remote MISP access.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: The MCP tool call request containing arguments and metadata
//   - config: Pointer to the server configuration containing AI settings and other options
//   - mispClient: The authenticated MISP API handle shared by all handlers
//
// Returns:
//   - The tool execution result or an error if the tool failed
type ToolHandlerWithConfig func(ctx context.Context, request mcp.CallToolRequest, config *Config, mispClient misp.API) (*mcp.CallToolResult, error)

// ResourceHandler defines the signature for resource handlers that provide static or dynamic resources.
// It processes resource read requests and returns the resource contents.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: The MCP resource read request containing the resource URI
//
// Returns:
//   - A slice of resource contents or an error if the resource cannot be read
//
// Resource handlers can return multiple content items for complex resources.
type ResourceHandler = func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)

// ResourceHandlerWithClient defines resource handlers that query the MISP instance,
// such as the recent-event windows and the feed inventory.
type ResourceHandlerWithClient func(ctx context.Context, request mcp.ReadResourceRequest, mispClient misp.API) ([]mcp.ResourceContents, error)

// ResourceHandlerWithConfig defines resource handlers that expose server
// configuration, such as the sanitized active-config document.
type ResourceHandlerWithConfig func(ctx context.Context, request mcp.ReadResourceRequest, config *Config) ([]mcp.ResourceContents, error)

// PromptHandler defines the signature for prompt handlers that provide predefined prompts.
// It processes prompt requests and returns prompt content with optional arguments.
//
// Parameters:
//   - ctx: Context for cancellation and timeout handling
//   - request: The MCP prompt request containing the prompt name and arguments
//
// Returns:
//   - The prompt result containing messages and description, or an error if the prompt is not found
//
// Prompt handlers are used for guided workflows like incident triage or threat hunting.
type PromptHandler = func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error)

// ToolDefinition holds a tool definition and its handler.
// It pairs an MCP tool specification with its implementation function.
//
// Fields:
//   - Tool: The MCP tool definition containing name, description, and input schema
//   - Handler: The function that implements the tool's logic
//   - Role: Stable identifier used by the instructions template to reference the tool
//
// This struct is used when registering tools that don't require the MISP client
// or configuration access.
type ToolDefinition struct {
	Tool    mcp.Tool
	Handler ToolHandler
	Role    string
}

// ToolDefinitionWithClient holds a tool definition whose handler receives the
// MISP client. Most tools fall into this group: everything that performs a
// remote MISP call.
type ToolDefinitionWithClient struct {
	Tool    mcp.Tool
	Handler ToolHandlerWithClient
	Role    string
}

// ToolDefinitionWithConfig holds a tool definition that requires configuration access.
// It pairs an MCP tool specification with a handler that receives the server
// configuration and the MISP client.
//
// Fields:
//   - Tool: The MCP tool definition containing name, description, and input schema
//   - Handler: The function that implements the tool's logic with config access
//   - Role: Stable identifier used by the instructions template to reference the tool
//
// This struct is used for tools that need configuration like AI API keys or timeouts.
type ToolDefinitionWithConfig struct {
	Tool    mcp.Tool
	Handler ToolHandlerWithConfig
	Role    string
}

// ResourceDefinitionWithClient pairs an MCP resource with a handler that
// queries the MISP instance.
type ResourceDefinitionWithClient struct {
	Resource mcp.Resource
	Handler  ResourceHandlerWithClient
}

// ResourceDefinitionWithConfig pairs an MCP resource with a handler that
// reads the active server configuration.
type ResourceDefinitionWithConfig struct {
	Resource mcp.Resource
	Handler  ResourceHandlerWithConfig
}

// ServerDependencies holds all dependencies needed to create the MCP server.
// It consolidates all required components for server initialization using the builder pattern.
//
// Fields:
//   - Config: Server configuration containing MISP connection and AI settings
//   - Embed: Embedded filesystem for static resources and templates
//   - Version: Server version string for User-Agent headers and identification
//   - Client: Authenticated MISP API handle injected into client-bound handlers
//   - Tools: List of tool definitions without dependency requirements
//   - ToolsWithClient: List of tool definitions bound to the MISP client
//   - ToolsWithConfig: List of tool definitions that need configuration access
//   - Resources: List of static resources provided by the server
//   - ResourcesWithClient: List of resources that query the MISP instance
//   - ResourcesWithConfig: List of resources that expose server configuration
//   - Prompts: List of predefined prompts for guided workflows
//   - SamplingHandler: Handler for bidirectional AI communication and streaming responses
//   - Instructions: Rendered server instructions sent to clients at initialization
//   - PopulateCache: Whether Build() fills the metadata cache used by status resources
//
// This struct is used internally by ServerBuilder and should not be instantiated directly.
type ServerDependencies struct {
	Config              *Config
	Embed               templates.EmbedFS
	Version             string
	Client              misp.API
	Tools               []ToolDefinition
	ToolsWithClient     []ToolDefinitionWithClient
	ToolsWithConfig     []ToolDefinitionWithConfig
	Resources           []server.ServerResource
	ResourcesWithClient []ResourceDefinitionWithClient
	ResourcesWithConfig []ResourceDefinitionWithConfig
	Prompts             []server.ServerPrompt
	SamplingHandler     client.SamplingHandler
	Instructions        string
	PopulateCache       bool
}

// ServerBuilder helps construct the [MCP] server with proper dependencies using a fluent interface.
// It implements the builder pattern to configure and create MCP servers with all required components.
//
// The builder allows chaining configuration methods and provides default implementations
// for common dependencies. Use NewServerBuilder() to create an instance, chain configuration
// methods, and call Build() to create the server.
//
// Example:
//
//	builder := NewServerBuilder().
//	    WithConfig(config).
//	    WithVersion("1.0.0").
//	    WithClient(mispClient).
//	    WithDefaultTools().
//	    WithSampling(samplingHandler)
//	server, err := builder.Build()
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
type ServerBuilder struct{ deps ServerDependencies }

// NewServerBuilder creates a new server builder with default empty dependencies.
// It initializes a ServerBuilder instance that can be configured using the fluent interface methods.
//
// Returns:
//   - A pointer to a new ServerBuilder instance ready for configuration
//
// The returned builder has no dependencies configured and should be chained with
// configuration methods before calling Build().
func NewServerBuilder() *ServerBuilder { return &ServerBuilder{} }

// WithConfig sets the server configuration containing MISP connection and AI settings.
//
// Parameters:
//   - config: Pointer to the server configuration (can be nil for basic functionality)
//
// Returns:
//   - The ServerBuilder instance for method chaining
//
// If config is nil, tools that read configuration (like AI analysis) fall back
// to static guidance.
func (b *ServerBuilder) WithConfig(config *Config) *ServerBuilder {
	b.deps.Config = config
	return b
}

// WithEmbed sets the embedded filesystem for static resources and templates.
//
// Parameters:
//   - embed: The embedded filesystem (typically [templates.MagicEmbed])
//
// Returns:
//   - The ServerBuilder instance for method chaining
func (b *ServerBuilder) WithEmbed(embed templates.EmbedFS) *ServerBuilder {
	b.deps.Embed = embed
	return b
}

// WithVersion sets the server version string used for identification and User-Agent headers.
//
// Parameters:
//   - version: The server version string (e.g., "1.0.0" or "v1.2.3")
//
// Returns:
//   - The ServerBuilder instance for method chaining
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.deps.Version = version
	return b
}

// WithClient sets the MISP API handle injected into client-bound tool and
// resource handlers. Production code passes a [*misp.Client]; tests pass a
// fake implementing [misp.API].
//
// Parameters:
//   - mispClient: The MISP API implementation shared by all handlers
//
// Returns:
//   - The ServerBuilder instance for method chaining
func (b *ServerBuilder) WithClient(mispClient misp.API) *ServerBuilder {
	b.deps.Client = mispClient
	return b
}

// WithTools adds tool definitions to the server that don't require dependencies.
//
// Parameters:
//   - tools: Variable number of ToolDefinition structs containing tool specs and handlers
//
// Returns:
//   - The ServerBuilder instance for method chaining
//
// Tools added with this method receive neither the MISP client nor the server
// Config. Use WithToolsWithClient or WithToolsWithConfig for those.
func (b *ServerBuilder) WithTools(tools ...ToolDefinition) *ServerBuilder {
	b.deps.Tools = append(b.deps.Tools, tools...)
	return b
}

// WithToolsWithClient adds tool definitions bound to the MISP client.
//
// Parameters:
//   - tools: Variable number of ToolDefinitionWithClient structs
//
// Returns:
//   - The ServerBuilder instance for method chaining
func (b *ServerBuilder) WithToolsWithClient(tools ...ToolDefinitionWithClient) *ServerBuilder {
	b.deps.ToolsWithClient = append(b.deps.ToolsWithClient, tools...)
	return b
}

// WithToolsWithConfig adds tool definitions that require configuration access to the server.
// It registers multiple tools that receive the server Config and the MISP client in their handlers.
//
// Parameters:
//   - tools: Variable number of ToolDefinitionWithConfig structs containing tool specs and handlers
//
// Returns:
//   - The ServerBuilder instance for method chaining
func (b *ServerBuilder) WithToolsWithConfig(tools ...ToolDefinitionWithConfig) *ServerBuilder {
	b.deps.ToolsWithConfig = append(b.deps.ToolsWithConfig, tools...)
	return b
}

// WithResources adds static resources to the MCP server.
// It registers resources that can be read by MCP clients using resource URIs.
//
// Parameters:
//   - resources: Variable number of server.ServerResource structs containing resource specs and handlers
//
// Returns:
//   - The ServerBuilder instance for method chaining
//
// Clients access resources using URIs like "info://version".
func (b *ServerBuilder) WithResources(resources ...server.ServerResource) *ServerBuilder {
	b.deps.Resources = append(b.deps.Resources, resources...)
	return b
}

// WithResourcesWithClient adds resources whose handlers query the MISP
// instance, such as the recent-event windows.
func (b *ServerBuilder) WithResourcesWithClient(resources ...ResourceDefinitionWithClient) *ServerBuilder {
	b.deps.ResourcesWithClient = append(b.deps.ResourcesWithClient, resources...)
	return b
}

// WithResourcesWithConfig adds resources whose handlers read the active
// server configuration.
func (b *ServerBuilder) WithResourcesWithConfig(resources ...ResourceDefinitionWithConfig) *ServerBuilder {
	b.deps.ResourcesWithConfig = append(b.deps.ResourcesWithConfig, resources...)
	return b
}

// WithPrompts adds predefined prompts to the MCP server for guided workflows.
//
// Parameters:
//   - prompts: Variable number of server.ServerPrompt structs containing prompt specs and handlers
//
// Returns:
//   - The ServerBuilder instance for method chaining
//
// Prompts are used for workflows like incident triage or indicator enrichment,
// providing clients with predefined conversation starters and argument schemas.
func (b *ServerBuilder) WithPrompts(prompts ...server.ServerPrompt) *ServerBuilder {
	b.deps.Prompts = append(b.deps.Prompts, prompts...)
	return b
}

// WithSampling adds a sampling handler for bidirectional AI communication.
// It configures the server to support AI-powered features like event analysis.
//
// Parameters:
//   - handler: The sampling handler implementation for AI API integration
//
// Returns:
//   - The ServerBuilder instance for method chaining
//
// The sampling handler enables real-time AI analysis of events with streaming responses.
// If not set, AI-powered features will return static guidance messages.
func (b *ServerBuilder) WithSampling(handler client.SamplingHandler) *ServerBuilder {
	b.deps.SamplingHandler = handler
	return b
}

// WithInstructions sets the rendered server instructions delivered to MCP
// clients during initialization.
func (b *ServerBuilder) WithInstructions(instructions string) *ServerBuilder {
	b.deps.Instructions = instructions
	return b
}

// WithPopulate enables metadata cache population during Build(). The cache
// backs the status resources that report registered tools, resources, and
// prompts without another registry walk.
func (b *ServerBuilder) WithPopulate() *ServerBuilder {
	b.deps.PopulateCache = true
	return b
}

// WithDefaultTools adds the default MISP tools to the server.
// It automatically registers all standard threat-intelligence tools using createTools.
//
// Returns:
//   - The ServerBuilder instance for method chaining
//
// This includes tools for connectivity checks, event creation and search, attribute
// management, certificate observable derivation, and AI-powered analysis. The tools
// are distributed across the plain, client-bound, and config-bound lists as appropriate.
func (b *ServerBuilder) WithDefaultTools() *ServerBuilder {
	tools, toolsWithClient, toolsWithConfig := createTools()
	b.deps.Tools = append(b.deps.Tools, tools...)
	b.deps.ToolsWithClient = append(b.deps.ToolsWithClient, toolsWithClient...)
	b.deps.ToolsWithConfig = append(b.deps.ToolsWithConfig, toolsWithConfig...)
	return b
}

// WithDefaultResources adds the default resources (server info, documentation,
// configuration, status, recent-event windows, feed inventory) using createResources.
func (b *ServerBuilder) WithDefaultResources() *ServerBuilder {
	resources, resourcesWithConfig, resourcesWithClient := createResources()
	b.deps.Resources = append(b.deps.Resources, resources...)
	b.deps.ResourcesWithConfig = append(b.deps.ResourcesWithConfig, resourcesWithConfig...)
	b.deps.ResourcesWithClient = append(b.deps.ResourcesWithClient, resourcesWithClient...)
	return b
}

// WithDefaultPrompts adds the default guided workflow prompts using createPrompts.
func (b *ServerBuilder) WithDefaultPrompts() *ServerBuilder {
	b.deps.Prompts = append(b.deps.Prompts, createPrompts()...)
	return b
}

// Build creates the [MCP] server with all configured dependencies.
// It validates the configuration and constructs a fully configured MCP server instance.
//
// Returns:
//   - A pointer to the configured MCPServer instance
//   - An error if client-bound handlers were registered without a MISP client
//
// The method enables sampling if a sampling handler was provided, registers all tools,
// resources, and prompts, and returns a ready-to-use server. The server will handle
// MCP protocol communication and route requests to the appropriate handlers.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
func (b *ServerBuilder) Build() (*server.MCPServer, error) {
	if b.deps.Client == nil &&
		(len(b.deps.ToolsWithClient) > 0 || len(b.deps.ToolsWithConfig) > 0 || len(b.deps.ResourcesWithClient) > 0) {
		return nil, fmt.Errorf("a MISP client is required for the registered client-bound handlers")
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	}
	if b.deps.Instructions != "" {
		opts = append(opts, server.WithInstructions(b.deps.Instructions))
	}

	s := server.NewMCPServer(serverName, b.deps.Version, opts...)

	// Enable sampling for bidirectional AI communication if handler provided
	if b.deps.SamplingHandler != nil {
		s.EnableSampling()
		// Note: The sampling handler is managed internally by the server
		// when clients connect and request sampling
	}

	// Add tools
	for _, tool := range b.deps.Tools {
		s.AddTool(tool.Tool, tool.Handler)
	}

	// Add tools bound to the MISP client (wrap the handler)
	for _, tool := range b.deps.ToolsWithClient {
		handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return tool.Handler(ctx, request, b.deps.Client)
		}
		s.AddTool(tool.Tool, handler)
	}

	// Add tools that need config (wrap the handler)
	for _, tool := range b.deps.ToolsWithConfig {
		handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return tool.Handler(ctx, request, b.deps.Config, b.deps.Client)
		}
		s.AddTool(tool.Tool, handler)
	}

	// Add resources
	for _, resource := range b.deps.Resources {
		s.AddResource(resource.Resource, resource.Handler)
	}
	for _, resource := range b.deps.ResourcesWithConfig {
		handler := func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return resource.Handler(ctx, request, b.deps.Config)
		}
		s.AddResource(resource.Resource, handler)
	}
	for _, resource := range b.deps.ResourcesWithClient {
		handler := func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return resource.Handler(ctx, request, b.deps.Client)
		}
		s.AddResource(resource.Resource, handler)
	}

	// Add prompts
	for _, prompt := range b.deps.Prompts {
		s.AddPrompt(prompt.Prompt, prompt.Handler)
	}

	// Populate the metadata cache for status resources
	if b.deps.PopulateCache {
		cache := getServerCache()
		populateToolMetadataCache(cache, b.deps.Tools, b.deps.ToolsWithClient, b.deps.ToolsWithConfig)
		populatePromptMetadataCache(cache, b.deps.Prompts)
		populateResourceMetadataCache(cache, b.deps.Resources, b.deps.ResourcesWithConfig, b.deps.ResourcesWithClient)
	}

	return s, nil
}

// DefaultServerDependencies assembles the default dependency set for a serving
// MISP MCP server: the full tool, resource, and prompt catalog plus rendered
// instructions. The MISP client, configuration, and sampling handler are left
// unset; the serving path fills them in after loading configuration.
//
// Parameters:
//   - version: The server version string
//
// Returns:
//   - ServerDependencies ready to hand to a ServerBuilder
//   - An error if the instructions template cannot be rendered
func DefaultServerDependencies(version string) (ServerDependencies, error) {
	tools, toolsWithClient, toolsWithConfig := createTools()
	resources, resourcesWithConfig, resourcesWithClient := createResources()
	prompts := createPrompts()

	instructions, err := loadInstructions(tools, toolsWithClient, toolsWithConfig)
	if err != nil {
		return ServerDependencies{}, err
	}

	return ServerDependencies{
		Embed:               templates.MagicEmbed,
		Version:             version,
		Tools:               tools,
		ToolsWithClient:     toolsWithClient,
		ToolsWithConfig:     toolsWithConfig,
		Resources:           resources,
		ResourcesWithConfig: resourcesWithConfig,
		ResourcesWithClient: resourcesWithClient,
		Prompts:             prompts,
		Instructions:        instructions,
		PopulateCache:       true,
	}, nil
}

// DefaultSamplingHandler provides configurable AI API integration for bidirectional communication
type DefaultSamplingHandler struct {
	apiKey        string
	endpoint      string
	model         string
	timeout       time.Duration
	client        *http.Client
	version       string
	TokenCallback func(string) // Callback for streaming tokens
}

// NewDefaultSamplingHandler creates a new sampling handler with configurable AI settings
func NewDefaultSamplingHandler(config *Config, version string) *DefaultSamplingHandler {
	return &DefaultSamplingHandler{
		apiKey:   config.AI.APIKey,
		endpoint: config.AI.Endpoint,
		model:    config.AI.Model,
		version:  version,
		timeout:  time.Duration(config.AI.Timeout) * time.Second,
		client:   &http.Client{Timeout: time.Duration(config.AI.Timeout) * time.Second},
	}
}

// CreateMessage handles sampling requests by calling the configured AI API
func (h *DefaultSamplingHandler) CreateMessage(ctx context.Context, request mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error) {
	// Get buffer from pool for efficient memory usage
	// Note: Buffer is primarily used for error response reading.
	// During successful streaming, it remains allocated but unused until the function returns.
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()         // Reset buffer to prevent data leaks
		gc.Default.Put(buf) // Return buffer to pool for reuse
	}()

	// If no API key, return guidance for enabling AI integration
	if h.apiKey == "" {
		return h.handleNoAPIKey()
	}

	// Convert MCP messages to OpenAI-compatible format
	messages := h.convertMessages(request.Messages)

	// Prepare API request
	model := h.selectModel(request.ModelPreferences)
	requestMessages := h.prepareMessages(messages, request.SystemPrompt)
	apiRequest := h.buildAPIRequest(model, requestMessages, request)

	// Create and send HTTP request
	resp, err := h.sendAPIRequest(ctx, apiRequest, buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Check response status
	if resp.StatusCode != http.StatusOK {
		return nil, h.handleAPIError(resp, buf)
	}

	// Handle streaming response
	content, modelName, stopReason, err := h.parseStreamingResponse(resp.Body, model)
	if err != nil {
		return nil, fmt.Errorf("error reading streaming response: %w", err)
	}

	return h.buildSamplingResult(content, modelName, stopReason), nil
}

// handleNoAPIKey returns a helpful message when no API key is configured
func (h *DefaultSamplingHandler) handleNoAPIKey() (*mcp.CreateMessageResult, error) {
	response := "AI API key not configured. Set MISP_AI_APIKEY or configure the ai.apiKey field in config.json to enable event analysis. " +
		"Until then, the server will return static information only."

	return &mcp.CreateMessageResult{
		SamplingMessage: mcp.SamplingMessage{
			Role:    mcp.RoleAssistant,
			Content: mcp.NewTextContent(response),
		},
		Model:      "not-configured",
		StopReason: "end",
	}, nil
}

// convertMessages converts MCP messages to OpenAI-compatible format
func (h *DefaultSamplingHandler) convertMessages(mcpMessages []mcp.SamplingMessage) []map[string]any {
	var messages []map[string]any
	for _, msg := range mcpMessages {
		message := map[string]any{
			"role": string(msg.Role),
		}

		// Handle different content types
		if textContent, ok := msg.Content.(mcp.TextContent); ok {
			message["content"] = textContent.Text
		} else {
			// For other content types, convert to string representation
			message["content"] = fmt.Sprintf("%v", msg.Content)
		}

		messages = append(messages, message)
	}
	return messages
}

// selectModel chooses the appropriate model based on preferences
func (h *DefaultSamplingHandler) selectModel(preferences *mcp.ModelPreferences) string {
	model := h.model // Use configured default model
	if preferences != nil && len(preferences.Hints) > 0 {
		// Use the first model hint if available
		model = preferences.Hints[0].Name
	}
	return model
}

// prepareMessages adds system prompt if provided
func (h *DefaultSamplingHandler) prepareMessages(messages []map[string]any, systemPrompt string) []map[string]any {
	if systemPrompt == "" {
		return messages
	}

	systemMessage := map[string]any{
		"role":    "system",
		"content": systemPrompt,
	}
	return append([]map[string]any{systemMessage}, messages...)
}

// buildAPIRequest creates the API request payload
func (h *DefaultSamplingHandler) buildAPIRequest(model string, messages []map[string]any, request mcp.CreateMessageRequest) map[string]any {
	apiRequest := map[string]any{
		"model":       model,
		"messages":    messages,
		"max_tokens":  request.MaxTokens,
		"temperature": request.Temperature,
		"stream":      true, // Enable streaming for better performance and real-time responses
	}

	// Add stop sequences if provided
	if len(request.StopSequences) > 0 {
		apiRequest["stop"] = request.StopSequences
	}

	return apiRequest
}

// sendAPIRequest creates and sends the HTTP request
func (h *DefaultSamplingHandler) sendAPIRequest(ctx context.Context, apiRequest map[string]any, _ gc.Buffer) (*http.Response, error) {
	// Marshal request to JSON
	reqBody, err := json.Marshal(apiRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal API request: %w", err)
	}

	// Create HTTP request using bytes.Reader for request body
	req, err := http.NewRequestWithContext(ctx, "POST", h.endpoint+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("User-Agent", "MISP-MCP-Server/"+h.version+" (+https://github.com/H0llyW00dzZ/misp-mcp-server)")

	// Make the request
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	return resp, nil
}

// handleAPIError processes API error responses
func (h *DefaultSamplingHandler) handleAPIError(resp *http.Response, buf gc.Buffer) error {
	// Read error response body using buffer pool
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("AI API error (status %d): failed to read error response: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(buf.Bytes()))
}

// parseStreamingResponse handles the streaming response parsing
func (h *DefaultSamplingHandler) parseStreamingResponse(body io.Reader, defaultModel string) (string, string, string, error) {
	var fullContent strings.Builder
	modelName := defaultModel
	stopReason := "stop"

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		// Parse Server-Sent Events format
		if data, found := strings.CutPrefix(line, "data: "); found {
			// Handle end of stream
			if data == "[DONE]" {
				break
			}

			// Parse JSON chunk
			var chunk map[string]any
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue // Skip malformed chunks
			}

			// Extract model name if available
			if modelFromChunk, ok := chunk["model"].(string); ok && modelName == defaultModel {
				modelName = modelFromChunk
			}

			// Process choices
			if choices, ok := chunk["choices"].([]any); ok && len(choices) > 0 {
				if choice, ok := choices[0].(map[string]any); ok {
					// Extract delta content
					if delta, ok := choice["delta"].(map[string]any); ok {
						if content, ok := delta["content"].(string); ok {
							fullContent.WriteString(content)
							// Stream token via callback if configured
							if h.TokenCallback != nil {
								h.TokenCallback(content)
							}
						}
					}

					// Check for finish reason
					if finishReason, ok := choice["finish_reason"].(string); ok && finishReason != "" {
						stopReason = finishReason
					}
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", "", err
	}

	return fullContent.String(), modelName, stopReason, nil
}

// buildSamplingResult creates the final sampling result
func (h *DefaultSamplingHandler) buildSamplingResult(content, modelName, stopReason string) *mcp.CreateMessageResult {
	return &mcp.CreateMessageResult{
		SamplingMessage: mcp.SamplingMessage{
			Role:    mcp.RoleAssistant,
			Content: mcp.NewTextContent(content),
		},
		Model:      modelName,
		StopReason: stopReason,
	}
}
