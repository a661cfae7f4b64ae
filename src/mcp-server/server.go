// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/logger"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/version"
	"github.com/mark3labs/mcp-go/server"
)

var appVersion = version.Version // default version

// GetVersion returns the current version of the MCP server.
//
// GetVersion provides access to the server's version string, which is set
// during server initialization via the Run function. This allows other
// components to access the version information for logging, user-agent
// strings, or API responses.
//
// Returns:
//   - string: The current server version (e.g., "0.1.0")
//
// The version is initially set to the default from the version package,
// but can be overridden when calling Run() with a specific version string.
func GetVersion() string {
	return appVersion
}

// Run starts the MCP server with the MISP threat intelligence tools.
//
// Run initializes and starts the MCP server with all event and attribute
// operations, certificate observable derivation, AI-powered event analysis,
// and resource monitoring. The server supports graceful shutdown via SIGINT
// and SIGTERM.
//
// Parameters:
//   - version: Version string to set for the server (e.g., "0.1.0")
//
// Returns:
//   - error: Server startup or runtime error, or graceful shutdown signal
//
// Configuration:
//   - Loads config from MISP_MCP_CONFIG_FILE environment variable
//   - Environment variables (MISP_URL, MISP_API_KEY, ...) take precedence
//   - Validates required connection settings before serving
//
// Server Lifecycle:
//  1. Load and validate configuration from environment
//  2. Construct the MISP client and probe connectivity (warning only)
//  3. Set up signal handling for graceful shutdown
//  4. Build MCP server using ServerBuilder pattern
//  5. Start the configured transport (stdio or streamable HTTP)
//  6. Wait for either server error or shutdown signal
//
// Error Handling:
//   - Configuration errors: Returned verbatim, naming the offending variable
//   - Server build errors: Wrapped with "failed to build server" prefix
//   - Shutdown errors: Wrapped with "server shutdown" prefix
func Run(version string) error {
	// Set the version for GetVersion
	appVersion = version

	// MCP clients own stdout on the stdio transport, so all logging goes to
	// stderr.
	l := logger.NewMCPLogger(os.Stderr, false)

	// Load and validate configuration
	config, err := loadConfig("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	// Construct the MISP client shared by all client-bound handlers
	mispClient, err := misp.NewClient(config.ClientConfig(version))
	if err != nil {
		return fmt.Errorf("failed to create MISP client: %w", err)
	}

	// Assemble the default tool, resource, and prompt catalog with rendered
	// instructions
	deps, err := DefaultServerDependencies(version)
	if err != nil {
		return fmt.Errorf("failed to load instructions: %w", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Probe connectivity once at startup. A failure is logged but does not
	// abort serving: the instance may come up later, and every tool reports
	// the same classified error anyway.
	if info, err := mispClient.TestConnection(ctx); err != nil {
		l.Printf("Warning: MISP connection check failed: %v", err)
	} else {
		l.Printf("Connected to MISP %s at %s", info.Version, config.MISP.URL)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Create MCP server using ServerBuilder for better testability
	s, err := NewServerBuilder().
		WithConfig(config).
		WithEmbed(deps.Embed).
		WithVersion(version).
		WithClient(mispClient).
		WithSampling(NewDefaultSamplingHandler(config, version)).
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
		return fmt.Errorf("failed to build server: %w", err)
	}

	// Start the configured transport with graceful shutdown support
	errChan := make(chan error, 1)
	switch config.Server.Transport {
	case transportHTTP:
		httpServer := server.NewStreamableHTTPServer(s)
		addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
		l.Printf("MISP MCP server listening on http://%s/mcp", addr)
		go func() {
			errChan <- httpServer.Start(addr)
		}()
		go func() {
			<-ctx.Done()
			httpServer.Shutdown(context.Background())
		}()
	default:
		stdioServer := server.NewStdioServer(s)
		l.Printf("MISP MCP server started on stdio.")
		go func() {
			errChan <- stdioServer.Listen(ctx, os.Stdin, os.Stdout)
		}()
	}

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		// Graceful shutdown triggered by signal
		return fmt.Errorf("server shutdown: %w", ctx.Err())
	}
}
