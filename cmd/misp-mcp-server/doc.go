// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
// Use of this source code is governed by a BSD 3-Clause
// license that can be found in the LICENSE file.

// misp-mcp-server is a command-line tool and MCP server that exposes a MISP
// threat-intelligence instance to MCP clients and AI assistants.
//
// # Installation
//
// Install with Go 1.25.5 or later:
//
//	go install github.com/H0llyW00dzZ/misp-mcp-server/cmd/misp-mcp-server@latest
//
// # Usage
//
//	misp-mcp-server [COMMAND] [FLAGS]
//
// Running without arguments starts the MCP server on the configured
// transport (stdio by default).
//
// # Commands
//
//	check    Verify connectivity and authentication against the MISP instance
//	search   Search MISP events by time window, tags, and threat level
//
// # Flags
//
//	    --config        Path to JSON or YAML configuration file
//	    --instructions  Print usage workflows for threat intelligence operations
//	-h, --help          Show help
//	-v, --version       Show version
//
// # Examples
//
// Start the MCP server with environment configuration:
//
//	MISP_URL=https://misp.example.org MISP_API_KEY=... misp-mcp-server
//
// Verify connectivity:
//
//	misp-mcp-server check
//
// Search the last week's high-threat events:
//
//	misp-mcp-server search --days-back 7 --threat-level 1
package main
