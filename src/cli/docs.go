// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package cli provides the command-line interface for the MISP MCP server.
// It implements a Cobra-based CLI whose default behavior starts the MCP server
// on the configured transport, plus subcommands for direct MISP access:
// connectivity checks and event searches rendered as ASCII tables.
// The package handles context cancellation and integrates with the logger
// package for user-facing output and error reporting.
package cli
