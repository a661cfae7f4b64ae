// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package mcpserver provides the [MCP] server framework for [MISP] threat intelligence.
// It implements the Model Context Protocol ([MCP]) server with tools for event and
// attribute operations against a remote MISP instance, including connectivity checks,
// event creation and search, indicator management, and AI-powered event analysis.
// The package uses a builder pattern for server construction and supports bidirectional AI communication.
//
// [MISP]: https://www.misp-project.org/
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
package mcpserver
