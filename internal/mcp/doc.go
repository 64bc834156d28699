// Package mcp exposes weekpulse over the Model Context Protocol.
//
// The server runs on the stdio transport and registers tools for the weekly
// snapshot, insight generation, saved history and analytics. Tool inputs
// carry the same JSON shapes as the HTTP API. A small tool registry backs
// tool_list and tool_search so clients can discover tools by keyword.
package mcp
