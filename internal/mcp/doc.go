// Package mcp exposes the crane service as Model Context Protocol tools.
//
// A ToolServer keeps a registry of tools built on the official MCP SDK. The
// registry can be called in-process with CallTool, or served to an MCP
// client over any SDK transport with Run (cranectl serves it over stdio).
//
// Tool failures are reported as error results, never as transport errors,
// so a client always receives a well-formed reply.
package mcp
