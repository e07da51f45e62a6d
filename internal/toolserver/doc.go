// Package toolserver exposes ledger operations as MCP tool calls over HTTP.
//
// A client POSTs a protocol.CallToolRequest to /tools/call and receives a
// protocol.CallToolResult whose text content is JSON. Tool failures come
// back as results with IsError set; transport-level problems (bad JSON,
// unknown tool, missing token) use HTTP status codes.
//
// Tools: log_meal, delete_meal, reconcile, list_entries.
package toolserver
