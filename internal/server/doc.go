// Package server implements the MCP (Model Context Protocol) control surface
// for a running marker pipeline.
//
// The server speaks JSON-RPC 2.0, one request per line, and exposes the
// pipeline's live state and configuration as tools. It shares the pipeline
// with the frame runner, so every change takes effect at the next frame.
//
// # Protocol
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Notifications (requests without an id) are consumed without a response.
//
// # Available Tools
//
// Pipeline state:
//   - markers_status: Frame count, stabilizer window, cooldowns, journal
//   - markers_reset: Clear the window, last emitted code and cooldowns
//   - markers_trigger: Dispatch a code through the cooldown gate
//   - markers_test_actuator: Run the actuator's self test
//
// Tuning:
//   - markers_get_tuning, markers_set_tuning
//
// Color profiles and mapping:
//   - markers_list_profiles, markers_set_profile, markers_delete_profile
//   - markers_save_profiles
//   - markers_set_mapping
//
// Inspection:
//   - markers_detect_image: Detect markers in an image file
//   - markers_debug_masks: Per-color masks as PNG
//
// Changes are in-memory unless the call sets "save"; saving writes the
// configured file atomically.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(log, pipe, server.Options{Version: version, Files: files})
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Errorf("mcp: %v", err)
//	}
package server
