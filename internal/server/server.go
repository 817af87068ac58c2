package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/markerctl/internal/actuator"
	"github.com/ironsheep/markerctl/internal/imaging"
	"github.com/ironsheep/markerctl/internal/journal"
	"github.com/ironsheep/markerctl/internal/pipeline"
)

// Files names the configuration files the save tools write to. Empty paths
// disable saving that kind of configuration.
type Files struct {
	Colors  string
	Mapping string
	Tuning  string
}

// Options configure a Server. Journal and Actuator may be nil.
type Options struct {
	Version  string
	Files    Files
	Journal  *journal.Journal
	Actuator actuator.Actuator

	// Headless keeps frame annotation off whatever markers_set_tuning asks for.
	Headless bool
}

// Server handles MCP protocol communication
type Server struct {
	log   logs.Log
	pipe  *pipeline.Pipeline
	opts  Options
	cache *imaging.ImageCache

	// ctx is the Run context, used by tools that reach hardware.
	ctx context.Context
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server for pipe.
func New(log logs.Log, pipe *pipeline.Pipeline, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{
		log:   log,
		pipe:  pipe,
		opts:  opts,
		cache: imaging.NewImageCache(),
		ctx:   context.Background(),
	}
}

// Run reads requests from in and writes responses to out until in is
// exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.ctx = ctx

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		// Increase buffer size for large requests
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	encoder := json.NewEncoder(out)

	for {
		var line []byte
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			break
		}
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warnf("mcp: failed to parse request: %v", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Errorf("mcp: failed to encode response: %v", err)
			}
		}
	}

	select {
	case err := <-scanErr:
		if err != nil {
			return fmt.Errorf("scanner error: %w", err)
		}
	case <-ctx.Done():
		// The reader gave up without a scan result.
	}
	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "markerctl",
				"version": s.opts.Version,
			},
		},
	}
}
