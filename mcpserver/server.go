// Package mcpserver exposes the scheduling tools to MCP clients.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/logging"
	"github.com/hupe1980/carebook/schedule"
	"github.com/hupe1980/carebook/tool"
)

// Name and Version identify the server to clients.
const (
	Name    = "carebook-mcp"
	Version = "1.0.0"
)

// Options configures a Server.
type Options struct {
	Logger logging.Logger
	// ToolTimeout bounds a single tool call. 0 disables it.
	ToolTimeout time.Duration
	// ReadOnly exposes the availability tools only.
	ReadOnly bool
}

// Server wraps the domain tools in an MCP server.
type Server struct {
	mcpServer *server.MCPServer
	tools     map[string]tool.Tool
	opts      Options
}

// New registers the domain tools bound to store.
func New(store schedule.Store, optFns ...func(o *Options)) (*Server, error) {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		ToolTimeout: 15 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{
		mcpServer: server.NewMCPServer(Name, Version, server.WithToolCapabilities(false), server.WithRecovery()),
		tools:     make(map[string]tool.Tool),
		opts:      opts,
	}

	st := tool.NewScheduleTools(store)
	tools := st.All()
	if opts.ReadOnly {
		tools = st.InfoTools()
	}

	for _, t := range tools {
		if err := s.register(t); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Server) register(t tool.Tool) error {
	schemaJSON, err := json.Marshal(t.Parameters())
	if err != nil {
		return fmt.Errorf("marshal schema of %s: %w", t.Name(), err)
	}

	s.tools[t.Name()] = t
	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), schemaJSON), s.handler(t))

	return nil
}

func (s *Server) handler(t tool.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := s.Call(ctx, t.Name(), request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// Call executes a registered tool directly and renders its result as text.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := s.tools[name]
	if !ok {
		return "", tool.NewToolError(name, "unknown tool", tool.CodeUnknown)
	}

	if args == nil {
		args = map[string]any{}
	}

	if s.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ToolTimeout)
		defer cancel()
	}

	callID := core.NewID()
	start := time.Now()

	result, err := t.Call(core.NewToolContext(ctx, "mcp", Name, callID, s.opts.Logger), args)

	s.opts.Logger.Info("mcp.tool.executed", "tool", name, "fc_id", callID, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)

	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal result of %s: %w", name, err)
		}
		return string(b), nil
	}
}

// Tools returns the names of the exposed tools.
func (s *Server) Tools() []string {
	out := make([]string, 0, len(s.tools))
	for name := range s.tools {
		out = append(out, name)
	}
	return out
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
