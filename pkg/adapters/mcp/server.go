// Package mcp exposes the process catalog to MCP clients.
//
// All tools are read-only; editing goes through the console and its save.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/procmeta"
	"github.com/aretw0/procmeta/internal/logging"
	"github.com/aretw0/procmeta/internal/presentation/graph"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TypesURI is the resource listing every process type.
const TypesURI = "procmeta://types"

// TypeDetail is a type together with its states and operations.
type TypeDetail struct {
	Type       domain.ProcessType        `json:"type" jsonschema_description:"The process type"`
	States     []domain.ProcessState     `json:"states" jsonschema_description:"States of the type"`
	Operations []domain.ProcessOperation `json:"operations" jsonschema_description:"Operations of the type"`
}

// TypeList wraps a list of types for structured output.
type TypeList struct {
	Types []domain.ProcessType `json:"types"`
}

// StateList wraps a list of states for structured output.
type StateList struct {
	States []domain.ProcessState `json:"states"`
}

// OperationList wraps a list of operations for structured output.
type OperationList struct {
	Operations []domain.ProcessOperation `json:"operations"`
}

type typeArgs struct {
	Code string `json:"code"`
}

type noArgs struct{}

// Server wraps a catalog and exposes it as an MCP server.
type Server struct {
	catalog   ports.Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server backed by catalog.
func NewServer(catalog ports.Catalog, opts ...Option) *Server {
	s := &Server{
		catalog:   catalog,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("procmeta-mcp", strings.TrimSpace(procmeta.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_types",
		mcp.WithDescription("List every process type ordered by code."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[TypeList](),
	), mcp.NewStructuredToolHandler(s.handleListTypes))

	s.mcpServer.AddTool(mcp.NewTool("get_type",
		mcp.WithDescription("Get a process type with its states and operations."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Type code")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[TypeDetail](),
	), mcp.NewStructuredToolHandler(s.handleGetType))

	s.mcpServer.AddTool(mcp.NewTool("list_states",
		mcp.WithDescription("List the states of a process type."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Type code")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[StateList](),
	), mcp.NewStructuredToolHandler(s.handleListStates))

	s.mcpServer.AddTool(mcp.NewTool("list_operations",
		mcp.WithDescription("List the operations of a process type."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Type code")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[OperationList](),
	), mcp.NewStructuredToolHandler(s.handleListOperations))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render the states and operations of a type as a Mermaid diagram."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Type code")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetGraph)
}

func (s *Server) handleListTypes(ctx context.Context, _ mcp.CallToolRequest, _ noArgs) (TypeList, error) {
	types, err := s.catalog.ListTypes(ctx)
	if err != nil {
		return TypeList{}, fmt.Errorf("list types: %w", err)
	}
	return TypeList{Types: types}, nil
}

func (s *Server) handleGetType(ctx context.Context, _ mcp.CallToolRequest, args typeArgs) (TypeDetail, error) {
	return s.detail(ctx, args.Code)
}

func (s *Server) handleListStates(ctx context.Context, _ mcp.CallToolRequest, args typeArgs) (StateList, error) {
	d, err := s.detail(ctx, args.Code)
	if err != nil {
		return StateList{}, err
	}
	return StateList{States: d.States}, nil
}

func (s *Server) handleListOperations(ctx context.Context, _ mcp.CallToolRequest, args typeArgs) (OperationList, error) {
	d, err := s.detail(ctx, args.Code)
	if err != nil {
		return OperationList{}, err
	}
	return OperationList{Operations: d.Operations}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.detail(ctx, code)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(d.States, d.Operations, nil)), nil
}

func (s *Server) detail(ctx context.Context, code string) (TypeDetail, error) {
	if code == "" {
		return TypeDetail{}, errors.New("code is required")
	}
	t, err := s.catalog.GetType(ctx, code)
	if err != nil {
		return TypeDetail{}, fmt.Errorf("get type %q: %w", code, err)
	}
	states, err := s.catalog.ListStates(ctx, t.ID)
	if err != nil {
		return TypeDetail{}, fmt.Errorf("list states of %q: %w", code, err)
	}
	ops, err := s.catalog.ListOperations(ctx, t.ID)
	if err != nil {
		return TypeDetail{}, fmt.Errorf("list operations of %q: %w", code, err)
	}
	s.logger.Debug("MCP type read", "code", code, "states", len(states), "operations", len(ops))
	return TypeDetail{Type: t, States: states, Operations: ops}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TypesURI, "Process types",
		mcp.WithResourceDescription("Every process type as a flat list; parent_id links form the tree."),
		mcp.WithMIMEType("application/json"),
	), s.readTypes)
}

func (s *Server) readTypes(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	types, err := s.catalog.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list types: %w", err)
	}
	data, err := json.Marshal(types)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TypesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
