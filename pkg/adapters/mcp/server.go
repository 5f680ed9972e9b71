package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/persona/internal/input"
	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/internal/presentation/graph"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// EngagementsURI lists the live engagements.
	EngagementsURI = "persona://engagements"
	// RoleGraphURI is the template of the Mermaid graph of a role.
	RoleGraphURI = "persona://roles/{id}/graph"
)

// Engine is the engagement API exposed to MCP clients.
type Engine interface {
	ports.Interactor
	Role(ctx context.Context, id string) (*domain.Role, error)
}

// CreateArgs are the arguments of create_engagement.
type CreateArgs struct {
	Agent  string `json:"agent"`
	Role   string `json:"role"`
	Target string `json:"target,omitempty"`
}

// EngagementArgs identify an engagement.
type EngagementArgs struct {
	EngagementID string `json:"engagement_id"`
}

// InteractArgs are the arguments of interact.
type InteractArgs struct {
	EngagementID string `json:"engagement_id"`
	Input        string `json:"input"`
}

// Created is the result of create_engagement.
type Created struct {
	EngagementID string `json:"engagement_id" jsonschema_description:"Identifier to pass to the other tools"`
}

// EngagementList is the result of list_engagements.
type EngagementList struct {
	Engagements []string `json:"engagements"`
}

// Server wraps the Persona Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("persona-mcp", version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_engagement",
		mcp.WithDescription("Bind a new agent to a role and start a conversation."),
		mcp.WithString("agent", mcp.Required(), mcp.Description("Agent template id")),
		mcp.WithString("role", mcp.Required(), mcp.Description("Role template id")),
		mcp.WithString("target", mcp.Description("Target template id (optional)")),
		mcp.WithOutputSchema[Created](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("interact",
		mcp.WithDescription("Send one user utterance to an engagement and get the agent's response."),
		mcp.WithString("engagement_id", mcp.Required(), mcp.Description("Engagement id")),
		mcp.WithString("input", mcp.Required(), mcp.Description("What the user said")),
		mcp.WithOutputSchema[domain.AgentResponse](),
	), mcp.NewStructuredToolHandler(s.handleInteract))

	s.mcpServer.AddTool(mcp.NewTool("inspect_engagement",
		mcp.WithDescription("Get the current state, state statuses and history of an engagement."),
		mcp.WithString("engagement_id", mcp.Required(), mcp.Description("Engagement id")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleInspect))

	s.mcpServer.AddTool(mcp.NewTool("delete_engagement",
		mcp.WithDescription("End an engagement and drop its transcript."),
		mcp.WithString("engagement_id", mcp.Required(), mcp.Description("Engagement id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("engagement_id", "")
		if err := s.engine.DeleteEngagement(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcp.NewToolResultText("deleted " + id), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("list_engagements",
		mcp.WithDescription("List the live engagements."),
		mcp.WithOutputSchema[EngagementList](),
	), mcp.NewStructuredToolHandler(s.handleList))
}

func (s *Server) handleCreate(ctx context.Context, _ mcp.CallToolRequest, args CreateArgs) (Created, error) {
	id, err := s.engine.CreateEngagement(ctx, ports.CreateRequest{Agent: args.Agent, Role: args.Role, Target: args.Target})
	if err != nil {
		return Created{}, err
	}
	s.logger.Info("MCP: engagement created", "engagement_id", id, "role", args.Role)
	return Created{EngagementID: id}, nil
}

func (s *Server) handleInteract(ctx context.Context, _ mcp.CallToolRequest, args InteractArgs) (domain.AgentResponse, error) {
	clean, err := input.Sanitize(args.Input)
	if err != nil {
		s.logger.Warn("MCP interact: input rejected", "err", err, "size", len(args.Input))
		return domain.AgentResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	return s.engine.Interact(ctx, args.EngagementID, clean)
}

func (s *Server) handleInspect(ctx context.Context, _ mcp.CallToolRequest, args EngagementArgs) (domain.Snapshot, error) {
	return s.engine.Inspect(ctx, args.EngagementID)
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (EngagementList, error) {
	ids, err := s.engine.Engagements(ctx)
	if ids == nil {
		ids = []string{}
	}
	return EngagementList{Engagements: ids}, err
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(EngagementsURI, "Live engagements",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.Engagements(ctx)
		if err != nil {
			return nil, err
		}
		data, _ := json.Marshal(EngagementList{Engagements: ids})
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: EngagementsURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(RoleGraphURI, "Role graph",
		mcp.WithTemplateDescription("Mermaid flowchart of a role's states and transitions"),
		mcp.WithTemplateMIMEType("text/plain"),
	), s.readRoleGraph)
}

func (s *Server) readRoleGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, ok := roleFromURI(uri)
	if !ok {
		return nil, fmt.Errorf("invalid role graph uri %q", uri)
	}
	role, err := s.engine.Role(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: graph.GenerateMermaid(role, nil)},
	}, nil
}

// roleFromURI extracts the id of persona://roles/{id}/graph.
func roleFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, "persona://roles/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/graph")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
