package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/pdfchat/internal/conversation"
	"github.com/ziadkadry99/pdfchat/internal/documents"
	"github.com/ziadkadry99/pdfchat/internal/index"
)

// Version is set via ldflags at build time.
var Version = "dev"

// DocumentLister lists a user's documents.
type DocumentLister interface {
	List(ctx context.Context, userID string) ([]documents.Document, error)
}

// Answerer searches and answers against a user's active document.
type Answerer interface {
	Search(ctx context.Context, userID, query string, k int) ([]index.Match, error)
	Respond(ctx context.Context, userID, message, language string) (*conversation.Reply, error)
}

// Server wraps an MCP server that exposes the document tools.
type Server struct {
	docs   DocumentLister
	engine Answerer
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(docs DocumentLister, engine Answerer) *Server {
	s := &Server{
		docs:   docs,
		engine: engine,
	}

	s.mcp = server.NewMCPServer(
		"pdfchat",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	s.mcp.AddTool(searchDocumentTool, s.handleSearchDocument)
	s.mcp.AddTool(askTool, s.handleAsk)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
