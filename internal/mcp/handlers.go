package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/index"
)

// handleListDocuments lists the user's uploaded documents.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}

	docs, err := s.docs.List(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents uploaded yet. Use `pdfchat import` or the web upload to add one."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d document(s):\n\n", len(docs))
	for _, d := range docs {
		marker := " "
		if d.IsActive {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %s  %s  (%d pages, uploaded %s)\n",
			marker, d.ID, d.Filename, d.PageCount, d.UploadedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchDocument retrieves passages from the active document.
func (s *Server) handleSearchDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 8)
	if limit <= 0 {
		limit = 8
	}

	matches, err := s.engine.Search(ctx, userID, query, limit)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("No active document. Select or upload a document first."), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return mcp.NewToolResultText(index.FormatMatches(matches)), nil
}

// handleAsk answers a question through the conversation engine.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	language := request.GetString("language", "English")

	reply, err := s.engine.Respond(ctx, userID, question, language)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := reply.Answer
	if reply.HasDocument() {
		text += fmt.Sprintf("\n\n(source: %s, %d passages)", reply.DocumentName, reply.Retrieved)
	}
	return mcp.NewToolResultText(text), nil
}
