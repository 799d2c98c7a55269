package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List the PDF documents a user has uploaded, marking the active one."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Id of the user whose documents to list"),
	),
)

// searchDocumentTool defines the search_document MCP tool.
var searchDocumentTool = mcp.NewTool("search_document",
	mcp.WithDescription("Semantically search the user's active PDF document and return the closest passages."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Id of the user whose active document to search"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 8)"),
	),
)

// askTool defines the ask MCP tool.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask a question. It is answered from the user's active PDF document when one is selected, otherwise as general chat."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Id of the user asking"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithString("language",
		mcp.Description("Response language (default English)"),
		mcp.Enum("English", "Spanish", "French", "German", "Hindi", "Arabic", "Chinese", "Japanese", "Portuguese", "Russian"),
	),
)
