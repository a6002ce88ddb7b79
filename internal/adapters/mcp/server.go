// Package mcpadapter exposes the retrieval engine as Model Context Protocol
// tools so agent runtimes can search the knowledge base over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

type Server struct {
	mcp *server.MCPServer
}

func NewServer(version string, searchUC ports.SearchService, catalog ports.ProviderCatalog) *Server {
	s := server.NewMCPServer(
		"knowledge-retrieval",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(searchTool(), searchHandler(searchUC))
	s.AddTool(listProvidersTool(), listProvidersHandler(catalog))

	return &Server{mcp: s}
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Search the knowledge base with hybrid vector and full-text retrieval."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language search query."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of documents to return (default 10)."),
		),
		mcp.WithString("mode",
			mcp.Description("Retrieval mode."),
			mcp.Enum("hybrid", "vector", "fts"),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Minimum cosine similarity for vector matches, 0..1."),
		),
		mcp.WithString("collection_id",
			mcp.Description("Restrict results to one collection."),
		),
	)
}

func searchHandler(searchUC ports.SearchService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		req := domain.SearchRequest{
			Query:    query,
			Limit:    request.GetInt("limit", 0),
			Mode:     domain.SearchMode(request.GetString("mode", "")),
			MinScore: request.GetFloat("min_score", 0),
			Filter: domain.SearchFilter{
				CollectionID: request.GetString("collection_id", ""),
			},
		}

		resp, err := searchUC.Search(ctx, req)
		if err != nil {
			if domain.IsKind(err, domain.ErrValidation) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, fmt.Errorf("search: %w", err)
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("marshal search response: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func listProvidersTool() mcp.Tool {
	return mcp.NewTool("list_providers",
		mcp.WithDescription("List the embedding providers registered in this deployment."),
	)
}

func listProvidersHandler(catalog ports.ProviderCatalog) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := json.Marshal(catalog.List())
		if err != nil {
			return nil, fmt.Errorf("marshal providers: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
