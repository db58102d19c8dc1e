package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	record, err := s.ports.Answerer.Ask(ctx, question, req.GetInt("top_k", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(record)
}

func (s *Server) handleHistory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	versions, err := s.ports.Lifecycle.ListVersions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if versions == nil {
		versions = []domain.IndexVersion{}
	}
	return jsonResult(map[string]any{"versions": versions})
}

func (s *Server) handleMonitor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		report *domain.MonitorReport
		err    error
	)
	if req.GetBool("run", false) {
		report, err = s.ports.Monitor.RunSample(ctx)
	} else {
		report, err = s.ports.Monitor.LatestReport(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
