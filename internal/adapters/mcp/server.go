// Package mcp exposes question answering, version history and the corpus
// monitor as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

const Version = "0.1.0"

var ErrMissingAnswerer = errors.New("mcp: question answerer is required")

type Ports struct {
	Answerer  ports.QuestionAnswerer
	Lifecycle ports.IndexLifecycle
	Monitor   ports.CorpusMonitor
}

// Validate requires the answerer; history and monitor tools are only
// registered when their ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Answerer == nil {
		return ErrMissingAnswerer
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *server.MCPServer
}

func NewServer(p *Ports) (*Server, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	s := &Server{
		ports:  p,
		server: server.NewMCPServer("self-healing-rag", Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

// Run serves JSON-RPC on stdin/stdout until the input closes.
func (s *Server) Run(_ context.Context) error {
	return server.ServeStdio(s.server)
}

func (s *Server) registerTools() {
	s.server.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the indexed corpus. The answer is checked against the retrieved passages and corrected when it contradicts them."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language question")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to retrieve; 0 uses the server default")),
	), s.handleAsk)

	if s.ports.Lifecycle != nil {
		s.server.AddTool(mcp.NewTool("history",
			mcp.WithDescription("List saved index versions, oldest first."),
		), s.handleHistory)
	}

	if s.ports.Monitor != nil {
		s.server.AddTool(mcp.NewTool("monitor",
			mcp.WithDescription("Return the corpus health report: schema problems, near-duplicate embeddings and probe query scores."),
			mcp.WithBoolean("run", mcp.Description("Take a fresh sample instead of returning the latest stored report")),
		), s.handleMonitor)
	}
}
