package mcp

import (
	"context"
	"fmt"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/nvandessel/spexplore/internal/logging"
	"github.com/nvandessel/spexplore/internal/ratelimit"
	"github.com/nvandessel/spexplore/internal/results"
)

// Server wraps the MCP SDK server and the results store of one batch.
type Server struct {
	server       *sdk.Server
	store        *results.Store
	baseDir      string
	audit        *logging.EventLogger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "spexplore")
	Version string // Server version
	BaseDir string // Batch directory holding results.db
}

// NewServer creates a new MCP server with spexplore tools.
func NewServer(cfg *Config) (*Server, error) {
	store, err := results.OpenDir(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open results store: %w", err)
	}
	audit, err := logging.OpenEventLog(filepath.Join(cfg.BaseDir, constants.AuditLogFile))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		store:        store,
		baseDir:      cfg.BaseDir,
		audit:        audit,
		toolLimiters: ratelimit.NewToolLimiters(),
	}
	s.registerTools()

	return s, nil
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases the store and the audit log.
func (s *Server) Close() error {
	auditErr := s.audit.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
