package mcp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/fqnindex/internal/config"
	"github.com/standardbeagle/fqnindex/internal/fqn"
	"github.com/standardbeagle/fqnindex/internal/host"
	"github.com/standardbeagle/fqnindex/internal/indexing"
	"github.com/standardbeagle/fqnindex/internal/version"
)

// DefaultListLimit caps list_fqns results when no max is given
const DefaultListLimit = 200

// Server exposes a project's qualified name index as MCP tools
type Server struct {
	project          *indexing.Project
	cfg              *config.Config
	server           *mcp.Server
	diagnosticLogger *DiagnosticLogger

	// lookups caches find_files answers. Payloads are weakly held, so
	// only the hot tier survives garbage collection.
	lookups *fqn.WeakTrie[lookupResult]
	sub     *host.Subscription
}

// NewServer creates a server over an opened project
func NewServer(project *indexing.Project) (*Server, error) {
	return newServer(project, NewDiagnosticLogger(true))
}

func newServer(project *indexing.Project, logger *DiagnosticLogger) (*Server, error) {
	if project == nil || project.Index == nil {
		return nil, errors.New("mcp server needs an opened project")
	}

	s := &Server{
		project:          project,
		cfg:              project.Config,
		diagnosticLogger: logger,
		lookups: fqn.NewWeak[lookupResult](
			fqn.WithHotSize(project.Config.Index.WeakHotSize),
			fqn.WithTrieOptions(fqn.WithSplitCacheSize(project.Config.Index.SplitCacheSize)),
		),
	}
	// late listener: the index has already applied a change when the
	// cache hears about it
	s.sub = project.Host.Bus().Subscribe(project.Module, &lookupInvalidator{lookups: s.lookups, logger: logger})

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "fqnindex-mcp-server",
		Version: version.Version,
	}, nil)
	s.registerTools()

	logger.Printf("MCP server initialized for project %s (%d names)", project.Config.Project.Root, len(project.Index.Fqns()))
	return s, nil
}

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: "Describe the index and its tools. Use {\"tool\": \"<name>\"} for details on one tool.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tool": {
					Type:        "string",
					Description: "Tool name to describe (e.g. 'find_files', 'version')",
				},
			},
		},
	}, s.handleInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        "split_name",
		Description: "Split a qualified name into segments the way the index does. Generic clauses and array markers become their own segments.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Qualified name, e.g. java.util.Map<K,V>[]",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleSplitName)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_files",
		Description: "Find the files that define a qualified name. More than one file means the name exists under several extensions.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"fqn": {
					Type:        "string",
					Description: "Qualified name, e.g. com.acme.Widget",
				},
				"suggest": {
					Type:        "boolean",
					Description: "Suggest similar names when nothing is found (default true)",
				},
			},
			Required: []string{"fqn"},
		},
	}, s.handleFindFiles)

	s.server.AddTool(&mcp.Tool{
		Name:        "file_fqns",
		Description: "List the qualified names a file contributes. Accepts a full path or a path relative to its source root.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File path",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleFileFqns)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_fqns",
		Description: "List indexed qualified names, optionally restricted to a prefix and an extension.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"prefix": {
					Type:        "string",
					Description: "Only names starting with this prefix, e.g. com.acme.",
				},
				"extension": {
					Type:        "string",
					Description: "Only names defined by files with this extension, e.g. java",
				},
				"max": {
					Type:        "integer",
					Description: fmt.Sprintf("Maximum names returned (default %d)", DefaultListLimit),
				},
			},
		},
	}, s.handleListFqns)

	s.server.AddTool(&mcp.Tool{
		Name:        "suggest",
		Description: "Rank known qualified names by similarity to a possibly misspelled one.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Name to match",
				},
				"max": {
					Type:        "integer",
					Description: "Maximum suggestions (default 5)",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleSuggest)

	s.server.AddTool(&mcp.Tool{
		Name:        "rescan",
		Description: "Rebuild the index from the configured source roots.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleRescan)
}

// recoverFromPanic provides panic recovery middleware for MCP operations
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnosticLogger.Printf("PANIC RECOVERED in %s: %v", operation, r)
			s.diagnosticLogger.Printf("Stack trace: %s", debug.Stack())

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.diagnosticLogger.Printf("Memory stats - Alloc: %d KB, Sys: %d KB, NumGC: %d", m.Alloc/1024, m.Sys/1024, m.NumGC)

			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		s.diagnosticLogger.Printf("Error in %s: %v", operation, err)
		return createSmartErrorResponse(operation, err, map[string]interface{}{
			"operation": operation,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
	return result, nil
}

// Start serves MCP over stdio until ctx is done
func (s *Server) Start(ctx context.Context) error {
	s.diagnosticLogger.Printf("Starting MCP server with stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Shutdown detaches the server from the project. The project itself is
// owned by the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	s.diagnosticLogger.Printf("Shutting down MCP server...")
	if s.sub != nil {
		s.sub.Cancel()
	}
	s.lookups.Clear()
	s.diagnosticLogger.Printf("MCP server shutdown complete")
	return s.diagnosticLogger.Close()
}
