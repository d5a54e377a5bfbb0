package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/fqnindex/internal/fqn"
	"github.com/standardbeagle/fqnindex/internal/vfs"
	"github.com/standardbeagle/fqnindex/internal/version"
)

// DefaultSuggestLimit caps suggest results when no max is given
const DefaultSuggestLimit = 5

type InfoParams struct {
	Tool string `json:"tool,omitempty"`
}

type SplitNameParams struct {
	Name string `json:"name"`
}

type FindFilesParams struct {
	Fqn     string `json:"fqn"`
	Suggest *bool  `json:"suggest,omitempty"`
}

type FileFqnsParams struct {
	Path string `json:"path"`
}

type ListFqnsParams struct {
	Prefix    string `json:"prefix,omitempty"`
	Extension string `json:"extension,omitempty"`
	Max       int    `json:"max,omitempty"`
}

type SuggestParams struct {
	Name string `json:"name"`
	Max  int    `json:"max,omitempty"`
}

// operationHelp doubles as the per-tool documentation served by info
var operationHelp = map[string]string{
	"split_name": "split_name {\"name\": \"java.util.Map<K,V>[]\"} returns the segments [java, util, Map, <K,V>, []].",
	"find_files": "find_files {\"fqn\": \"com.acme.Widget\"} returns the files defining the name, one per extension. When nothing matches, similar names are suggested.",
	"file_fqns":  "file_fqns {\"path\": \"src/main/java/com/acme/Widget.java\"} returns the names that file contributes.",
	"list_fqns":  "list_fqns {\"prefix\": \"com.acme.\", \"extension\": \"java\", \"max\": 50} lists indexed names in order.",
	"suggest":    "suggest {\"name\": \"com.acme.Widgte\"} ranks known names by similarity.",
	"rescan":     "rescan {} rebuilds the index from the configured source roots.",
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params InfoParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return createErrorResponse("info", fmt.Errorf("invalid parameters: %w", err))
		}
	}

	switch params.Tool {
	case "":
		idx := s.project.Index
		roots := make([]string, 0, len(s.project.Roots()))
		for _, r := range s.project.Roots() {
			roots = append(roots, r.String())
		}
		tools := make([]string, 0, len(operationHelp))
		for name := range operationHelp {
			tools = append(tools, name)
		}
		sort.Strings(tools)
		return createJSONResponse(map[string]interface{}{
			"success":    true,
			"project":    s.cfg.Project.Name,
			"root":       s.cfg.Project.Root,
			"roots":      roots,
			"state":      idx.State().String(),
			"extensions": idx.Extensions(),
			"fqn_count":  len(idx.Fqns()),
			"file_count": len(idx.Files()),
			"swept":      s.sweepLookups(),
			"cached":     len(s.lookups.Fqns()),
			"tools":      tools,
			"version":    version.Version,
		})
	case "version":
		return createJSONResponse(map[string]interface{}{
			"success":    true,
			"version":    version.Version,
			"full":       version.FullInfo(),
			"build_id":   version.BuildID(),
			"go_version": runtime.Version(),
		})
	default:
		help, ok := operationHelp[params.Tool]
		if !ok {
			return createErrorResponse("info", fmt.Errorf("unknown tool %q", params.Tool))
		}
		return createJSONResponse(map[string]interface{}{
			"success": true,
			"tool":    params.Tool,
			"help":    help,
		})
	}
}

func (s *Server) handleSplitName(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("split_name", func() (*mcp.CallToolResult, error) {
		var params SplitNameParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		parts, err := s.lookups.Trie().Parts(params.Name)
		if err != nil {
			return nil, err
		}
		return createJSONResponse(map[string]interface{}{
			"success":  true,
			"name":     params.Name,
			"segments": parts,
			"joined":   fqn.Join(parts),
		})
	})
}

func (s *Server) handleFindFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("find_files", func() (*mcp.CallToolResult, error) {
		var params FindFilesParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if params.Fqn == "" {
			return nil, fmt.Errorf("invalid parameters: fqn is required")
		}

		result, cached, err := s.lookup(params.Fqn)
		if err != nil {
			return nil, err
		}
		resp := map[string]interface{}{
			"success":   true,
			"fqn":       result.Fqn,
			"files":     result.Files,
			"ambiguous": len(result.Files) > 1,
			"cached":    cached,
		}
		if len(result.Files) == 0 && (params.Suggest == nil || *params.Suggest) {
			resp["suggestions"] = s.project.Index.Suggest(params.Fqn, DefaultSuggestLimit)
		}
		return createJSONResponse(resp)
	})
}

func (s *Server) handleFileFqns(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("file_fqns", func() (*mcp.CallToolResult, error) {
		var params FileFqnsParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if params.Path == "" {
			return nil, fmt.Errorf("invalid parameters: path is required")
		}

		file, ok := s.findFile(params.Path)
		if !ok {
			return nil, fmt.Errorf("no indexed file matches %s", params.Path)
		}
		return createJSONResponse(map[string]interface{}{
			"success": true,
			"file":    file.String(),
			"fqns":    s.project.Index.FqnsForFile(file),
		})
	})
}

// findFile matches p against indexed files by OS path, display string or
// root relative path, in that order
func (s *Server) findFile(p string) (vfs.File, bool) {
	files := s.project.Index.Files()

	if filepath.IsAbs(p) {
		clean := filepath.Clean(p)
		for _, f := range files {
			if osPath, ok := f.OSPath(); ok && osPath == clean {
				return f, true
			}
		}
	}
	for _, f := range files {
		if f.String() == p {
			return f, true
		}
	}
	rel := filepath.ToSlash(filepath.Clean(p))
	for _, f := range files {
		if f.Path() == rel || strings.HasSuffix(f.Path(), "/"+rel) {
			return f, true
		}
	}
	return vfs.File{}, false
}

func (s *Server) handleListFqns(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("list_fqns", func() (*mcp.CallToolResult, error) {
		var params ListFqnsParams
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				return nil, fmt.Errorf("invalid parameters: %w", err)
			}
		}
		limit := params.Max
		if limit <= 0 {
			limit = DefaultListLimit
		}

		var names []string
		if params.Extension != "" {
			trie, ok := s.project.Index.ExtensionCaches()[strings.ToLower(strings.TrimPrefix(params.Extension, "."))]
			if ok {
				names = trie.Fqns()
			}
		} else {
			names = s.project.Index.Fqns()
		}

		out := make([]string, 0, min(limit, len(names)))
		total := 0
		for _, name := range names {
			if !strings.HasPrefix(name, params.Prefix) {
				continue
			}
			total++
			if len(out) < limit {
				out = append(out, name)
			}
		}
		return createJSONResponse(map[string]interface{}{
			"success":   true,
			"fqns":      out,
			"total":     total,
			"truncated": total > len(out),
		})
	})
}

func (s *Server) handleSuggest(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("suggest", func() (*mcp.CallToolResult, error) {
		var params SuggestParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if params.Name == "" {
			return nil, fmt.Errorf("invalid parameters: name is required")
		}
		limit := params.Max
		if limit <= 0 {
			limit = DefaultSuggestLimit
		}
		return createJSONResponse(map[string]interface{}{
			"success":     true,
			"name":        params.Name,
			"suggestions": s.project.Index.Suggest(params.Name, limit),
		})
	})
}

func (s *Server) handleRescan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("rescan", func() (*mcp.CallToolResult, error) {
		start := time.Now()
		if err := s.project.Rescan(ctx); err != nil {
			return nil, err
		}
		s.lookups.Clear()
		elapsed := time.Since(start)
		s.diagnosticLogger.Printf("rescan finished in %v", elapsed)

		return createJSONResponse(map[string]interface{}{
			"success":     true,
			"fqn_count":   len(s.project.Index.Fqns()),
			"file_count":  len(s.project.Index.Files()),
			"extensions":  s.project.Index.Extensions(),
			"duration_ms": elapsed.Milliseconds(),
		})
	})
}
