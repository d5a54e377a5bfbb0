package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads dir/.fqnindex.kdl. A missing file yields (nil, nil).
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, ConfigFileKDL)
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileKDL, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, dir)
	return cfg, nil
}

// parseKDL reads a config such as
//
//	project { root "."; name "shop" }
//	index {
//	    roots "src/main/java" "src/main/resources" "lib/api.jar"
//	    split_cache_size 20000
//	    watch_mode true
//	}
//	exclude "**/generated/**"
func parseKDL(content string) (*Config, error) {
	cfg := Default("")
	cfg.Project.Name = ""

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "roots":
					cfg.Index.Roots = collectStringArgs(cn)
				case "split_cache_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.SplitCacheSize = v
					}
				case "weak_hot_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WeakHotSize = v
					}
				case "scan_parallelism":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.ScanParallelism = v
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.RespectGitignore = b
					}
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WatchDebounceMs = v
					}
				default:
					log.Printf("WARNING: unknown index setting '%s' in KDL config", nodeName(cn))
				}
			}
		case "exclude":
			// an exclude block replaces the defaults
			cfg.Exclude = collectStringArgs(n)
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs reads inline arguments, or for block form
// (exclude { "a"; "b" }) the child node names
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
