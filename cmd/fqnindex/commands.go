package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fqnindex/internal/debug"
	"github.com/standardbeagle/fqnindex/internal/display"
	"github.com/standardbeagle/fqnindex/internal/fqn"
	"github.com/standardbeagle/fqnindex/internal/indexing"
	"github.com/standardbeagle/fqnindex/internal/mcp"
	"github.com/standardbeagle/fqnindex/internal/vfs"
	"github.com/standardbeagle/fqnindex/pkg/pathutil"
)

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s requires exactly one %s argument", c.Command.Name, name)
	}
	return c.Args().First(), nil
}

func writeJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type scanSummary struct {
	Root       string   `json:"root"`
	Roots      []string `json:"roots"`
	Extensions []string `json:"extensions"`
	Files      int      `json:"files"`
	Names      int      `json:"names"`
	ElapsedMs  int64    `json:"elapsed_ms"`
	Fqns       []string `json:"fqns,omitempty"`
}

func scanCommand(c *cli.Context) error {
	start := time.Now()
	project, err := openProject(c)
	if err != nil {
		return err
	}
	defer project.Close()

	summary := scanSummary{
		Root:       project.Config.Project.Root,
		Extensions: project.Index.Extensions(),
		Files:      len(project.Index.Files()),
		ElapsedMs:  time.Since(start).Milliseconds(),
	}
	for _, r := range project.Roots() {
		summary.Roots = append(summary.Roots, pathutil.ToRelative(r.String(), summary.Root))
	}
	names := project.Index.Fqns()
	summary.Names = len(names)
	if c.Bool("list") {
		summary.Fqns = names
	}

	if c.Bool("json") {
		return writeJSON(c, summary)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Project: %s\n", summary.Root)
	for _, r := range summary.Roots {
		fmt.Fprintf(w, "  root %s\n", r)
	}
	fmt.Fprintf(w, "Indexed %s names from %s files (%v) in %dms\n",
		humanize.Comma(int64(summary.Names)), humanize.Comma(int64(summary.Files)), summary.Extensions, summary.ElapsedMs)
	for _, name := range summary.Fqns {
		fmt.Fprintln(w, name)
	}
	return nil
}

func findCommand(c *cli.Context) error {
	name, err := requireArg(c, "fqn")
	if err != nil {
		return err
	}
	project, err := openProject(c)
	if err != nil {
		return err
	}
	defer project.Close()

	files, err := project.Index.FindFiles(name)
	if err != nil {
		return err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.String()
	}
	if c.Bool("relative") {
		paths = pathutil.ToRelativeAll(paths, project.Config.Project.Root)
	}

	if c.Bool("json") {
		return writeJSON(c, map[string]interface{}{
			"fqn":         name,
			"files":       paths,
			"suggestions": suggestionsIfMissing(project, name, len(paths)),
		})
	}
	if len(paths) == 0 {
		for _, s := range suggestionsIfMissing(project, name, 0) {
			fmt.Fprintf(c.App.Writer, "did you mean %s (%.2f)\n", s.Fqn, s.Score)
		}
		return fmt.Errorf("no file defines %s", name)
	}
	for _, p := range paths {
		fmt.Fprintln(c.App.Writer, p)
	}
	return nil
}

func suggestionsIfMissing(project *indexing.Project, name string, found int) []indexing.Suggestion {
	if found > 0 {
		return nil
	}
	return project.Index.Suggest(name, 3)
}

func namesCommand(c *cli.Context) error {
	target, err := requireArg(c, "path")
	if err != nil {
		return err
	}
	project, err := openProject(c)
	if err != nil {
		return err
	}
	defer project.Close()

	for _, f := range project.Index.Files() {
		if f.String() == target || f.Path() == target {
			for _, name := range project.Index.FqnsForFile(f) {
				fmt.Fprintln(c.App.Writer, name)
			}
			return nil
		}
	}
	return fmt.Errorf("no indexed file matches %s", target)
}

func splitCommand(c *cli.Context) error {
	name, err := requireArg(c, "name")
	if err != nil {
		return err
	}
	parts, err := fqn.Split(name)
	if err != nil {
		return err
	}
	for _, p := range parts {
		fmt.Fprintln(c.App.Writer, p)
	}
	return nil
}

func suggestCommand(c *cli.Context) error {
	name, err := requireArg(c, "name")
	if err != nil {
		return err
	}
	project, err := openProject(c)
	if err != nil {
		return err
	}
	defer project.Close()

	for _, s := range project.Index.Suggest(name, c.Int("max")) {
		fmt.Fprintf(c.App.Writer, "%.2f %s\n", s.Score, s.Fqn)
	}
	return nil
}

func treeCommand(c *cli.Context) error {
	project, err := openProject(c)
	if err != nil {
		return err
	}
	defer project.Close()

	trie := fqn.New[vfs.File]()
	if ext := c.String("ext"); ext != "" {
		cache, ok := project.Index.ExtensionCaches()[strings.ToLower(strings.TrimPrefix(ext, "."))]
		if !ok {
			return fmt.Errorf("no %s files indexed", ext)
		}
		trie = cache
	} else {
		// earlier extensions win where a name is defined twice
		caches := project.Index.ExtensionCaches()
		exts := project.Index.Extensions()
		for i := len(exts) - 1; i >= 0; i-- {
			if err := trie.Merge(caches[exts[i]]); err != nil {
				return err
			}
		}
	}

	node := trie.Root()
	if prefix := c.Args().First(); prefix != "" {
		if node, err = trie.Node(prefix); err != nil {
			return err
		}
		if node == nil {
			return fmt.Errorf("no names below %s", prefix)
		}
	}

	root := project.Config.Project.Root
	formatter := display.NewTreeFormatter(display.FormatterOptions{
		Format:     c.String("format"),
		ShowValues: c.Bool("files"),
		MaxDepth:   c.Int("depth"),
	}, func(f vfs.File) string { return pathutil.ToRelative(f.String(), root) })
	fmt.Fprintln(c.App.Writer, formatter.Format(node))
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	cfg.Index.WatchMode = true
	project, err := indexing.OpenProject(cfg)
	if err != nil {
		return err
	}
	defer project.Close()

	fw, err := project.Watch()
	if err != nil {
		return err
	}
	w := c.App.Writer
	fw.SetProgressCallbacks(
		func(count int) { fmt.Fprintf(w, "applying %d changes\n", count) },
		func(count int, d time.Duration) {
			fmt.Fprintf(w, "applied %d changes in %v, %d names indexed\n", count, d, len(project.Index.Fqns()))
		},
	)
	fmt.Fprintf(w, "Watching %s (%d names). Press Ctrl+C to stop.\n", cfg.Project.Root, len(project.Index.Fqns()))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	stats := fw.GetStats()
	fmt.Fprintf(w, "Processed %d events (%d errors)\n", stats.EventsProcessed, stats.ErrorCount)
	return nil
}

func mcpCommand(c *cli.Context) error {
	// stdout carries the protocol from here on
	debug.SetMCPMode(true)

	project, err := openProject(c)
	if err != nil {
		return debug.Fatal("failed to open project: %v\n", err)
	}
	defer project.Close()

	if project.Config.Index.WatchMode {
		if _, err := project.Watch(); err != nil {
			debug.LogMCP("Warning: file watching unavailable: %v\n", err)
		}
	}

	server, err := mcp.NewServer(project)
	if err != nil {
		return debug.Fatal("failed to create MCP server: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := server.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		debug.LogMCP("shutdown: %v\n", err)
	}
	if serveErr != nil && ctx.Err() == nil {
		return debug.Fatal("MCP server error: %v\n", serveErr)
	}
	return nil
}
