package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fqnindex/internal/config"
	"github.com/standardbeagle/fqnindex/internal/debug"
	"github.com/standardbeagle/fqnindex/internal/indexing"
	"github.com/standardbeagle/fqnindex/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
// Without --config or --root the project root is detected from the working
// directory.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	rootDir := c.String("root")

	if configPath == "" && rootDir == "" {
		if detected, marker, err := indexing.FindProjectRoot(""); err == nil {
			debug.LogIndexing("detected project root %s via %s\n", detected, marker)
			rootDir = detected
		}
	}

	cfg, err := config.LoadWithRoot(configPath, rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if rootFlag := c.String("root"); rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}
	if roots := c.StringSlice("source"); len(roots) > 0 {
		cfg.Index.Roots = roots
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = config.DeduplicatePatterns(append(cfg.Exclude, excludeFlags...))
	}
	if c.Bool("watch") {
		cfg.Index.WatchMode = true
	}
	return cfg, nil
}

// openProject loads the configuration and scans it
func openProject(c *cli.Context) (*indexing.Project, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}
	project, err := indexing.OpenProject(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open project %s: %w", cfg.Project.Root, err)
	}
	return project, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "fqnindex",
		Usage:                  "Index qualified names of source files and resolve them back to files",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.fqnindex.kdl or .fqnindex.toml)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (overrides detection and config)",
			},
			&cli.StringSliceFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Source root, directory or .jar/.zip, in priority order (repeatable, replaces configured roots)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude paths matching glob patterns (e.g., --exclude '**/generated/**')",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Enable watch mode regardless of config",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug output to stderr (to a temp log file for mcp)",
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("debug") {
				return nil
			}
			debug.EnableDebug = "true"
			if c.Args().First() == "mcp" {
				// stdout carries the protocol
				logPath, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "debug log: %s\n", logPath)
			} else {
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			debug.Printf("%s\n", version.FullInfo())
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "Scan the source roots and print a summary",
				Action: scanCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "list",
						Aliases: []string{"l"},
						Usage:   "Print every indexed name",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
				},
			},
			{
				Name:      "find",
				Aliases:   []string{"f"},
				Usage:     "Print the files defining a qualified name",
				ArgsUsage: "<fqn>",
				Action:    findCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "relative",
						Usage: "Print paths relative to the project root",
					},
				},
			},
			{
				Name:      "names",
				Usage:     "Print the qualified names a file contributes",
				ArgsUsage: "<path>",
				Action:    namesCommand,
			},
			{
				Name:      "split",
				Usage:     "Print the segments of a qualified name",
				ArgsUsage: "<name>",
				Action:    splitCommand,
			},
			{
				Name:      "suggest",
				Usage:     "Print known names similar to the given one",
				ArgsUsage: "<name>",
				Action:    suggestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"m"},
						Usage:   "Maximum suggestions",
						Value:   5,
					},
				},
			},
			{
				Name:      "tree",
				Usage:     "Print the package tree of indexed names",
				ArgsUsage: "[prefix]",
				Action:    treeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "ext",
						Aliases: []string{"e"},
						Usage:   "Only names from files with this extension",
					},
					&cli.IntFlag{
						Name:    "depth",
						Aliases: []string{"d"},
						Usage:   "Maximum depth to display (0 = unlimited)",
					},
					&cli.BoolFlag{
						Name:  "files",
						Usage: "Show the defining file of each name",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: text, json or compact",
						Value: "text",
					},
				},
			},
			{
				Name:   "watch",
				Usage:  "Scan, then apply file changes until interrupted",
				Action: watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the index as MCP tools over stdio",
				Action: mcpCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
