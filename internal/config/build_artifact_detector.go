// Build artifact detection from build files in the project root.
// Compiled output copies source layouts, so indexing it would shadow the
// real sources with duplicates.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector finds build output directories
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a new build artifact detector
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories returns exclusion globs such as "**/target/**"
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string
	patterns = append(patterns, bad.detectMavenOutputs()...)
	patterns = append(patterns, bad.detectGradleOutputs()...)
	patterns = append(patterns, bad.detectRustOutputs()...)
	patterns = append(patterns, bad.detectJavaScriptOutputs()...)
	return patterns
}

var (
	mavenDirectory = regexp.MustCompile(`<directory>\s*(?:\$\{[^}]*\}/)?([^<\s]+)\s*</directory>`)
	gradleBuildDir = regexp.MustCompile(`buildDir\s*=\s*(?:file\()?["']([^"']+)["']`)
)

func (bad *BuildArtifactDetector) detectMavenOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "pom.xml"))
	if err != nil {
		return nil
	}
	patterns := []string{"**/target/**"}
	for _, m := range mavenDirectory.FindAllStringSubmatch(string(data), -1) {
		patterns = append(patterns, outputPattern(m[1]))
	}
	return patterns
}

func (bad *BuildArtifactDetector) detectGradleOutputs() []string {
	var patterns []string
	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		data, err := os.ReadFile(filepath.Join(bad.projectRoot, name))
		if err != nil {
			continue
		}
		patterns = append(patterns, "**/build/**")
		for _, m := range gradleBuildDir.FindAllStringSubmatch(string(data), -1) {
			patterns = append(patterns, outputPattern(m[1]))
		}
	}
	return patterns
}

// detectRustOutputs reads a custom target directory from Cargo.toml
func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "Cargo.toml"))
	if err != nil {
		return nil
	}
	var cargo map[string]interface{}
	if toml.Unmarshal(data, &cargo) != nil {
		return nil
	}
	patterns := []string{"**/target/**"}
	if profile, ok := cargo["profile"].(map[string]interface{}); ok {
		if release, ok := profile["release"].(map[string]interface{}); ok {
			if targetDir, ok := release["target-dir"].(string); ok {
				patterns = append(patterns, outputPattern(targetDir))
			}
		}
	}
	return patterns
}

func (bad *BuildArtifactDetector) detectJavaScriptOutputs() []string {
	var patterns []string
	for _, name := range []string{"tsconfig.json", "package.json"} {
		data, err := os.ReadFile(filepath.Join(bad.projectRoot, name))
		if err != nil {
			continue
		}
		var doc map[string]interface{}
		if json.Unmarshal(data, &doc) != nil {
			continue
		}
		for _, key := range []string{"compilerOptions", "build"} {
			if section, ok := doc[key].(map[string]interface{}); ok {
				if outDir, ok := section["outDir"].(string); ok {
					patterns = append(patterns, outputPattern(outDir))
				}
			}
		}
	}
	return patterns
}

func outputPattern(dir string) string {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	dir = strings.TrimPrefix(dir, "./")
	return "**/" + dir + "/**"
}
