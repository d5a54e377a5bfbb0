package mcp

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DiagnosticLogger handles all diagnostic output for the MCP server.
// In MCP mode stdout carries the protocol, so everything goes to a file.
type DiagnosticLogger struct {
	mu       sync.Mutex
	file     *os.File
	logger   *log.Logger
	filePath string
	isMCP    bool
}

// NewDiagnosticLogger creates a logger that writes to a timestamped file in
// MCP mode and to stderr otherwise
func NewDiagnosticLogger(isMCP bool) *DiagnosticLogger {
	dl := &DiagnosticLogger{
		isMCP: isMCP,
	}

	if !isMCP {
		dl.logger = log.New(os.Stderr, "[MCP] ", log.LstdFlags)
		return dl
	}

	logDir := filepath.Join(os.TempDir(), "fqnindex-mcp-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		logDir = filepath.Join(homeDir, ".fqnindex-mcp-logs")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: Failed to create log directory %s: %v", logDir, err)
		}
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("mcp-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// a broken log must not break the protocol
		dl.logger = log.New(io.Discard, "", 0)
		return dl
	}

	dl.file = file
	dl.filePath = logPath
	dl.logger = log.New(file, "[MCP] ", log.LstdFlags|log.Lshortfile)
	return dl
}

// Printf logs a diagnostic message
func (dl *DiagnosticLogger) Printf(format string, v ...interface{}) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.logger.Printf(format, v...)
}

// Errorf logs an error
func (dl *DiagnosticLogger) Errorf(format string, v ...interface{}) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.logger.Printf("ERROR: "+format, v...)
}

// Close closes the log file if it's open
func (dl *DiagnosticLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file != nil {
		err := dl.file.Close()
		dl.file = nil
		dl.logger = log.New(io.Discard, "", 0)
		return err
	}
	return nil
}

// GetLogPath returns the path to the diagnostic log file, empty outside MCP mode
func (dl *DiagnosticLogger) GetLogPath() string {
	if dl == nil {
		return ""
	}
	return dl.filePath
}

// NoOpLogger is used to suppress all logging
var NoOpLogger = &DiagnosticLogger{
	logger: log.New(io.Discard, "", 0),
}
