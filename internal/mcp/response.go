package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result with
// IsError set, so the client can see it and correct itself
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	return createSmartErrorResponse(operation, err, nil)
}

// createSmartErrorResponse is createErrorResponse with suggestions derived
// from the error and optional context
func createSmartErrorResponse(operation string, err error, context map[string]interface{}) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}

	if suggestions := generateErrorSuggestions(operation, err); len(suggestions) > 0 {
		errorData["suggestions"] = suggestions
	}
	if help, ok := operationHelp[operation]; ok {
		errorData["help"] = help
	}
	if len(context) > 0 {
		errorData["context"] = context
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// generateErrorSuggestions generates hints for the errors clients hit most
func generateErrorSuggestions(operation string, err error) []string {
	var suggestions []string

	var nameErr *fqnerrors.NameError
	var validationErr *fqnerrors.ValidationError
	var indexErr *fqnerrors.IndexingError
	switch {
	case errors.As(err, &validationErr):
		suggestions = append(suggestions,
			fmt.Sprintf("Segment %q is not allowed in a qualified name", validationErr.Segment),
			"Use split_name to see how the name is segmented")
	case errors.As(err, &nameErr):
		suggestions = append(suggestions,
			"Qualified names are dot separated, e.g. com.acme.Widget",
			"Generic clauses must be balanced: Map<K,V>")
	case errors.As(err, &indexErr):
		suggestions = append(suggestions, "Check that the configured source roots exist and are readable")
		if indexErr.IsRecoverable() {
			suggestions = append(suggestions, "Retry with the rescan tool")
		}
	}

	if strings.Contains(err.Error(), "invalid parameters") {
		suggestions = append(suggestions, fmt.Sprintf("Use info with {\"tool\": %q} for the expected parameters", operation))
	}
	return suggestions
}
