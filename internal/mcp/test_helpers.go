package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallTool invokes a tool handler in process, bypassing the stdio
// transport. Error responses come back as Go errors.
func (s *Server) CallTool(toolName string, params map[string]interface{}) (string, error) {
	ctx := context.Background()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      toolName,
			Arguments: paramsJSON,
		},
	}

	var result *mcp.CallToolResult
	switch toolName {
	case "info":
		result, err = s.handleInfo(ctx, req)
	case "version":
		req.Params.Arguments = []byte(`{"tool": "version"}`)
		result, err = s.handleInfo(ctx, req)
	case "split_name":
		result, err = s.handleSplitName(ctx, req)
	case "find_files":
		result, err = s.handleFindFiles(ctx, req)
	case "file_fqns":
		result, err = s.handleFileFqns(ctx, req)
	case "list_fqns":
		result, err = s.handleListFqns(ctx, req)
	case "suggest":
		result, err = s.handleSuggest(ctx, req)
	case "rescan":
		result, err = s.handleRescan(ctx, req)
	default:
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Content) == 0 {
		return "", nil
	}

	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return "", nil
	}
	var response map[string]interface{}
	if json.Unmarshal([]byte(textContent.Text), &response) == nil {
		if success, ok := response["success"].(bool); ok && !success {
			errorDetails := fmt.Sprintf("MCP error: %v", response["error"])
			if suggestions, ok := response["suggestions"].([]interface{}); ok && len(suggestions) > 0 {
				errorDetails += fmt.Sprintf("\nSuggestions: %v", suggestions)
			}
			return "", fmt.Errorf("%s", errorDetails)
		}
	}
	return textContent.Text, nil
}
