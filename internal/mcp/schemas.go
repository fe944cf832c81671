package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var entityKinds = []string{"module", "function", "comment", "docblock"}

// indexPerlDocsTool returns the tool definition for index_perl_docs
func indexPerlDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_perl_docs",
		Description: "Extract POD and comment documentation from a Perl source tree and index it for search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the distribution root (must contain .pm, .pl, .pod or .t files)",
				},
				"include": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns of files to index, relative to path (default: Perl sources)",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns of files or directories to skip (e.g., 'blib/**')",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchDocsTool returns the tool definition for search_docs
func searchDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_docs",
		Description: "Keyword search over the names and documentation of indexed Perl packages and subs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed distribution",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms; every term must match",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow search",
					"properties": map[string]interface{}{
						"kinds": map[string]interface{}{
							"type":        "array",
							"description": "Filter by entity kind",
							"items": map[string]interface{}{
								"type": "string",
								"enum": entityKinds,
							},
						},
						"visibilities": map[string]interface{}{
							"type":        "array",
							"description": "Filter subs by visibility",
							"items": map[string]interface{}{
								"type": "string",
								"enum": []string{"public", "protected", "private"},
							},
						},
						"namespace": map[string]interface{}{
							"type":        "string",
							"description": "Only packages in this namespace or below (e.g., 'My::App')",
						},
						"group": map[string]interface{}{
							"type":        "string",
							"description": "Only entities inside this @group",
						},
						"file_pattern": map[string]interface{}{
							"type":        "string",
							"description": "Glob pattern for file paths (e.g., 'lib/My/**')",
						},
						"min_relevance": map[string]interface{}{
							"type":        "number",
							"description": "Minimum relevance score relative to the best match (0.0-1.0)",
							"minimum":     0.0,
							"maximum":     1.0,
						},
					},
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// lookupSymbolTool returns the tool definition for lookup_symbol
func lookupSymbolTool() mcp.Tool {
	return mcp.Tool{
		Name:        "lookup_symbol",
		Description: "Fetch the documentation of a package or sub by exact name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed distribution",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Sub name or fully qualified package name (e.g., 'My::Widget')",
				},
				"kinds": map[string]interface{}{
					"type":        "array",
					"description": "Restrict to these entity kinds",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"module", "function"},
					},
				},
			},
			Required: []string{"path", "name"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for a Perl distribution",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the distribution root",
				},
			},
			Required: []string{"path"},
		},
	}
}
