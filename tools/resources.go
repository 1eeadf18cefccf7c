package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docsmcp/docs-mcp-server/internal/indexing"
	"github.com/docsmcp/docs-mcp-server/internal/query"
)

const documentSchemaURI = "schema://docs/document-record"

// ReadDocumentSchema serves the DocumentRecord JSON Schema
func ReadDocumentSchema(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      documentSchemaURI,
				MIMEType: "application/schema+json",
				Text:     string(indexing.DocumentSchema()),
			},
		},
	}, nil
}

// RegisterResources registers the schema resources
func RegisterResources(server *mcp.Server) int {
	server.AddResource(&mcp.Resource{
		URI:         documentSchemaURI,
		Name:        "document-record-schema",
		Description: "JSON Schema of one indexed documentation record",
		MIMEType:    "application/schema+json",
	}, ReadDocumentSchema)
	return 1
}

// FindDocumentationPrompt builds a prompt that steers the model to the
// search tool with a strategy suited to the question
func FindDocumentationPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var args map[string]string
	if req != nil && req.Params != nil {
		args = req.Params.Arguments
	}

	topic := strings.TrimSpace(args["topic"])
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	module := strings.TrimSpace(args["module"])

	var b strings.Builder
	fmt.Fprintf(&b, "Find documentation about: %s\n\n", topic)
	fmt.Fprintf(&b, "Call search_documentation with query %q", topic)
	if module != "" {
		fmt.Fprintf(&b, " and module %q", module)
	}
	b.WriteString(".\n")
	if query.IsMultiWord(topic) {
		b.WriteString("The query has several words: it is matched as an exact phrase first and, when nothing matches, with every word required. ")
		b.WriteString("If both come back empty, retry with fewer or more specific words.\n")
	}
	b.WriteString("Answer from the returned content previews and cite each result's url.")

	return &mcp.GetPromptResult{
		Description: "Search the documentation for a topic",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: b.String()},
			},
		},
	}, nil
}

// RegisterPrompts registers the workflow prompts
func RegisterPrompts(server *mcp.Server) int {
	server.AddPrompt(&mcp.Prompt{
		Name:        "find_documentation",
		Description: "Look up a topic in the documentation index",
		Arguments: []*mcp.PromptArgument{
			{Name: "topic", Description: "What to look for", Required: true},
			{Name: "module", Description: "Product module to restrict the search to"},
		},
	}, FindDocumentationPrompt)
	return 1
}
