package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/phuslu/log"
)

const serverInstructions = "Search the product documentation index. Use search_documentation for questions, " +
	"documentation_index_stats to check the index and refresh_documentation_index to reload it."

// NewServer builds an MCP server with every tool, resource and prompt
// registered
func NewServer(name, version string, d *DocSearch, logger *log.Logger) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    name,
			Version: version,
		},
		&mcp.ServerOptions{Instructions: serverInstructions},
	)

	toolCount := RegisterDocSearchTools(server, d)
	resources := RegisterResources(server)
	prompts := RegisterPrompts(server)

	logger.Info().
		Int("tools", toolCount).
		Int("resources", resources).
		Int("prompts", prompts).
		Msgf("✓ Server initialized: %s v%s", name, version)
	return server
}
