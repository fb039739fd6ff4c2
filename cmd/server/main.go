// Package main provides the entry point for the CodeGraph MCP server.
//
// The server is designed to be spawned as a child process by an MCP client
// and communicates via stdio using the Model Context Protocol. It exposes
// six tools over the hybrid vector/graph/symbolic retrieval core: upsert_entity,
// upsert_statements, query, submit_feedback, graph_stats, and graph_page.
//
// Environment variables are documented alongside the config package
// (CODEGRAPH_*) and the optional external dependencies wired in initializer.go
// (CODEGRAPH_NEO4J_URI, CODEGRAPH_VECTOR_PATH, CODEGRAPH_SQLITE_PATH).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	comps, err := InitializeServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "codegraph: failed to initialize server: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := comps.Cleanup(); err != nil {
			fmt.Fprintf(os.Stderr, "codegraph: cleanup error: %v\n", err)
		}
	}()

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph-server",
		Version: "1.0.0",
	}, nil)

	comps.Core.RegisterTools(mcpServer)
	comps.Log.Info("registered tools: upsert_entity, upsert_statements, query, submit_feedback, graph_stats, graph_page")

	transport := &mcp.StdioTransport{}
	ctx := context.Background()
	comps.Log.Info("starting mcp server")
	if err := mcpServer.Run(ctx, transport); err != nil {
		comps.Log.Sugar().Fatalf("server error: %v", err)
	}
}
