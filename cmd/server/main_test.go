package main

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestMainWiresToolsOntoMCPServer(t *testing.T) {
	comps, err := InitializeServer()
	if err != nil {
		t.Fatalf("InitializeServer() failed: %v", err)
	}
	defer comps.Cleanup()

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph-server-test",
		Version: "1.0.0-test",
	}, nil)

	comps.Core.RegisterTools(mcpServer)
}
