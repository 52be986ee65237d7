// Package server exposes the query engine to agent tooling over the
// Model Context Protocol (stdio transport).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/graph"
	"github.com/teranos/lore/kb"
	"github.com/teranos/lore/logger"
	"github.com/teranos/lore/query"
	"github.com/teranos/lore/query/parser"
	"github.com/teranos/lore/version"
)

// MCPServer wraps a graph snapshot and exposes query tools via MCP.
// The snapshot is swapped whole on workspace reload; individual graphs
// are immutable once built.
type MCPServer struct {
	mu     sync.RWMutex
	graph  *graph.Graph
	server *server.MCPServer
}

// NewMCPServer creates an MCP server over the given built graph.
func NewMCPServer(g *graph.Graph) *MCPServer {
	s := &MCPServer{graph: g}

	s.server = server.NewMCPServer(
		"lore",
		version.Get().Version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// SetGraph swaps the graph snapshot. Safe to call while serving;
// wired as a workspace watcher reload callback.
func (s *MCPServer) SetGraph(g *graph.Graph) error {
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()
	logger.Debugw("mcp graph snapshot swapped",
		"entities", g.Len())
	return nil
}

func (s *MCPServer) snapshot() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// registerTools registers all MCP tools for the query engine
func (s *MCPServer) registerTools() {
	queryTool := mcp.NewTool("lore_query",
		mcp.WithDescription("Run a query against the knowledge base, e.g. 'from task | where is_completed == false | order priority | limit 5' or 'from expense | sum amount'"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query text: from <type|*> followed by where/related/order/limit clauses and an optional aggregation"),
		),
	)
	s.server.AddTool(queryTool, s.handleQuery)

	entityTool := mcp.NewTool("lore_entity",
		mcp.WithDescription("Fetch one entity with all of its fields"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Composite entity id, e.g. person.jane_doe"),
		),
	)
	s.server.AddTool(entityTool, s.handleEntity)

	relatedTool := mcp.NewTool("lore_related",
		mcp.WithDescription("Find entities connected to one entity through reference fields, up to a number of degrees"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Composite entity id to start from"),
		),
		mcp.WithNumber("degrees",
			mcp.Description(fmt.Sprintf("Traversal depth 1-%d (default: 1)", graph.MaxTraversalDegrees)),
		),
		mcp.WithString("type",
			mcp.Description("Keep only entities of this type in the result"),
		),
	)
	s.server.AddTool(relatedTool, s.handleRelated)

	typesTool := mcp.NewTool("lore_types",
		mcp.WithDescription("List the entity types in the knowledge base with their record counts"),
	)
	s.server.AddTool(typesTool, s.handleTypes)
}

// handleQuery handles lore_query tool calls
func (s *MCPServer) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q, err := parser.Parse(text)
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			return mcp.NewToolResultError(perr.FormatError(parser.ErrorContextPlain)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	g := s.snapshot()
	if q.Aggregation != nil {
		result, err := q.ExecuteAggregate(g)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(aggregateDoc(result))
	}

	entities, err := q.Execute(g)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	docs := make([]map[string]interface{}, len(entities))
	for i, e := range entities {
		docs[i] = entityDoc(e)
	}
	return jsonResult(docs)
}

// handleEntity handles lore_entity tool calls
func (s *MCPServer) handleEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.snapshot().Entity(kb.EntityID(strings.TrimSpace(id)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entityDoc(e))
}

// handleRelated handles lore_related tool calls
func (s *MCPServer) handleRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	degrees := request.GetInt("degrees", 1)
	typeFilter := request.GetString("type", "")

	g := s.snapshot()
	start, err := g.Entity(kb.EntityID(strings.TrimSpace(id)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	expanded := graph.Expand(g, []*kb.Entity{start}, degrees, kb.EntityType(typeFilter))
	docs := make([]map[string]interface{}, 0, len(expanded))
	for _, e := range expanded {
		if e.ID() == start.ID() {
			continue
		}
		docs = append(docs, entityDoc(e))
	}
	return jsonResult(docs)
}

// handleTypes handles lore_types tool calls
func (s *MCPServer) handleTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g := s.snapshot()
	counts := make(map[string]int)
	for _, t := range g.Types() {
		counts[string(t)] = len(g.ByType(t))
	}
	return jsonResult(counts)
}

// entityDoc renders an entity as a JSON-friendly document. Field values
// use their display form; the typed variants stay inside the engine.
func entityDoc(e *kb.Entity) map[string]interface{} {
	doc := map[string]interface{}{
		string(kb.MetaID):   string(e.ID()),
		string(kb.MetaType): string(e.Type()),
	}
	for _, f := range e.FieldIDs() {
		v, _ := e.Field(f)
		doc[string(f)] = v.String()
	}
	return doc
}

func aggregateDoc(result *query.AggregateResult) interface{} {
	if result.Table != nil {
		rows := make([]map[string]interface{}, len(result.Table.Rows))
		for i, row := range result.Table.Rows {
			doc := make(map[string]interface{}, len(row))
			for j, cell := range row {
				if cell == nil {
					doc[result.Table.Columns[j]] = nil
					continue
				}
				doc[result.Table.Columns[j]] = cell.String()
			}
			rows[i] = doc
		}
		return rows
	}
	return map[string]interface{}{"result": result.Value.String()}
}

func jsonResult(doc interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Serve starts the MCP server using stdio transport
func (s *MCPServer) Serve() error {
	return server.ServeStdio(s.server)
}
