// Package server implements the MCP (Model Context Protocol) server that
// exposes CodeGraph's external interfaces: entity/statement ingestion and
// query/feedback/graph-introspection egress, all over stdio.
//
// Available tools:
//   - upsert_entity: idempotent entity ingestion
//   - upsert_statements: idempotent symbolic-statement ingestion
//   - query: hybrid retrieval over a natural-language request
//   - submit_feedback: user signal on a retrieved element
//   - graph_stats: aggregate counts over the persisted graph
//   - graph_page: paginated entity listing
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"codegraph/internal/errs"
	"codegraph/internal/feedback"
	"codegraph/internal/knowledge"
	"codegraph/internal/reasoner"
	"codegraph/internal/retrieval"
	"codegraph/internal/storage"
	"codegraph/internal/symbolic"
	"codegraph/internal/translate"
	"codegraph/internal/types"
)

// Core wires every component into the MCP tool surface named in §6.
type Core struct {
	entities  storage.EntityRepository
	graph     knowledge.GraphRepository
	translator *translate.Translator
	retriever  *retrieval.Retriever
	feedback   *feedback.Propagator
	reasoner   *reasoner.Client
	log        *zap.Logger
}

// New creates a Core over the given components. graph and reasoner may be
// nil; the tools that need them degrade or error accordingly.
func New(entities storage.EntityRepository, graph knowledge.GraphRepository, translator *translate.Translator, retriever *retrieval.Retriever, propagator *feedback.Propagator, reasonerClient *reasoner.Client, log *zap.Logger) *Core {
	if log == nil {
		log = zap.NewNop()
	}
	return &Core{
		entities:   entities,
		graph:      graph,
		translator: translator,
		retriever:  retriever,
		feedback:   propagator,
		reasoner:   reasonerClient,
		log:        log,
	}
}

// RegisterTools registers every CodeGraph tool on mcpServer.
func (c *Core) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "upsert_entity",
		Description: "Idempotently store or update a UI component entity in the entity store and the graph.",
	}, c.handleUpsertEntity)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "upsert_statements",
		Description: "Idempotently attach symbolic (Narsese) statements to an existing entity.",
	}, c.handleUpsertStatements)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "query",
		Description: "Translate a natural-language request and run hybrid retrieval across the vector, graph, and symbolic channels.",
	}, c.handleQuery)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "submit_feedback",
		Description: "Apply a positive or negative user signal to an entity and propagate it to similar neighbours.",
	}, c.handleSubmitFeedback)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Aggregate counts and degree statistics over the persisted entity graph.",
	}, c.handleGraphStats)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "graph_page",
		Description: "Paginated listing of stored entities, optionally filtered by category or design system.",
	}, c.handleGraphPage)
}

func toJSONContent(data any) []mcp.Content {
	jsonData, err := json.Marshal(data)
	if err != nil {
		errData := map[string]string{"error": err.Error()}
		jsonData, _ = json.Marshal(errData)
	}
	return []mcp.Content{&mcp.TextContent{Text: string(jsonData)}}
}

// UpsertEntityRequest mirrors the Entity schema of §3.
type UpsertEntityRequest struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Category          string         `json:"category"`
	DesignSystem      string         `json:"design_system"`
	Tags              []string       `json:"tags,omitempty"`
	NarseseStatements []string       `json:"narsese_statements,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// UpsertEntityResponse reports the outcome of an upsert_entity call.
type UpsertEntityResponse struct {
	EntityID string `json:"entity_id"`
	Status   string `json:"status"`
}

func (c *Core) handleUpsertEntity(ctx context.Context, req *mcp.CallToolRequest, input UpsertEntityRequest) (*mcp.CallToolResult, *UpsertEntityResponse, error) {
	if err := validateUpsertEntity(&input); err != nil {
		return nil, nil, err
	}

	now := time.Now().UnixMilli()
	existing, err := c.entities.Get(ctx, input.ID)
	createdAt := now
	status := "created"
	if err == nil {
		createdAt = existing.CreatedAt
		status = "updated"
	}

	entity := &types.Entity{
		ID:                input.ID,
		Name:              input.Name,
		Category:          types.Category(input.Category),
		DesignSystem:      types.DesignSystem(input.DesignSystem),
		Tags:              input.Tags,
		NarseseStatements: input.NarseseStatements,
		Metadata:          input.Metadata,
		CreatedAt:         createdAt,
		UpdatedAt:         now,
	}
	if existing != nil {
		entity.Truth = existing.Truth
	}

	if err := c.entities.Put(ctx, entity); err != nil {
		return nil, nil, fmt.Errorf("upsert_entity: %w", err)
	}
	if c.graph != nil {
		if err := c.graph.UpsertEntity(ctx, entity); err != nil {
			c.log.Warn("graph upsert failed", zap.String("entity_id", entity.ID), zap.Error(err))
		}
	}

	response := &UpsertEntityResponse{EntityID: entity.ID, Status: status}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// UpsertStatementsRequest attaches parsed symbolic statements to an entity.
type UpsertStatementsRequest struct {
	EntityID   string   `json:"entity_id"`
	Statements []string `json:"statements"`
}

// UpsertStatementsResponse reports how many statements parsed successfully.
type UpsertStatementsResponse struct {
	EntityID    string   `json:"entity_id"`
	Accepted    int      `json:"accepted"`
	Rejected    []string `json:"rejected,omitempty"`
}

func (c *Core) handleUpsertStatements(ctx context.Context, req *mcp.CallToolRequest, input UpsertStatementsRequest) (*mcp.CallToolResult, *UpsertStatementsResponse, error) {
	if input.EntityID == "" {
		return nil, nil, errs.New(errs.KindMalformedStatement, "entity_id is required")
	}
	entity, err := c.entities.Get(ctx, input.EntityID)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindEntityNotFound, err)
	}

	var accepted []string
	var rejected []string
	for _, raw := range input.Statements {
		if _, err := symbolic.Parse(raw); err != nil {
			rejected = append(rejected, raw)
			continue
		}
		accepted = append(accepted, raw)
	}

	merged := map[string]bool{}
	for _, s := range entity.NarseseStatements {
		merged[s] = true
	}
	for _, s := range accepted {
		merged[s] = true
	}
	entity.NarseseStatements = entity.NarseseStatements[:0]
	for s := range merged {
		entity.NarseseStatements = append(entity.NarseseStatements, s)
	}
	entity.UpdatedAt = time.Now().UnixMilli()

	if err := c.entities.Put(ctx, entity); err != nil {
		return nil, nil, fmt.Errorf("upsert_statements: %w", err)
	}

	response := &UpsertStatementsResponse{EntityID: input.EntityID, Accepted: len(accepted), Rejected: rejected}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// QueryRequest is the query tool's input, per §6.
type QueryRequest struct {
	NLText           string `json:"nl_text"`
	DesignSystem     string `json:"design_system,omitempty"`
	Limit            int    `json:"limit,omitempty"`
	IncludeReasoning bool   `json:"include_reasoning,omitempty"`
	InferenceCycles  int    `json:"inference_cycles,omitempty"`
}

// QueryResponse is the query tool's output, per §6.
type QueryResponse struct {
	Elements             []types.CandidateScore `json:"elements"`
	NarseseQueries        []string               `json:"narsese_queries"`
	ReasoningExplanation  string                 `json:"reasoning_explanation,omitempty"`
	ProcessingTimeMS      int64                  `json:"processing_time_ms"`
}

func (c *Core) handleQuery(ctx context.Context, req *mcp.CallToolRequest, input QueryRequest) (*mcp.CallToolResult, *QueryResponse, error) {
	if input.NLText == "" {
		return nil, nil, errs.New(errs.KindMalformedStatement, "nl_text is required")
	}
	start := time.Now()

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	cycles := input.InferenceCycles
	if cycles <= 0 {
		cycles = 100
	}

	plan := c.translator.Translate(ctx, input.NLText, limit, input.IncludeReasoning)
	if input.DesignSystem != "" {
		plan.Constraints.DesignSystem = types.DesignSystem(input.DesignSystem)
	}
	plan.InferenceCycles = cycles

	result, err := c.retriever.Retrieve(ctx, plan)
	if err != nil {
		return nil, nil, err
	}

	narseseQueries := make([]string, 0, len(plan.Statements))
	for _, s := range plan.Statements {
		narseseQueries = append(narseseQueries, symbolic.Print(&s))
	}

	var explanation string
	if input.IncludeReasoning {
		explanation = joinLines(result.ReasoningExplanation)
	}

	response := &QueryResponse{
		Elements:             result.Candidates,
		NarseseQueries:       narseseQueries,
		ReasoningExplanation: explanation,
		ProcessingTimeMS:     time.Since(start).Milliseconds(),
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// SubmitFeedbackRequest is the submit_feedback tool's input, per §6.
type SubmitFeedbackRequest struct {
	ElementID    string `json:"element_id"`
	FeedbackType string `json:"feedback_type"`
	QueryContext string `json:"query_context,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

// SubmitFeedbackResponse is the submit_feedback tool's output, per §6.
type SubmitFeedbackResponse struct {
	EventID      string  `json:"event_id"`
	ElementID    string  `json:"element_id"`
	NewConfidence float64 `json:"new_confidence"`
}

func (c *Core) handleSubmitFeedback(ctx context.Context, req *mcp.CallToolRequest, input SubmitFeedbackRequest) (*mcp.CallToolResult, *SubmitFeedbackResponse, error) {
	kind := types.FeedbackKind(input.FeedbackType)
	if kind != types.FeedbackPositive && kind != types.FeedbackNegative {
		return nil, nil, errs.New(errs.KindMalformedStatement, "feedback_type must be positive or negative")
	}
	if input.ElementID == "" {
		return nil, nil, errs.New(errs.KindMalformedStatement, "element_id is required")
	}

	ev := &types.FeedbackEvent{
		ID:           uuid.NewString(),
		ElementID:    input.ElementID,
		Kind:         kind,
		QueryContext: input.QueryContext,
		Comment:      input.Comment,
		CreatedAt:    time.Now(),
		Status:       types.FeedbackPending,
	}

	if err := c.feedback.Submit(ctx, ev); err != nil {
		return nil, nil, err
	}

	var newConfidence float64
	if ev.PostTruth != nil {
		newConfidence = ev.PostTruth.Confidence
	}

	response := &SubmitFeedbackResponse{EventID: ev.ID, ElementID: ev.ElementID, NewConfidence: newConfidence}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// EmptyRequest is a tool input with no parameters.
type EmptyRequest struct{}

// GraphStatsResponse is the graph_stats tool's output, per §6, enriched with
// the reasoner circuit breaker's current state for operational visibility.
type GraphStatsResponse struct {
	TotalEntities         int            `json:"total_entities"`
	TotalRelations        int            `json:"total_relations"`
	ByCategory             map[string]int `json:"by_category"`
	ByDesignSystem         map[string]int `json:"by_design_system"`
	AvgDegree              float64        `json:"avg_degree"`
	ReasonerState          string         `json:"reasoner_state,omitempty"`
	ReasonerConsecutiveFailures int       `json:"reasoner_consecutive_failures,omitempty"`
}

func (c *Core) handleGraphStats(ctx context.Context, req *mcp.CallToolRequest, input EmptyRequest) (*mcp.CallToolResult, *GraphStatsResponse, error) {
	if c.graph == nil {
		return nil, nil, errs.New(errs.KindChannelUnhealthy, "graph repository is not configured")
	}
	stats, err := c.graph.Stats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("graph_stats: %w", err)
	}
	response := &GraphStatsResponse{
		TotalEntities:  stats.TotalEntities,
		TotalRelations: stats.TotalRelations,
		ByCategory:     stats.ByCategory,
		ByDesignSystem: stats.ByDesignSystem,
		AvgDegree:      stats.AvgDegree,
	}
	if c.reasoner != nil {
		rs := c.reasoner.Stats()
		response.ReasonerState = rs.State.String()
		response.ReasonerConsecutiveFailures = rs.ConsecutiveFailures
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// GraphPageRequest is the graph_page tool's input, per §6.
type GraphPageRequest struct {
	Page         int    `json:"page"`
	PerPage      int    `json:"per_page"`
	Category     string `json:"category,omitempty"`
	DesignSystem string `json:"design_system,omitempty"`
}

// GraphPageResponse is the graph_page tool's output, per §6.
type GraphPageResponse struct {
	Elements []*types.Entity `json:"elements"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PerPage  int             `json:"per_page"`
}

func (c *Core) handleGraphPage(ctx context.Context, req *mcp.CallToolRequest, input GraphPageRequest) (*mcp.CallToolResult, *GraphPageResponse, error) {
	page := input.Page
	if page <= 0 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	all, total, err := c.entities.List(ctx, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("graph_page: %w", err)
	}
	_ = total

	filtered := make([]*types.Entity, 0, len(all))
	for _, e := range all {
		if input.Category != "" && string(e.Category) != input.Category {
			continue
		}
		if input.DesignSystem != "" && string(e.DesignSystem) != input.DesignSystem {
			continue
		}
		filtered = append(filtered, e)
	}

	start := (page - 1) * perPage
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + perPage
	if end > len(filtered) {
		end = len(filtered)
	}

	response := &GraphPageResponse{
		Elements: filtered[start:end],
		Total:    len(filtered),
		Page:     page,
		PerPage:  perPage,
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

func validateUpsertEntity(input *UpsertEntityRequest) error {
	if input.ID == "" {
		return errs.New(errs.KindMalformedStatement, "id is required")
	}
	if input.Name == "" {
		return errs.New(errs.KindMalformedStatement, "name is required")
	}
	return nil
}
