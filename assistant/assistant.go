// Package assistant exposes pipeline and inbox operations as MCP tools so the
// AI assistant can work the same data as the dashboard.
package assistant

import (
	"ClinicHub/messaging"
	"ClinicHub/models"
	"ClinicHub/pipeline"
	"ClinicHub/repositories"
	"ClinicHub/services"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Actor is the session assistant writes are recorded under.
var Actor = models.Session{UserID: "assistant", Role: models.RoleDoctor}

const defaultConversationLimit = 200

// Board is the part of pipeline.Board the tools read.
type Board interface {
	Refresh(ctx context.Context) error
	Columns() []pipeline.Column
}

type Tools struct {
	board     Board
	patients  *services.PatientService
	messaging *services.MessagingService
}

func NewTools(board Board, patients *services.PatientService, messages *services.MessagingService) *Tools {
	return &Tools{board: board, patients: patients, messaging: messages}
}

// NewServer builds the MCP server with every tool registered.
func NewServer(t *Tools) *server.MCPServer {
	s := server.NewMCPServer(
		"clinichub",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("ClinicHub tools: read the patient pipeline and inbox, move patients between stages, hand conversations to a human."),
	)
	for _, tool := range t.Definitions() {
		s.AddTool(tool.Tool, tool.Handler)
	}
	return s
}

// Definitions lists the tools with their handlers.
func (t *Tools) Definitions() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("list_pipeline",
				mcp.WithDescription("List patients grouped by pipeline stage (lead, contacted, scheduled, active, inactive)."),
			),
			Handler: t.ListPipeline,
		},
		{
			Tool: mcp.NewTool("move_patient_stage",
				mcp.WithDescription("Move a patient to another pipeline stage."),
				mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient id")),
				mcp.WithString("stage", mcp.Required(), mcp.Description("Target stage"),
					mcp.Enum("lead", "contacted", "scheduled", "active", "inactive")),
			),
			Handler: t.MovePatientStage,
		},
		{
			Tool: mcp.NewTool("set_handoff",
				mcp.WithDescription("Hand a patient's conversation to a human (turns the assistant off) or back to the assistant."),
				mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient id")),
				mcp.WithBoolean("to_human", mcp.Required(), mcp.Description("true hands off to a human")),
			),
			Handler: t.SetHandoff,
		},
		{
			Tool: mcp.NewTool("list_conversations",
				mcp.WithDescription("List recent conversations, newest first."),
				mcp.WithNumber("limit", mcp.Description("How many recent messages to group, default 200")),
			),
			Handler: t.ListConversations,
		},
	}
}

type pipelineCard struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AIEnabled       bool   `json:"ai_enabled"`
	AssignedToHuman bool   `json:"assigned_to_human"`
}

func (t *Tools) ListPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.board.Refresh(ctx); err != nil {
		return toolError("failed to load pipeline", err), nil
	}
	out := make(map[models.PipelineStage][]pipelineCard, len(models.PipelineStages))
	for _, column := range t.board.Columns() {
		cards := make([]pipelineCard, 0, len(column.Patients))
		for _, p := range column.Patients {
			cards = append(cards, pipelineCard{ID: p.ID, Name: p.FullName(), AIEnabled: p.AIEnabled, AssignedToHuman: p.AssignedToHuman})
		}
		out[column.Stage] = cards
	}
	return jsonResult(out)
}

func (t *Tools) MovePatientStage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("patient_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("stage")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stage, err := models.ParseStage(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	patient, err := t.patients.UpdateStage(ctx, Actor, id, stage)
	if err != nil {
		return toolError("failed to move patient", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is now in %s", patient.FullName(), patient.PipelineStage)), nil
}

func (t *Tools) SetHandoff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("patient_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	toHuman, err := req.RequireBool("to_human")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	patient, err := t.patients.SetHandoff(ctx, Actor, id, toHuman)
	if err != nil {
		return toolError("failed to set handoff", err), nil
	}
	if patient.AssignedToHuman {
		return mcp.NewToolResultText(fmt.Sprintf("%s is handed off to a human", patient.FullName())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is back with the assistant", patient.FullName())), nil
}

func (t *Tools) ListConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultConversationLimit)
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	conversations, err := t.messaging.Conversations(ctx, limit)
	if err != nil {
		return toolError("failed to list conversations", err), nil
	}
	if conversations == nil {
		conversations = []messaging.Conversation{}
	}
	return jsonResult(conversations)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports a failure to the model. Unexpected errors are logged and
// not echoed.
func toolError(msg string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return mcp.NewToolResultError(msg + ": patient not found")
	case services.IsValidation(err):
		return mcp.NewToolResultError(msg + ": " + err.Error())
	}
	log.Error().Err(err).Msg(msg)
	return mcp.NewToolResultError(msg)
}
