package assistant

import (
	"ClinicHub/messaging"
	"ClinicHub/models"
	"ClinicHub/pipeline"
	"ClinicHub/repositories"
	"ClinicHub/services"
	"ClinicHub/testutil"
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSender struct{}

func (noopSender) SendText(ctx context.Context, msg messaging.TextMessage) error { return nil }
func (noopSender) SendMedia(ctx context.Context, msg messaging.MediaMessage) error { return nil }

type harness struct {
	tools    *Tools
	patients *services.PatientService
	messages *repositories.MessageRepository
	activity *repositories.ActivityRepository
}

func newHarness(t *testing.T) *harness {
	env := testutil.NewEnv(t)
	patientRepo := repositories.NewPatientRepository(env.DB, env.Cache, env.Locker)
	activityRepo := repositories.NewActivityRepository(env.DB)
	messageRepo := repositories.NewMessageRepository(env.DB, env.Cache)

	patients := services.NewPatientService(patientRepo, activityRepo)
	msgs := services.NewMessagingService(messageRepo, patientRepo, activityRepo, noopSender{})
	board := pipeline.NewBoard(patientRepo, patientRepo)

	return &harness{
		tools:    NewTools(board, patients, msgs),
		patients: patients,
		messages: messageRepo,
		activity: activityRepo,
	}
}

func (h *harness) patient(t *testing.T, first string) *models.Patient {
	p, err := h.patients.Create(context.Background(), Actor, services.PatientInput{
		FirstName: testutil.StrPtr(first),
		LastName:  testutil.StrPtr("Lopez"),
		ChatID:    testutil.StrPtr("chat-" + first),
	})
	require.NoError(t, err)
	return p
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestDefinitions(t *testing.T) {
	h := newHarness(t)
	var names []string
	for _, d := range h.tools.Definitions() {
		names = append(names, d.Tool.Name)
	}
	assert.Equal(t, []string{"list_pipeline", "move_patient_stage", "set_handoff", "list_conversations"}, names)
	assert.NotNil(t, NewServer(h.tools))
}

func TestMoveAndListPipeline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.patient(t, "Rosa")

	res, err := h.tools.MovePatientStage(ctx, call(map[string]interface{}{"patient_id": p.ID, "stage": "scheduled"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Rosa Lopez is now in scheduled", text(t, res))

	res, err = h.tools.ListPipeline(ctx, call(nil))
	require.NoError(t, err)
	var board map[string][]pipelineCard
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &board))
	require.Len(t, board["scheduled"], 1)
	assert.Equal(t, p.ID, board["scheduled"][0].ID)
	assert.Empty(t, board["lead"])

	activities, err := h.activity.ListForPatient(ctx, p.ID)
	require.NoError(t, err)
	var kinds []models.ActivityType
	for _, a := range activities {
		kinds = append(kinds, a.Type)
	}
	assert.Contains(t, kinds, models.ActivityStageChanged)
}

func TestMoveRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.tools.MovePatientStage(ctx, call(map[string]interface{}{"patient_id": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.tools.MovePatientStage(ctx, call(map[string]interface{}{"patient_id": "x", "stage": "archived"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.tools.MovePatientStage(ctx, call(map[string]interface{}{"patient_id": "missing", "stage": "active"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "patient not found")
}

func TestSetHandoff(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.patient(t, "Ines")

	res, err := h.tools.SetHandoff(ctx, call(map[string]interface{}{"patient_id": p.ID, "to_human": true}))
	require.NoError(t, err)
	assert.Equal(t, "Ines Lopez is handed off to a human", text(t, res))

	stored, err := h.patients.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.AssignedToHuman)
	assert.False(t, stored.AIEnabled)

	res, err = h.tools.SetHandoff(ctx, call(map[string]interface{}{"patient_id": p.ID}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListConversations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.tools.ListConversations(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", text(t, res))

	for _, content := range []string{"hello", "are you open saturday?"} {
		require.NoError(t, h.messages.Append(ctx, &models.Message{SessionID: "s-1", SenderType: models.SenderPatient, Content: content}))
	}
	res, err = h.tools.ListConversations(ctx, call(map[string]interface{}{"limit": 10}))
	require.NoError(t, err)

	var conversations []messaging.Conversation
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &conversations))
	require.Len(t, conversations, 1)
	assert.Equal(t, "s-1", conversations[0].SessionID)
	assert.Equal(t, 2, conversations[0].MessageCount)
}
