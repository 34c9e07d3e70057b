package routes

import (
	"ClinicHub/config"
	"ClinicHub/messaging"
	"ClinicHub/testutil"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	mu    sync.Mutex
	err   error
	texts []messaging.TextMessage
}

func (s *stubSender) SendText(ctx context.Context, msg messaging.TextMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, msg)
	return s.err
}

func (s *stubSender) SendMedia(ctx context.Context, msg messaging.MediaMessage) error {
	return s.err
}

type server struct {
	t      *testing.T
	app    *App
	sender *stubSender
	h      http.Handler
	token  string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := testutil.NewEnv(t)
	cfg := &config.AppConfig{
		Env:          "test",
		SymmetricKey: "0123456789abcdef0123456789abcdef",
		CORSOrigins:  []string{"http://localhost:3000"},
		InboundToken: "inbound-secret",
	}
	sender := &stubSender{}
	app, err := NewApp(cfg, env.DB, env.Cache, env.Locker, sender)
	require.NoError(t, err)

	return &server{t: t, app: app, sender: sender, h: SetupRoutes(app)}
}

func (s *server) do(method, path string, body interface{}, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

// login registers the first account, which becomes Admin.
func (s *server) login() {
	s.t.Helper()
	code := s.do(http.MethodPost, "/auth/register", map[string]string{
		"username": "drsmith",
		"email":    "smith@clinic.test",
		"password": "Sup3r$ecret",
	}, nil)
	require.Equal(s.t, http.StatusCreated, code)

	var res struct {
		Token   string `json:"access_token"`
		Session struct {
			Role string `json:"role"`
		} `json:"session"`
	}
	code = s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "smith@clinic.test",
		"password": "Sup3r$ecret",
	}, &res)
	require.Equal(s.t, http.StatusOK, code)
	require.NotEmpty(s.t, res.Token)
	assert.Equal(s.t, "Admin", res.Session.Role)
	s.token = res.Token
}

type patientJSON struct {
	ID              string `json:"id"`
	PipelineStage   string `json:"pipeline_stage"`
	AIEnabled       bool   `json:"ai_enabled"`
	AssignedToHuman bool   `json:"assigned_to_human"`
	ChatID          string `json:"chat_id"`
}

func (s *server) createPatient(first, chatID string) patientJSON {
	s.t.Helper()
	var p patientJSON
	code := s.do(http.MethodPost, "/patients", map[string]string{
		"first_name": first,
		"last_name":  "Doe",
		"chat_id":    chatID,
	}, &p)
	require.Equal(s.t, http.StatusCreated, code)
	return p
}

func TestRootAndAuthRequired(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/", nil, nil))

	var body map[string]string
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/patients", nil, &body))
	assert.Equal(t, "not authenticated", body["error"])

	s.token = "garbage"
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/patients", nil, nil))
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/patients", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSessionAndTeam(t *testing.T) {
	s := newServer(t)
	s.login()

	var sess struct {
		Session struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		} `json:"session"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/auth/session", nil, &sess))
	assert.Equal(t, "Admin", sess.Session.Role)

	admin := s.token
	s.token = ""
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/auth/register", map[string]string{
		"username": "frontdesk",
		"email":    "desk@clinic.test",
		"password": "Fr0nt#Desk",
	}, nil))
	var res struct {
		Token string `json:"access_token"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "desk@clinic.test",
		"password": "Fr0nt#Desk",
	}, &res))

	s.token = res.Token
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/team", nil, nil))

	s.token = admin
	var team []struct {
		ID   string `json:"id"`
		Role struct {
			Name string `json:"name"`
		} `json:"role"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/team", nil, &team))
	require.Len(t, team, 2)

	var deskID string
	for _, member := range team {
		if member.Role.Name == "Receptionist" {
			deskID = member.ID
		}
	}
	require.NotEmpty(t, deskID)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPut, "/team/"+deskID+"/role", map[string]string{"role": "Doctor"}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/team/"+deskID+"/role", map[string]string{"role": "Owner"}, nil))
}

func TestLoginWrongPassword(t *testing.T) {
	s := newServer(t)
	s.login()
	s.token = ""
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "smith@clinic.test",
		"password": "nope",
	}, nil))
}

func TestPatientLifecycle(t *testing.T) {
	s := newServer(t)
	s.login()

	p := s.createPatient("Jane", "chat-1")
	assert.Equal(t, "lead", p.PipelineStage)
	assert.True(t, p.AIEnabled)

	var updated patientJSON
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/patients/"+p.ID+"/stage", map[string]string{"pipeline_stage": "contacted"}, &updated))
	assert.Equal(t, "contacted", updated.PipelineStage)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/patients/"+p.ID+"/stage", map[string]string{"pipeline_stage": "archived"}, nil))

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/patients/"+p.ID+"/handoff", map[string]bool{"assigned_to_human": true}, &updated))
	assert.True(t, updated.AssignedToHuman)
	assert.False(t, updated.AIEnabled)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/patients/"+p.ID+"/handoff", map[string]string{}, nil))

	var activities []struct {
		Type string `json:"type"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/patients/"+p.ID+"/activities", nil, &activities))
	assert.Len(t, activities, 3)

	var tag struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/tags", map[string]string{"name": "vip", "color": "gold"}, &tag))
	require.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/patients/"+p.ID+"/tags", map[string]string{"tag_id": tag.ID}, nil))
	var tags []struct {
		Name string `json:"name"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/patients/"+p.ID+"/tags", nil, &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "vip", tags[0].Name)
	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/patients/"+p.ID+"/tags/"+tag.ID, nil, nil))

	var listed []patientJSON
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/patients?stage=contacted", nil, &listed))
	assert.Len(t, listed, 1)

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/patients/"+p.ID, nil, nil))
	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/patients/"+p.ID, nil, &errBody))
	assert.Equal(t, "not found", errBody["error"])
}

func TestPipelineBoardAndMoves(t *testing.T) {
	s := newServer(t)
	s.login()
	a := s.createPatient("Ann", "chat-a")
	b := s.createPatient("Ben", "chat-b")

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/patients/"+b.ID+"/stage", map[string]string{"pipeline_stage": "active"}, nil))

	var board struct {
		Columns []struct {
			Stage    string        `json:"stage"`
			Patients []patientJSON `json:"patients"`
		} `json:"columns"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/pipeline", nil, &board))
	require.Len(t, board.Columns, 5)
	assert.Equal(t, "lead", board.Columns[0].Stage)
	assert.Len(t, board.Columns[0].Patients, 1)
	assert.Len(t, board.Columns[3].Patients, 1)

	var result struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Changed bool   `json:"changed"`
	}
	// dropped on another card: the target column is that card's stage
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/pipeline/moves", map[string]string{"active_id": a.ID, "over_id": b.ID}, &result))
	assert.Equal(t, "lead", result.From)
	assert.Equal(t, "active", result.To)
	assert.True(t, result.Changed)

	var stored patientJSON
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/patients/"+a.ID, nil, &stored))
	assert.Equal(t, "active", stored.PipelineStage)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/pipeline/moves", map[string]string{"active_id": a.ID, "over_id": "active"}, &result))
	assert.False(t, result.Changed)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/pipeline/moves", map[string]string{"active_id": a.ID, "over_id": "nowhere"}, nil))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/pipeline/moves", map[string]string{"active_id": "ghost", "over_id": "lead"}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/pipeline/moves", map[string]string{"active_id": a.ID}, nil))

	// created after the board was loaded, with no change notification yet
	c := s.createPatient("Cid", "chat-c")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/pipeline/moves", map[string]string{"active_id": c.ID, "over_id": "contacted"}, &result))
	assert.Equal(t, "contacted", result.To)
	assert.True(t, result.Changed)
}

func TestAppointmentsAndSeeding(t *testing.T) {
	s := newServer(t)
	s.login()

	var seedErr map[string]string
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/seed/demo-appointments", nil, &seedErr))
	assert.NotEmpty(t, seedErr["error"])

	p := s.createPatient("Cara", "chat-c")
	var seeded map[string]int
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/seed/demo-appointments", nil, &seeded))
	assert.Equal(t, 5, seeded["count"])

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/appointments", map[string]interface{}{
		"title":      "Backwards",
		"start_time": start,
		"end_time":   start.Add(-time.Hour),
	}, nil))

	var appt struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/appointments", map[string]interface{}{
		"title":      "Checkup",
		"start_time": start,
		"end_time":   start.Add(30 * time.Minute),
		"patient_id": p.ID,
	}, &appt))
	assert.Equal(t, "scheduled", appt.Status)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/appointments/"+appt.ID+"/status", map[string]string{"status": "confirmed"}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/appointments/"+appt.ID+"/status", map[string]string{"status": "maybe"}, nil))

	var all []struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/appointments?patient_id="+p.ID, nil, &all))
	assert.Len(t, all, 6)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/appointments?from=yesterday", nil, nil))
}

func TestFinanceSummaryAndDashboard(t *testing.T) {
	s := newServer(t)
	s.login()
	now := time.Now().UTC()

	for _, tx := range []map[string]interface{}{
		{"description": "Cleaning", "amount_cents": 12000, "type": "income", "status": "paid", "occurred_at": now},
		{"description": "Filling", "amount_cents": 8000, "type": "income", "status": "pending", "occurred_at": now},
		{"description": "Supplies", "amount_cents": 3000, "type": "expense", "status": "completed", "occurred_at": now},
		{"description": "Refund", "amount_cents": 5000, "type": "expense", "status": "cancelled", "occurred_at": now},
	} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/transactions", tx, nil))
	}
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/transactions", map[string]interface{}{
		"description": "Nothing", "amount_cents": 0, "type": "income",
	}, nil))

	var summary struct {
		Income        int64 `json:"income_cents"`
		Expense       int64 `json:"expense_cents"`
		Balance       int64 `json:"balance_cents"`
		PendingIncome int64 `json:"pending_income_cents"`
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	query := "?from=" + monthStart.Format(time.RFC3339) + "&to=" + monthStart.AddDate(0, 1, 0).Format(time.RFC3339)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/finance/summary"+query, nil, &summary))
	assert.Equal(t, int64(12000), summary.Income)
	assert.Equal(t, int64(3000), summary.Expense)
	assert.Equal(t, int64(9000), summary.Balance)
	assert.Equal(t, int64(8000), summary.PendingIncome)

	s.createPatient("Dan", "chat-d")
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/tasks", map[string]string{"title": "Call back"}, nil))

	var dash struct {
		TotalPatients int64            `json:"total_patients"`
		OpenTasks     int64            `json:"open_tasks"`
		ByStage       map[string]int64 `json:"patients_by_stage"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/dashboard/summary", nil, &dash))
	assert.Equal(t, int64(1), dash.TotalPatients)
	assert.Equal(t, int64(1), dash.OpenTasks)
	assert.Equal(t, int64(1), dash.ByStage["lead"])
}

func TestTasks(t *testing.T) {
	s := newServer(t)
	s.login()

	var task struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/tasks", map[string]string{"title": "Order gloves"}, &task))
	assert.Equal(t, "todo", task.Status)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/tasks/"+task.ID+"/status", map[string]string{"status": "done"}, nil))

	var done []struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/tasks?status=done", nil, &done))
	assert.Len(t, done, 1)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/tasks?status=later", nil, nil))

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/tasks/"+task.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/tasks/"+task.ID, nil, nil))
}

func TestMessagingRoutes(t *testing.T) {
	s := newServer(t)
	s.login()
	p := s.createPatient("Eve", "5511999")

	var sent struct {
		Success bool `json:"success"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/messages/send", map[string]string{
		"patient_id": p.ID,
		"message":    "See you tomorrow",
	}, &sent))
	assert.True(t, sent.Success)
	require.Len(t, s.sender.texts, 1)
	assert.Equal(t, "5511999", s.sender.texts[0].ChatID)
	assert.Equal(t, "human", s.sender.texts[0].SenderType)

	s.sender.err = messaging.ErrDeliveryFailed
	require.Equal(t, http.StatusBadGateway, s.do(http.MethodPost, "/messages/send", map[string]string{
		"patient_id": p.ID,
		"message":    "lost",
	}, &sent))
	assert.False(t, sent.Success)

	var conversations []struct {
		SessionID    string `json:"session_id"`
		MessageCount int    `json:"message_count"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/messages/conversations", nil, &conversations))
	require.Len(t, conversations, 1)
	assert.Equal(t, "5511999", conversations[0].SessionID)
	assert.Equal(t, 1, conversations[0].MessageCount)

	var messages []struct {
		Content string `json:"content"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/messages/sessions/5511999", nil, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "See you tomorrow", messages[0].Content)
}

func TestInboundWebhook(t *testing.T) {
	s := newServer(t)
	s.login()
	p := s.createPatient("Fay", "chat-f")
	admin := s.token

	body := map[string]string{"chat_id": "chat-f", "message": "Hi, can I reschedule?"}

	s.token = ""
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/webhooks/inbound-message", body, nil))
	s.token = admin
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/webhooks/inbound-message", body, nil))

	s.token = "inbound-secret"
	var msg struct {
		PatientID  *string `json:"patient_id"`
		SenderType string  `json:"sender_type"`
		SessionID  string  `json:"session_id"`
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/webhooks/inbound-message", body, &msg))
	require.NotNil(t, msg.PatientID)
	assert.Equal(t, p.ID, *msg.PatientID)
	assert.Equal(t, "patient", msg.SenderType)
	assert.Equal(t, "chat-f", msg.SessionID)
}
