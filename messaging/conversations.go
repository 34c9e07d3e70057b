package messaging

import (
	"ClinicHub/models"
	"sort"
	"time"
)

// Conversation is a session of the message log.
type Conversation struct {
	SessionID    string    `json:"session_id"`
	PatientID    *string   `json:"patient_id"`
	Channel      string    `json:"channel"`
	LastMessage  string    `json:"last_message"`
	LastSender   string    `json:"last_sender"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// GroupConversations folds a flat message log into conversations keyed by
// session id, most recently active first. The patient id and channel are
// taken from the first message that carries one.
func GroupConversations(messages []models.Message) []Conversation {
	index := make(map[string]int)
	var conversations []Conversation

	for _, m := range messages {
		i, ok := index[m.SessionID]
		if !ok {
			i = len(conversations)
			index[m.SessionID] = i
			conversations = append(conversations, Conversation{SessionID: m.SessionID})
		}
		conv := &conversations[i]
		conv.MessageCount++
		if conv.PatientID == nil && m.PatientID != nil {
			conv.PatientID = m.PatientID
		}
		if conv.Channel == "" {
			conv.Channel = m.Channel
		}
		if conv.MessageCount == 1 || !m.CreatedAt.Before(conv.LastActivity) {
			conv.LastActivity = m.CreatedAt
			conv.LastMessage = preview(m)
			conv.LastSender = string(m.SenderType)
		}
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastActivity.After(conversations[j].LastActivity)
	})
	return conversations
}

func preview(m models.Message) string {
	if m.Content != "" {
		return m.Content
	}
	if m.Caption != "" {
		return m.Caption
	}
	if m.MediaType != "" {
		return "[" + m.MediaType + "]"
	}
	return ""
}
