package services

import (
	"ClinicHub/messaging"
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const defaultChannel = "whatsapp"

// SendInput is an outbound message from the inbox composer. Either Message
// or MediaURL is set, depending on the endpoint.
type SendInput struct {
	PatientID string `json:"patient_id"`
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
	Caption   string `json:"caption"`
}

// InboundInput is a message reported by the workflow (patient or assistant).
type InboundInput struct {
	ChatID     string            `json:"chat_id"`
	SessionID  string            `json:"session_id"`
	SenderType models.SenderType `json:"sender_type"`
	Channel    string            `json:"channel"`
	Content    string            `json:"message"`
	MediaType  string            `json:"media_type"`
	MediaURL   string            `json:"media_url"`
	Caption    string            `json:"caption"`
}

type MessagingService struct {
	messages   *repositories.MessageRepository
	patients   *repositories.PatientRepository
	activities *repositories.ActivityRepository
	sender     messaging.Sender
}

func NewMessagingService(messages *repositories.MessageRepository, patients *repositories.PatientRepository, activities *repositories.ActivityRepository, sender messaging.Sender) *MessagingService {
	return &MessagingService{messages: messages, patients: patients, activities: activities, sender: sender}
}

// Conversations groups the newest limit messages by session.
func (s *MessagingService) Conversations(ctx context.Context, limit int) ([]messaging.Conversation, error) {
	messages, err := s.messages.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return messaging.GroupConversations(messages), nil
}

func (s *MessagingService) Session(ctx context.Context, sessionID string) ([]models.Message, error) {
	return s.messages.ListBySession(ctx, sessionID)
}

// Send delivers a text message through the workflow and, only once delivery
// succeeded, appends it to the log as a human message.
func (s *MessagingService) Send(ctx context.Context, session models.Session, in SendInput) (*models.Message, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, invalid(errors.New("message is required"))
	}
	patient, sessionID, channel, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.sender.SendText(ctx, messaging.TextMessage{
		ChatID:     patient.ChatID,
		Message:    in.Message,
		SenderType: string(models.SenderHuman),
		Channel:    channel,
		SessionID:  sessionID,
	})
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		SessionID:  sessionID,
		PatientID:  &patient.ID,
		SenderType: models.SenderHuman,
		Channel:    channel,
		Content:    in.Message,
	}
	s.persistOutbound(ctx, session, message)
	return message, nil
}

// SendMedia is Send for an attachment already uploaded to storage.
func (s *MessagingService) SendMedia(ctx context.Context, session models.Session, in SendInput) (*models.Message, error) {
	if strings.TrimSpace(in.MediaURL) == "" || strings.TrimSpace(in.MediaType) == "" {
		return nil, invalid(errors.New("media_type and media_url are required"))
	}
	patient, sessionID, channel, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.sender.SendMedia(ctx, messaging.MediaMessage{
		ChatID:     patient.ChatID,
		MediaType:  in.MediaType,
		MediaURL:   in.MediaURL,
		Caption:    in.Caption,
		SenderType: string(models.SenderHuman),
		Channel:    channel,
		SessionID:  sessionID,
	})
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		SessionID:  sessionID,
		PatientID:  &patient.ID,
		SenderType: models.SenderHuman,
		Channel:    channel,
		MediaType:  in.MediaType,
		MediaURL:   in.MediaURL,
		Caption:    in.Caption,
	}
	s.persistOutbound(ctx, session, message)
	return message, nil
}

// Inbound appends a message reported by the workflow. The patient is matched
// by chat id when possible; unmatched messages are still logged.
func (s *MessagingService) Inbound(ctx context.Context, in InboundInput) (*models.Message, error) {
	if in.SenderType == "" {
		in.SenderType = models.SenderPatient
	}
	if !models.ValidSenderType(in.SenderType) {
		return nil, invalid(fmt.Errorf("unknown sender type %q", in.SenderType))
	}
	if in.Content == "" && in.MediaURL == "" {
		return nil, invalid(errors.New("message or media_url is required"))
	}
	if in.SessionID == "" {
		in.SessionID = in.ChatID
	}
	if in.SessionID == "" {
		return nil, invalid(errors.New("session_id or chat_id is required"))
	}

	message := &models.Message{
		SessionID:  in.SessionID,
		SenderType: in.SenderType,
		Channel:    in.Channel,
		Content:    in.Content,
		MediaType:  in.MediaType,
		MediaURL:   in.MediaURL,
		Caption:    in.Caption,
	}
	if in.ChatID != "" {
		patient, err := s.patients.FindByChatID(ctx, in.ChatID)
		switch {
		case err == nil:
			message.PatientID = &patient.ID
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
	}

	if err := s.messages.Append(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// resolve finds the patient's chat identity and the session to post into:
// the requested one, else the patient's latest, else the chat id itself.
func (s *MessagingService) resolve(ctx context.Context, in SendInput) (*models.Patient, string, string, error) {
	if in.PatientID == "" {
		return nil, "", "", invalid(errors.New("patient_id is required"))
	}
	patient, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, "", "", err
	}
	if patient.ChatID == "" {
		return nil, "", "", invalid(errors.New("patient has no chat id"))
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID, err = s.messages.LatestSessionForPatient(ctx, patient.ID)
		if errors.Is(err, repositories.ErrNotFound) {
			sessionID, err = patient.ChatID, nil
		}
		if err != nil {
			return nil, "", "", err
		}
	}

	channel := in.Channel
	if channel == "" {
		channel = patient.Channel
	}
	if channel == "" {
		channel = defaultChannel
	}
	return patient, sessionID, channel, nil
}

// persistOutbound logs a delivered message. The patient already has it, so a
// failed append is logged and the send still succeeds.
func (s *MessagingService) persistOutbound(ctx context.Context, session models.Session, message *models.Message) {
	if err := s.messages.Append(ctx, message); err != nil {
		log.Error().Err(err).
			Str("session_id", message.SessionID).
			Str("patient_id", *message.PatientID).
			Msg("delivered message was not logged")
	}
	activity := &models.Activity{
		PatientID:   *message.PatientID,
		Type:        models.ActivityMessageSent,
		Description: "Message sent from the inbox",
		ActorID:     session.UserID,
	}
	if err := s.activities.Record(ctx, activity); err != nil {
		log.Error().Err(err).Str("patient_id", activity.PatientID).Msg("failed to record activity")
	}
}
