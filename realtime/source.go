package realtime

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// NotificationSource yields raw NOTIFY payloads.
type NotificationSource interface {
	Next(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// Dialer opens a fresh NotificationSource; the Listener redials after errors.
type Dialer func(ctx context.Context) (NotificationSource, error)

// PGSource is a dedicated pgx connection running LISTEN on one channel.
type PGSource struct {
	conn *pgx.Conn
}

// PGDialer returns a Dialer that connects to dsn and listens on channel.
func PGDialer(dsn, channel string) Dialer {
	return func(ctx context.Context) (NotificationSource, error) {
		return ListenPG(ctx, dsn, channel)
	}
}

func ListenPG(ctx context.Context, dsn, channel string) (*PGSource, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}
	return &PGSource{conn: conn}, nil
}

func (s *PGSource) Next(ctx context.Context) (string, error) {
	n, err := s.conn.WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	return n.Payload, nil
}

func (s *PGSource) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
