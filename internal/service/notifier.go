// Package service contains the outbound collaborators and background jobs
// of the app: mail delivery and periodic token cleanup
package service

import (
	"context"

	"go.uber.org/zap"
)

type MailKind string

const (
	MailVerification MailKind = "verification"
	MailReset        MailKind = "reset"
)

// Message is one outgoing notification. Link already carries the token.
type Message struct {
	Kind MailKind `json:"kind"`
	To   string   `json:"to"`
	Name string   `json:"name"`
	Link string   `json:"link"`
}

type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// LogNotifier only logs what would have been sent. Used in development in
// place of a real transport.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, m Message) error {
	zap.L().Info("Mail preview",
		zap.String("kind", string(m.Kind)),
		zap.String("to", m.To),
		zap.String("link", m.Link),
	)
	return nil
}
