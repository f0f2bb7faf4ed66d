package mail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/pkg/config"
)

// Message is a single outbound e-mail.
type Message struct {
	To       []mail.Address
	Subject  string
	Text     string
	HTML     string
	Category string
}

// Sender delivers messages to an e-mail provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Validate checks the message has a recipient and content.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	for _, to := range m.To {
		if strings.TrimSpace(to.Address) == "" {
			return fmt.Errorf("recipient address is empty")
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("message subject is empty")
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("message has no content")
	}
	return nil
}

// NewSender picks the provider configured in MAIL_PROVIDER.
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "log":
		return NewLogSender(logger), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.AppName, cfg.FromName, cfg.FromAddress), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, to.Address)
	}
	s.logger.Info("mail message",
		zap.Strings("to", recipients),
		zap.String("subject", msg.Subject),
		zap.String("category", msg.Category),
	)
	return nil
}
