// Package mail builds and delivers the mails the API sends out. Delivery is
// always asynchronous: requests hand a Message to a Dispatcher and return.
package mail

import (
	"bitwise74/blog-api/internal/apperr"
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("no recipient provided")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Sender delivers a single message synchronously
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	if m == nil || m.To == "" {
		return ErrNoRecipient
	}

	if m.To == s.from {
		return errors.New("refusing to send mail to the sender address")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)

	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w, %w", apperr.ErrDelivery, err)
	}

	return nil
}
