package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// EmailConfig параметры SMTP
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier отправляет письма через SMTP
type EmailNotifier struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *EmailNotifier) Name() string {
	return "email"
}

// Send отправляет письмо. Получатели без email пропускаются.
// gomail не принимает context, дедлайн соблюдает вызывающая обёртка.
func (n *EmailNotifier) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Email == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetAddressHeader("To", to.Email, to.Name)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", renderBody(msg))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", to.Email, err)
	}
	return nil
}

// renderBody добавляет ссылки из кнопок в текст сообщения
func renderBody(msg Message) string {
	var sb strings.Builder
	sb.WriteString(msg.Body)
	for _, a := range msg.Actions {
		if a.URL == "" {
			continue
		}
		sb.WriteString("\n\n")
		sb.WriteString(a.Text)
		sb.WriteString(": ")
		sb.WriteString(a.URL)
	}
	return sb.String()
}
