package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Config holds SMTP provider settings.
type Config struct {
	Enable  bool   `yaml:"enable"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"pass"`
	From    string `yaml:"from"`
	ReplyTo string `yaml:"reply_to"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender sends emails via SMTP. With Enable unset every Send is a no-op, so
// callers never need to special-case a missing mail setup.
type Sender struct {
	cfg Config
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send dispatches an email.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: no recipients")
	}

	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	headers := []string{
		"MIME-Version: 1.0",
		"From: " + from,
		"To: " + strings.Join(msg.To, ", "),
		"Subject: " + msg.Subject,
		"Content-Type: text/html; charset=UTF-8",
	}
	if s.cfg.ReplyTo != "" {
		headers = append(headers, "Reply-To: "+s.cfg.ReplyTo)
	}
	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.HTML

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	return smtp.SendMail(fmt.Sprintf("%s:%d", s.cfg.Host, port), auth, from, msg.To, []byte(raw))
}
