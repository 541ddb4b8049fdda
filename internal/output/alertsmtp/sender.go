package alertsmtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"incidentsim/internal/logger"
	"incidentsim/pkg/models"
)

// Config configures the SMTP sender.
type Config struct {
	Host       string
	Port       int
	Security   string // ssl, starttls, tls, none
	From       string
	FromName   string
	Username   string
	Password   string
	Recipients []string
	Timeout    time.Duration
}

// Sender mails alerts as multipart/alternative messages.
type Sender struct {
	cfg Config
}

// NewSender validates cfg and fills defaults.
func NewSender(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is empty")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp sender address is empty")
	}
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("no smtp recipients configured")
	}
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	if cfg.Security == "" {
		cfg.Security = "ssl"
	}
	switch cfg.Security {
	case "ssl", "implicit", "tls", "starttls", "none", "plain":
	default:
		return nil, fmt.Errorf("unknown smtp security %q", cfg.Security)
	}
	if cfg.Port == 0 {
		switch cfg.Security {
		case "ssl", "implicit":
			cfg.Port = 465
		case "none", "plain":
			cfg.Port = 25
		default:
			cfg.Port = 587
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FromName == "" {
		cfg.FromName = "Incident Simulator"
	}
	return &Sender{cfg: cfg}, nil
}

// Send delivers one alert to every configured recipient.
func (s *Sender) Send(ctx context.Context, payload models.AlertPayload) error {
	msg, err := s.buildMessage(payload)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	if dl, ok := ctx.Deadline(); ok {
		dialer.Deadline = dl
	}

	var conn net.Conn
	switch s.cfg.Security {
	case "ssl", "implicit":
		conn, err = tls.DialWithDialer(&dialer, "tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	default:
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if s.cfg.Security == "tls" || s.cfg.Security == "starttls" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		} else if s.cfg.Security == "starttls" {
			return fmt.Errorf("server does not support STARTTLS")
		}
	}

	if s.cfg.Username != "" {
		if err := s.authenticate(client); err != nil {
			return err
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range s.cfg.Recipients {
		if err := client.Rcpt(strings.TrimSpace(rcpt)); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	logger.Debugf("Alert mail for incident %d sent to %d recipients", payload.IncidentID, len(s.cfg.Recipients))
	return client.Quit()
}

// Close is a no-op; each Send uses its own connection.
func (s *Sender) Close() error {
	return nil
}

// authenticate tries LOGIN first, then PLAIN.
func (s *Sender) authenticate(client *smtp.Client) error {
	ok, methods := client.Extension("AUTH")
	if !ok {
		return fmt.Errorf("server does not support authentication")
	}

	var authErr error
	if strings.Contains(methods, "LOGIN") {
		if authErr = client.Auth(LoginAuth(s.cfg.Username, s.cfg.Password)); authErr == nil {
			return nil
		}
		logger.Debugf("SMTP LOGIN auth failed: %v", authErr)
	}
	if strings.Contains(methods, "PLAIN") {
		if authErr = client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); authErr == nil {
			return nil
		}
	}
	if authErr != nil {
		return fmt.Errorf("authentication failed: %w", authErr)
	}
	return fmt.Errorf("no supported authentication method in %q", methods)
}

func (s *Sender) buildMessage(payload models.AlertPayload) ([]byte, error) {
	boundary := "incidentsim-" + uuid.NewString()

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(s.cfg.Recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", payload.Text},
		{"text/html", payload.HTML},
	}
	for _, p := range parts {
		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		fmt.Fprintf(&msg, "Content-Type: %s; charset=\"UTF-8\"\r\n", p.contentType)
		msg.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		qp := quotedprintable.NewWriter(&msg)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("failed to encode %s part: %w", p.contentType, err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode %s part: %w", p.contentType, err)
		}
		msg.WriteString("\r\n")
	}
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return msg.Bytes(), nil
}

type loginAuth struct {
	username, password string
}

// LoginAuth returns an smtp.Auth implementing the LOGIN mechanism.
func LoginAuth(username, password string) smtp.Auth {
	return &loginAuth{username, password}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch string(fromServer) {
	case "Username:":
		return []byte(a.username), nil
	case "Password:":
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("unknown server challenge: %s", fromServer)
	}
}
