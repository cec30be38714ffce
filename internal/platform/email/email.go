package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"hrpay/internal/platform/config"
	"hrpay/internal/platform/logger"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Size is the total attachment payload in bytes.
func (m Message) Size() int {
	n := 0
	for _, a := range m.Attachments {
		n += len(a.Data)
	}
	return n
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipient is returned when a message has no usable To address.
var ErrNoRecipient = errors.New("email recipient is required")

type noopMailer struct {
	log logger.Logger
}

func (n noopMailer) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	n.log.WithField("to", msg.To).Debugf("email disabled, dropping %q (%s attached)", msg.Subject, humanize.Bytes(uint64(msg.Size())))
	return nil
}

type smtpMailer struct {
	cfg config.Config
	log logger.Logger
}

// New returns an SMTP mailer, or a mailer that drops messages when email is
// disabled or no host is configured.
func New(cfg config.Config, log logger.Logger) Mailer {
	if log == nil {
		log = logger.Discard()
	}
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{log: log}
	}
	return &smtpMailer{cfg: cfg, log: log}
}

func (s *smtpMailer) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return ErrNoRecipient
	}
	payload, err := buildMessage(s.cfg.EmailFrom, msg)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "dial smtp")
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return errors.Wrap(err, "smtp handshake")
	}
	defer client.Close()

	if s.cfg.SMTPUseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			return errors.Wrap(err, "smtp starttls")
		}
	}
	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "smtp auth")
		}
	}
	if err := client.Mail(s.cfg.EmailFrom); err != nil {
		return errors.Wrap(err, "smtp mail from")
	}
	if err := client.Rcpt(to); err != nil {
		return errors.Wrap(err, "smtp rcpt")
	}
	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "smtp data")
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "smtp write")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "smtp close data")
	}
	s.log.WithField("to", to).Infof("sent %q (%s)", msg.Subject, humanize.Bytes(uint64(len(payload))))
	return client.Quit()
}

// buildMessage renders msg as RFC 5322 text. Messages with attachments become
// multipart/mixed with base64 parts.
func buildMessage(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", strings.TrimSpace(msg.To))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("MIME-Version", "1.0")

	if len(msg.Attachments) == 0 {
		header("Content-Type", `text/plain; charset="UTF-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(msg.Body)
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="UTF-8"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64-encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}
