// Package notify sends support ticket emails.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/config"
	"github.com/abduss/artifactdrive/internal/ticket"
)

type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPDispatcher mails a confirmation to the customer and an alert to the support inbox.
type SMTPDispatcher struct {
	addr    string
	auth    smtp.Auth
	from    string
	support string
	send    sendFunc
	now     func() time.Time
	logger  *zap.Logger
}

// NewSMTPDispatcher builds a dispatcher from cfg.
func NewSMTPDispatcher(cfg config.NotifyConfig, logger *zap.Logger) *SMTPDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPDispatcher{
		addr:    net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:    auth,
		from:    cfg.From,
		support: cfg.SupportAddress,
		send:    sendMail,
		now:     time.Now,
		logger:  logger.With(zap.String("component", "notify")),
	}
}

// SendConfirmation mails the submitter.
func (d *SMTPDispatcher) SendConfirmation(ctx context.Context, t ticket.Ticket) error {
	msg, err := confirmationMessage(t)
	if err != nil {
		return err
	}
	return d.deliver(ctx, msg)
}

// SendInternalAlert mails the support inbox. Without a support address it does nothing.
func (d *SMTPDispatcher) SendInternalAlert(ctx context.Context, t ticket.Ticket) error {
	if d.support == "" {
		return nil
	}
	msg, err := alertMessage(t, d.support)
	if err != nil {
		return err
	}
	return d.deliver(ctx, msg)
}

func (d *SMTPDispatcher) deliver(ctx context.Context, msg message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := d.send(ctx, d.addr, d.auth, d.from, []string{msg.To}, d.compose(msg)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if errors.Is(err, os.ErrDeadlineExceeded) {
			err = context.DeadlineExceeded
		}
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	d.logger.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// sendMail is smtp.SendMail bound to ctx: the dial, every read and every write stop
// at the context deadline, and cancellation closes the connection.
func sendMail(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		conn.Close()
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (d *SMTPDispatcher) compose(msg message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", headerValue(d.from))
	fmt.Fprintf(&buf, "To: %s\r\n", headerValue(msg.To))
	fmt.Fprintf(&buf, "Subject: %s\r\n", headerValue(msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", d.now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}
