package notify

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/artifactdrive/internal/config"
	"github.com/abduss/artifactdrive/internal/ticket"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestDispatcher(support string) (*SMTPDispatcher, *[]sentMail) {
	var sent []sentMail
	d := NewSMTPDispatcher(config.NotifyConfig{
		SMTPHost:       "smtp.example.com",
		SMTPPort:       587,
		From:           "noreply@example.com",
		SupportAddress: support,
	}, nil)
	d.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	d.send = func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return d, &sent
}

func sampleTicket() ticket.Ticket {
	return ticket.Ticket{
		ID:          42,
		Email:       "user@example.com",
		Title:       "Login broken",
		Category:    "Account",
		Description: "I cannot log in since the last update.",
		Priority:    ticket.PriorityNormal,
		CreatedAt:   time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC),
		Attachments: []ticket.Attachment{{OriginalFileName: "screen.png", ContentType: "image/png"}},
	}
}

func TestSendConfirmationMailsSubmitter(t *testing.T) {
	d, sent := newTestDispatcher("support@example.com")

	require.NoError(t, d.SendConfirmation(context.Background(), sampleTicket()))
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, []string{"user@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Support Ticket #42 Received\r\n")
	assert.Contains(t, mail.msg, "Ticket ID: #42")
	assert.Contains(t, mail.msg, "Created:   2025-03-01 11:30 UTC")
}

func TestSendInternalAlertListsAttachments(t *testing.T) {
	d, sent := newTestDispatcher("support@example.com")

	require.NoError(t, d.SendInternalAlert(context.Background(), sampleTicket()))
	require.Len(t, *sent, 1)
	assert.Equal(t, []string{"support@example.com"}, (*sent)[0].to)
	assert.Contains(t, (*sent)[0].msg, "- screen.png (image/png)")
	assert.Contains(t, (*sent)[0].msg, "I cannot log in since the last update.")
}

func TestSendInternalAlertWithoutSupportAddressIsNoop(t *testing.T) {
	d, sent := newTestDispatcher("")

	require.NoError(t, d.SendInternalAlert(context.Background(), sampleTicket()))
	assert.Empty(t, *sent)
}

func TestSubjectCannotInjectHeaders(t *testing.T) {
	d, sent := newTestDispatcher("support@example.com")
	tk := sampleTicket()
	tk.Title = "hi\r\nBcc: victim@example.com"

	require.NoError(t, d.SendInternalAlert(context.Background(), tk))
	headers := strings.SplitN((*sent)[0].msg, "\r\n\r\n", 2)[0]
	assert.NotContains(t, headers, "\r\nBcc:")
}

func TestDeliverReportsSendFailure(t *testing.T) {
	d, _ := newTestDispatcher("")
	d.send = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		return errors.New("421 service not available")
	}

	err := d.SendConfirmation(context.Background(), sampleTicket())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user@example.com")
}

func TestDeliverHonoursCancellation(t *testing.T) {
	d, sent := newTestDispatcher("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.SendConfirmation(ctx, sampleTicket())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *sent)
}

func TestSendMailDeliversOverSMTP(t *testing.T) {
	addr, received := startFakeSMTP(t)
	d, _ := newTestDispatcher("")
	d.addr = addr
	d.send = sendMail

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.SendConfirmation(ctx, sampleTicket()))

	select {
	case data := <-received:
		assert.Contains(t, data, "To: user@example.com")
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestSendMailStopsAtContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept the connection but never send the greeting.
	accepted := make(chan net.Conn, 1)
	go func() {
		if conn, err := ln.Accept(); err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	d, _ := newTestDispatcher("")
	d.addr = ln.Addr().String()
	d.send = sendMail

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = d.SendConfirmation(ctx, sampleTicket())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

// startFakeSMTP accepts one session, answers the commands net/smtp sends and
// reports the DATA payload once the client quits.
func startFakeSMTP(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 fake ESMTP")

		var data string
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				b, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				data = string(b)
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				received <- data
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()
	return ln.Addr().String(), received
}

func TestNewFallsBackToLogDispatcher(t *testing.T) {
	_, isLog := New(config.NotifyConfig{}, nil).(*LogDispatcher)
	assert.True(t, isLog)

	_, isSMTP := New(config.NotifyConfig{SMTPHost: "smtp.example.com", SMTPPort: 25}, nil).(*SMTPDispatcher)
	assert.True(t, isSMTP)

	d := NewLogDispatcher(nil)
	assert.NoError(t, d.SendConfirmation(context.Background(), sampleTicket()))
	assert.NoError(t, d.SendInternalAlert(context.Background(), sampleTicket()))
}
