package mailclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/go-playground/validator/v10"
	"github.com/yusufsyaifudin/tagihan/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
)

// smtpConn is the part of *smtp.Client the mailer talks to.
type smtpConn interface {
	Noop() error
	Reset() error
	Mail(from string, opts *smtp.MailOptions) error
	Rcpt(to string, opts *smtp.RcptOptions) error
	Extension(ext string) (bool, string)
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

var _ smtpConn = (*smtp.Client)(nil)

type SmtpMailerConfig struct {
	EmailCredential *EmailCredential `validate:"required"`
}

type SmtpMailer struct {
	Config *SmtpMailerConfig
	dial   func(ctx context.Context, cred *EmailCredential) (smtpConn, error)
	smtp   smtpConn
	lock   sync.Mutex
}

var _ Client = (*SmtpMailer)(nil)

// NewSmtp will return new smtp client without any real connection is made.
// It will connect on the first Send, so a dry run never touches the network.
func NewSmtp(cfg *SmtpMailerConfig) (*SmtpMailer, error) {
	err := validator.New().Struct(cfg)
	if err != nil {
		err = fmt.Errorf("validation error: %w", err)
		return nil, err
	}

	client := &SmtpMailer{
		Config: cfg,
		dial:   initClient,
	}

	return client, nil
}

// Send runs one mail transaction: MAIL once, RCPT for every recipient and DATA
// when at least one recipient was accepted.
func (m *SmtpMailer) Send(ctx context.Context, from string, recipients []string, raw []byte) (report Report) {
	m.lock.Lock()
	defer m.lock.Unlock()

	ctx, span := tracer.StartSpan(ctx, "mailclient.Send")
	defer span.End()

	span.SetAttributes(attribute.Int("recipients", len(recipients)))
	defer func() {
		if report.ClientError != nil {
			span.RecordError(report.ClientError)
			span.SetStatus(codes.Error, "smtp transaction failed")
		}

		span.SetAttributes(attribute.Int("refused", len(report.Failures)))
	}()

	if len(recipients) == 0 {
		report.ClientError = fmt.Errorf("no recipient")
		return
	}

	var err error

	// ** init the smtp client before really send
	if m.smtp == nil {
		m.smtp, err = m.dial(ctx, m.Config.EmailCredential)
	}

	if err != nil {
		report.ClientError = fmt.Errorf("failed to init smtp client: %w", err)
		return
	}

	if m.smtp == nil {
		report.ClientError = fmt.Errorf("init smtp client still got nil client")
		return
	}

	// NOOP command to check if connection still ok
	err = m.smtp.Noop()
	if err != nil {
		report.ClientError = fmt.Errorf("smtp connection is not ok: %w", err)
		m.drop()
		return
	}

	// RSET command is for aborting already started mail transaction (tools.ietf.org/html/rfc5321#section-4.1.1.5).
	err = m.smtp.Reset()
	if err != nil {
		report.ClientError = fmt.Errorf("RSET cmd failed: %w", err)
		m.drop()
		return
	}

	// New transaction is initiated using the MAIL command (tools.ietf.org/html/rfc5321#section-4.1.1.2).
	err = m.smtp.Mail(from, nil)
	if err != nil {
		report.ClientError = fmt.Errorf("MAIL cmd failed: %w", err)
		return
	}

	rcptOpts := rcptOptions(m.smtp)
	accepted := 0
	for _, rcpt := range recipients {
		if _err := m.smtp.Rcpt(rcpt, rcptOpts); _err != nil {
			report.Failures = append(report.Failures, RecvFailure{Recipient: rcpt, Error: _err})
			continue
		}

		accepted++
	}

	if accepted == 0 {
		return
	}

	// Send the email body.
	var wc io.WriteCloser
	wc, err = m.smtp.Data()
	if err != nil {
		report.ClientError = fmt.Errorf("error data writer: %w", err)
		return
	}

	_, err = io.Copy(wc, bytes.NewReader(raw))
	if err != nil {
		report.ClientError = fmt.Errorf("error data copy: %w", err)
		return
	}

	err = wc.Close()
	if err != nil {
		report.ClientError = fmt.Errorf("error data close: %w", err)
		return
	}

	return
}

// drop closes a connection that stopped answering, so the next Send dials a
// new one. The message that found it dead is not retried.
func (m *SmtpMailer) drop() {
	_ = m.smtp.Close()
	m.smtp = nil
}

// rcptOptions asks for a delivery status notification on failure or delay
// (RFC 3461) when the server supports it.
func rcptOptions(conn smtpConn) *smtp.RcptOptions {
	if ok, _ := conn.Extension("DSN"); !ok {
		return nil
	}

	return &smtp.RcptOptions{
		Notify: []smtp.DSNNotify{smtp.DSNNotifyFailure, smtp.DSNNotifyDelayed},
	}
}

// Close .
// https://stackoverflow.com/questions/2468851/when-should-i-send-quit-to-smtp-server-and-how-long-should-i-keep-a-session
// https://stackoverflow.com/a/19670136/5489910
func (m *SmtpMailer) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.smtp == nil {
		return nil
	}

	conn := m.smtp
	m.smtp = nil

	var err error
	_err := conn.Quit()
	if _err == nil {
		return nil
	}

	err = multierr.Append(err, fmt.Errorf("quit command error: %w", _err))
	_err = conn.Close()
	if _err != nil {
		err = multierr.Append(err, fmt.Errorf("close command error: %w", _err))
	}

	return err
}

// ----- Function here is intended to have simple function (not as method handler in a struct),
// because it will be eaiser to debug and test. In addition, we can ensure it will not use the variable that stateful.

func initClient(ctx context.Context, cred *EmailCredential) (smtpConn, error) {
	err := validator.New().Struct(cred)
	if err != nil {
		err = fmt.Errorf("validation on email credential error: %w", err)
		return nil, err
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", cred.Addr())
	if err != nil {
		err = fmt.Errorf("tcp dial error: %w", err)
		return nil, err
	}

	c, err := smtp.NewClient(conn, cred.ServerHost)
	if err != nil {
		err = fmt.Errorf("error new smtp client: %w", err)
		return nil, multierr.Append(err, conn.Close())
	}

	if cred.HeloName != "" {
		if err = c.Hello(cred.HeloName); err != nil {
			err = fmt.Errorf("error hello: %w", err)
			return nil, multierr.Append(err, c.Close())
		}
	}

	if ok, _ := c.Extension("STARTTLS"); ok && cred.StartTLS {
		err = c.StartTLS(&tls.Config{ServerName: cred.ServerHost})
		if err != nil {
			err = fmt.Errorf("error start tls: %w", err)
			return nil, multierr.Append(err, c.Close())
		}
	}

	if cred.Username != "" {
		err = c.Auth(sasl.NewPlainClient(cred.AuthIdentity, cred.Username, cred.Password))
		if err != nil {
			err = fmt.Errorf("error auth: %w", err)
			return nil, multierr.Append(err, c.Close())
		}
	}

	err = c.Noop()
	if err != nil {
		err = fmt.Errorf("check smtp is not ok: %w", err)
		return nil, multierr.Append(err, c.Close())
	}

	return c, nil
}
