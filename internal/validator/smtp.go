package validator

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"net/textproto"
	"time"
)

// SMTPProber asks a mail host whether it accepts a recipient.
// accepted=false with a nil error means the host rejected the mailbox;
// a non-nil error means the probe was inconclusive (connect failure,
// timeout) and must not count against the contact.
type SMTPProber interface {
	Probe(ctx context.Context, mailHost, email string) (accepted bool, err error)
}

// smtpProber performs a HELO/MAIL/RCPT handshake and hangs up before
// DATA.
type smtpProber struct {
	heloDomain string
	from       string
	timeout    time.Duration
}

func NewSMTPProber(heloDomain, from string, timeout time.Duration) SMTPProber {
	return &smtpProber{heloDomain: heloDomain, from: from, timeout: timeout}
}

func (p *smtpProber) Probe(ctx context.Context, mailHost, email string) (bool, error) {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(mailHost, "25"))
	if err != nil {
		return false, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(p.timeout))
	}

	client, err := smtp.NewClient(conn, mailHost)
	if err != nil {
		conn.Close()
		return false, err
	}
	defer client.Close()

	if err := client.Hello(p.heloDomain); err != nil {
		return false, err
	}
	if err := client.Mail(p.from); err != nil {
		return false, err
	}

	err = client.Rcpt(email)
	if err == nil {
		// 250 and 251 both come back as success from net/smtp.
		return true, nil
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		// The server answered; anything but accept is a rejection.
		return false, nil
	}
	return false, err
}
