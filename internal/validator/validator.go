package validator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"flatwatch/internal/domain"
)

// Options configure a Validator. The limiter is shared across every
// validation attempt the Validator makes, whatever the contact method;
// DNS and SMTP targets are shared infrastructure. Passing the same
// limiter to several Validators extends the guarantee across them.
type Options struct {
	Limiter     *rate.Limiter
	Resolver    Resolver
	Prober      SMTPProber
	HTTPClient  *http.Client
	SMTPEnabled bool
	Timeout     time.Duration
}

// Validator moves contacts through the staged verification pipeline.
// It only ever touches Status, never Confidence.
type Validator struct {
	limiter     *rate.Limiter
	resolver    Resolver
	prober      SMTPProber
	httpClient  *http.Client
	smtpEnabled bool
	timeout     time.Duration
	logger      *zap.Logger
}

const defaultProbeTimeout = 10 * time.Second

func New(opts Options, logger *zap.Logger) *Validator {
	v := &Validator{
		limiter:     opts.Limiter,
		resolver:    opts.Resolver,
		prober:      opts.Prober,
		httpClient:  opts.HTTPClient,
		smtpEnabled: opts.SMTPEnabled,
		timeout:     opts.Timeout,
		logger:      logger,
	}
	if v.limiter == nil {
		v.limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	if v.resolver == nil {
		v.resolver = net.DefaultResolver
	}
	if v.timeout == 0 {
		v.timeout = defaultProbeTimeout
	}
	if v.httpClient == nil {
		v.httpClient = &http.Client{Timeout: v.timeout}
	}
	if v.prober == nil {
		v.prober = NewSMTPProber("flatwatch.local", "verify@flatwatch.local", v.timeout)
	}
	return v
}

// ValidateContact runs one contact through the pipeline and records the
// outcome on its Status field:
//
//	syntax or DNS failure      -> INVALID, *ValidationError returned
//	checks pass, SMTP off/skip -> UNVERIFIED (terminal), nil
//	SMTP accepted              -> VERIFIED, nil
//	SMTP rejected              -> INVALID, *ValidationError returned
//	SMTP unreachable           -> UNVERIFIED, nil (inconclusive)
//	unexpected error           -> FLAGGED, error returned
func (v *Validator) ValidateContact(ctx context.Context, c *domain.Contact) error {
	if err := v.limiter.Wait(ctx); err != nil {
		c.Status = domain.StatusFlagged
		return fmt.Errorf("rate gate: %w", err)
	}

	var err error
	switch c.Method {
	case domain.MethodEmail, domain.MethodMailto:
		err = v.validateEmail(ctx, c)
	case domain.MethodPhone:
		err = v.validatePhone(c)
	default:
		// Pages and forms have no per-contact probe.
		return nil
	}

	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.Status = domain.StatusInvalid
		} else {
			c.Status = domain.StatusFlagged
		}
	}
	return err
}

func (v *Validator) validateEmail(ctx context.Context, c *domain.Contact) error {
	tier, err := CheckEmailSyntax(c.Value)
	if err != nil {
		return err
	}
	c.Metadata["syntax_tier"] = tier

	if err := CheckEmailDomain(c.Value); err != nil {
		return err
	}

	dom := emailDomain(c.Value)
	dnsCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	mailHost, err := lookupMailHost(dnsCtx, v.resolver, dom)
	if err != nil {
		return err
	}

	if !v.smtpEnabled || isFreemailDomain(dom) {
		return nil
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, v.timeout)
	defer cancelProbe()

	accepted, probeErr := v.prober.Probe(probeCtx, mailHost, c.Value)
	if probeErr != nil {
		// Infrastructure failure, not evidence of a bad mailbox.
		v.logger.Debug("smtp probe inconclusive",
			zap.String("email", c.Value),
			zap.Error(probeErr))
		return nil
	}
	if !accepted {
		return invalidf("mailbox rejected by %s", mailHost)
	}
	c.Status = domain.StatusVerified
	return nil
}

func (v *Validator) validatePhone(c *domain.Contact) error {
	pattern, err := CheckPhone(c.Value)
	if err != nil {
		return err
	}
	c.Metadata["phone_pattern"] = pattern
	c.Status = domain.StatusVerified
	return nil
}

// ValidateForm checks that a form's action URL is plausibly reachable.
// Reachability alone proves nothing about usability, so a passing form
// stays unverified.
func (v *Validator) ValidateForm(ctx context.Context, f *domain.ContactForm) error {
	if err := v.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate: %w", err)
	}

	u, err := url.Parse(f.ActionURL)
	if err != nil {
		return invalidf("unparsable action url %q", f.ActionURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidf("unsupported scheme %q", u.Scheme)
	}

	reqCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, f.ActionURL, nil)
	if err != nil {
		return invalidf("bad action url: %v", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("head %s: %w", f.ActionURL, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return invalidf("form endpoint answered %d", resp.StatusCode)
	}
	return nil
}
