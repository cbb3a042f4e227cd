package validator

import (
	"context"
	"net"
	"regexp"
	"strings"
)

const (
	maxLocalLength = 64
	maxEmailLength = 254
	maxDomainDepth = 4
)

// Syntax tiers, strictest first. A candidate passing any tier moves on
// to the domain checks.
var syntaxTiers = []struct {
	name string
	re   *regexp.Regexp
}{
	{"strict", regexp.MustCompile(`(?i)^[a-z0-9]([a-z0-9._%+\-]*[a-z0-9])?@[a-z0-9]([a-z0-9\-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9\-]*[a-z0-9])?)*\.[a-z]{2,}$`)},
	{"standard", regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)},
	{"lenient", regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)},
}

var badEmailDomains = map[string]struct{}{
	"localhost":   {},
	"127.0.0.1":   {},
	"example.com": {},
	"example.org": {},
	"test.com":    {},
	"domain.com":  {},
	"invalid":     {},
}

// freemailDomains are large providers that routinely accept or reject
// SMTP probes regardless of mailbox existence; probing them produces
// noise, not signal.
var freemailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"yahoo.de":       {},
	"outlook.com":    {},
	"hotmail.com":    {},
	"hotmail.de":     {},
	"gmx.de":         {},
	"gmx.net":        {},
	"web.de":         {},
	"t-online.de":    {},
	"icloud.com":     {},
}

// CheckEmailSyntax applies the tiered format check and the RFC-ish
// length caps. It returns the tier that matched.
func CheckEmailSyntax(email string) (string, error) {
	if len(email) > maxEmailLength {
		return "", invalidf("address exceeds %d characters", maxEmailLength)
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", invalidf("missing local part or domain")
	}
	if at > maxLocalLength {
		return "", invalidf("local part exceeds %d characters", maxLocalLength)
	}
	for _, tier := range syntaxTiers {
		if tier.re.MatchString(email) {
			return tier.name, nil
		}
	}
	return "", invalidf("malformed address %q", email)
}

// CheckEmailDomain runs the static domain sanity checks.
func CheckEmailDomain(email string) error {
	dom := emailDomain(email)
	if dom == "" {
		return invalidf("missing domain")
	}
	if _, bad := badEmailDomains[dom]; bad {
		return invalidf("placeholder domain %q", dom)
	}
	if strings.Contains(dom, "..") {
		return invalidf("double dot in domain %q", dom)
	}
	if labels := strings.Count(dom, ".") + 1; labels > maxDomainDepth {
		return invalidf("excessive subdomain depth in %q", dom)
	}
	return nil
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func isFreemailDomain(dom string) bool {
	_, ok := freemailDomains[dom]
	return ok
}

// Resolver is the DNS surface the validator needs. *net.Resolver
// satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// lookupMailHost returns the preferred mail host for a domain: the best
// MX record if any exist, otherwise the domain itself when it has an
// A/AAAA record. No MX and no A record means the domain cannot receive
// mail.
func lookupMailHost(ctx context.Context, resolver Resolver, dom string) (string, error) {
	if records, err := resolver.LookupMX(ctx, dom); err == nil && len(records) > 0 {
		return strings.TrimSuffix(records[0].Host, "."), nil
	}
	if addrs, err := resolver.LookupHost(ctx, dom); err == nil && len(addrs) > 0 {
		return dom, nil
	}
	return "", invalidf("no MX or A record for %q", dom)
}
