package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatwatch/internal/domain"
)

func TestNewContact_NormalizesEmail(t *testing.T) {
	t.Parallel()

	c := domain.NewContact(domain.MethodEmail, "  Info@Example.ORG ", domain.ConfidenceMedium, "https://example.org")
	assert.Equal(t, "info@example.org", c.Value)
	assert.Equal(t, domain.StatusUnverified, c.Status)
	assert.NotEmpty(t, c.Hash)
}

func TestNewContact_NormalizesPhone(t *testing.T) {
	t.Parallel()

	c := domain.NewContact(domain.MethodPhone, "+49 (089) 123-4567", domain.ConfidenceHigh, "https://example.org")
	assert.Equal(t, "+490891234567", c.Value)
}

func TestContactHash_IgnoresMetadataAndTimestamp(t *testing.T) {
	t.Parallel()

	a := domain.NewContact(domain.MethodEmail, "a@b.co", domain.ConfidenceHigh, "https://firm.de")
	b := domain.NewContact(domain.MethodEmail, "a@b.co", domain.ConfidenceLow, "https://firm.de")
	b.Metadata["pattern"] = "obfuscated"
	b.Timestamp = b.Timestamp.Add(time.Hour)

	assert.Equal(t, a.Hash, b.Hash)
}

func TestContactHash_DiffersBySource(t *testing.T) {
	t.Parallel()

	a := domain.ContactHash(domain.MethodEmail, "a@b.co", "https://firm.de")
	b := domain.ContactHash(domain.MethodEmail, "a@b.co", "https://firm.de/impressum")
	assert.NotEqual(t, a, b)
}

func TestContact_JSONRoundTripRecomputesHash(t *testing.T) {
	t.Parallel()

	c := domain.NewContact(domain.MethodMailto, "admin@firm.de", domain.ConfidenceHigh, "https://firm.de")
	c.DiscoveryPath = []string{"https://firm.de", "https://firm.de/kontakt"}
	c.Metadata["pattern"] = "mailto"

	data, err := json.Marshal(c)
	require.NoError(t, err)

	// Tamper with the serialized hash; decoding must not trust it.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["contact_hash"] = "deadbeef"
	data, err = json.Marshal(raw)
	require.NoError(t, err)

	var back domain.Contact
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, c.Value, back.Value)
	assert.Equal(t, c.DiscoveryPath, back.DiscoveryPath)
	assert.Equal(t, c.Metadata, back.Metadata)
	assert.Equal(t, c.Hash, back.Hash)
}

func TestConfidenceRank_Ordering(t *testing.T) {
	t.Parallel()

	assert.Greater(t, domain.ConfidenceHigh.Rank(), domain.ConfidenceMedium.Rank())
	assert.Greater(t, domain.ConfidenceMedium.Rank(), domain.ConfidenceLow.Rank())
	assert.Greater(t, domain.ConfidenceLow.Rank(), domain.ConfidenceLevel("").Rank())
}

func TestNewContactForm_EnforcesRequiredSubset(t *testing.T) {
	t.Parallel()

	f := domain.NewContactForm(
		"https://firm.de/contact", "post",
		[]string{"name", "email", "message"},
		[]string{"email", "phone"},
		"https://firm.de", domain.ConfidenceHigh,
	)
	assert.Equal(t, "POST", f.Method)
	assert.Equal(t, []string{"email"}, f.RequiredFields)
}

func TestNewContactForm_InvalidMethodDefaultsToPost(t *testing.T) {
	t.Parallel()

	f := domain.NewContactForm("https://firm.de/c", "dialog", nil, nil, "https://firm.de", domain.ConfidenceMedium)
	assert.Equal(t, "POST", f.Method)

	g := domain.NewContactForm("https://firm.de/c", "get", nil, nil, "https://firm.de", domain.ConfidenceMedium)
	assert.Equal(t, "GET", g.Method)
}

func TestDiscoveryContext_DepthInvariants(t *testing.T) {
	t.Parallel()

	ctx, err := domain.NewDiscoveryContext("https://firm.de/listing/1", 2, 30*time.Second)
	require.NoError(t, err)

	assert.True(t, ctx.CanCrawlDeeper())

	deeper := ctx.NextDepth()
	assert.Equal(t, 1, deeper.CurrentDepth)
	assert.Equal(t, 0, ctx.CurrentDepth, "NextDepth must not mutate the receiver")

	deepest := deeper.NextDepth()
	assert.Equal(t, 2, deepest.CurrentDepth)
	assert.False(t, deepest.CanCrawlDeeper())
}

func TestDiscoveryContext_Allowlist(t *testing.T) {
	t.Parallel()

	ctx, err := domain.NewDiscoveryContext("https://www.firm.de/expose/42", 2, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "firm.de", ctx.Domain)
	assert.True(t, ctx.AllowsDomain("firm.de"))
	assert.True(t, ctx.AllowsDomain("WWW.firm.de"))
	assert.False(t, ctx.AllowsDomain("tracker.example.net"))
}

func TestNewDiscoveryContext_RejectsInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := domain.NewDiscoveryContext("not a url", 2, time.Second)
	assert.Error(t, err)
}
