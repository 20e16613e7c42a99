package vpn

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoer struct {
	status int
	body   string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestFallbackProviderKeywordMatch(t *testing.T) {
	p := &FallbackProvider{
		HTTPClient: &fakeDoer{status: 200, body: `{"org":"DigitalOcean Cloud Hosting LLC","asn":"AS14061","city":"NYC","country_name":"United States"}`},
	}

	result, err := p.Call(context.Background(), "1.2.3.4")

	require.NoError(t, err)
	assert.True(t, result.IsVPN)
	assert.Equal(t, "DigitalOcean Cloud Hosting LLC", result.Organization)
}

func TestFallbackProviderASNBlocklistMatch(t *testing.T) {
	p := &FallbackProvider{
		HTTPClient:   &fakeDoer{status: 200, body: `{"org":"Some Residential ISP","asn":"AS16509","city":"NYC","country_name":"United States"}`},
		ASNBlocklist: DefaultASNBlocklist(),
	}

	result, err := p.Call(context.Background(), "1.2.3.4")

	require.NoError(t, err)
	assert.True(t, result.IsVPN, "AWS ASN should be caught by the blocklist even without a keyword match")
}

func TestFallbackProviderNoMatch(t *testing.T) {
	p := &FallbackProvider{
		HTTPClient: &fakeDoer{status: 200, body: `{"org":"Comcast Cable","asn":"AS7922","city":"Denver","country_name":"United States"}`},
	}

	result, err := p.Call(context.Background(), "1.2.3.4")

	require.NoError(t, err)
	assert.False(t, result.IsVPN)
}

func TestFallbackProviderAlwaysEnabled(t *testing.T) {
	p := &FallbackProvider{}
	assert.True(t, p.Enabled())
}

func TestCredentialedProvidersDisabledWithoutKey(t *testing.T) {
	assert.False(t, (&IPInfoProvider{}).Enabled())
	assert.False(t, (&SecurityRiskProvider{}).Enabled())
	assert.False(t, (&FraudScoreProvider{}).Enabled())
	assert.False(t, (&BlockLevelProvider{}).Enabled())

	assert.True(t, (&IPInfoProvider{Token: "t"}).Enabled())
	assert.True(t, (&SecurityRiskProvider{APIKey: "k"}).Enabled())
	assert.True(t, (&FraudScoreProvider{APIKey: "k"}).Enabled())
	assert.True(t, (&BlockLevelProvider{APIKey: "k"}).Enabled())
}

func TestIPInfoProviderParsesShape(t *testing.T) {
	p := &IPInfoProvider{
		Token:      "t",
		HTTPClient: &fakeDoer{status: 200, body: `{"privacy":{"vpn":true,"proxy":false,"tor":false,"hosting":true},"org":"AS0 Example","asn":"AS0","city":"X","region":"Y","country":"US"}`},
	}

	result, err := p.Call(context.Background(), "1.2.3.4")

	require.NoError(t, err)
	assert.True(t, result.IsVPN)
	assert.True(t, result.IsHosting)
	assert.Equal(t, "ipinfo", result.Provider)
}

func TestBlockLevelProviderTreatsBlockGEOneAsVPN(t *testing.T) {
	p := &BlockLevelProvider{
		APIKey:     "k",
		HTTPClient: &fakeDoer{status: 200, body: `{"block":2,"isp":"X","asn":"AS1","hostname":"h","countryCode":"US","countryName":"United States"}`},
	}

	result, err := p.Call(context.Background(), "1.2.3.4")

	require.NoError(t, err)
	assert.True(t, result.IsVPN)
	assert.True(t, result.IsHosting)
}

func TestProviderPropagatesHTTPErrorStatus(t *testing.T) {
	p := &IPInfoProvider{Token: "t", HTTPClient: &fakeDoer{status: 500, body: ""}}
	_, err := p.Call(context.Background(), "1.2.3.4")
	assert.Error(t, err)
}

func TestNormalizeASN(t *testing.T) {
	assert.Equal(t, "16509", normalizeASN("AS16509"))
	assert.Equal(t, "16509", normalizeASN("16509"))
	assert.Equal(t, "garbage", normalizeASN("garbage"))
}
