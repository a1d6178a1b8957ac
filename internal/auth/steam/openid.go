package steam

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultOpenIDEndpoint is Steam's OpenID 2.0 provider endpoint.
	DefaultOpenIDEndpoint = "https://steamcommunity.com/openid/login"
	// OpenIDNamespace is the OpenID 2.0 protocol namespace.
	OpenIDNamespace = "http://specs.openid.net/auth/2.0"
	// IdentifierSelect lets the provider choose which identity to assert.
	IdentifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"

	paramClaimedID = "openid.claimed_id"
	paramIdentity  = "openid.identity"
	paramMode       = "openid.mode"
	paramOPEndpoint = "openid.op_endpoint"
	paramReturnTo   = "openid.return_to"
	paramSigned     = "openid.signed"
)

// requiredSignedFields must be covered by the provider's signature for the
// assertion to say anything about who signed in and where to.
var requiredSignedFields = []string{"claimed_id", "return_to"}

// claimedIDPattern extracts the SteamID64 that terminates a claimed identity URL.
var claimedIDPattern = regexp.MustCompile(`(?:/id/|/openid/id/|/profiles/)(\d+)$`)

// BuildAuthURL returns the checkid_setup URL that starts a Steam sign-in and
// sends the browser back to returnTo once the user has authenticated.
func BuildAuthURL(endpoint, returnTo, realm string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultOpenIDEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("steam openid: invalid endpoint %q: %w", endpoint, err)
	}
	params := u.Query()
	params.Set("openid.ns", OpenIDNamespace)
	params.Set(paramMode, "checkid_setup")
	params.Set(paramReturnTo, returnTo)
	params.Set("openid.realm", realm)
	params.Set(paramIdentity, IdentifierSelect)
	params.Set(paramClaimedID, IdentifierSelect)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// ParseAssertion extracts the SteamID64 from a provider redirect.
// openid.claimed_id is preferred over openid.identity, and only the first
// occurrence of a repeated parameter is considered.
func ParseAssertion(query url.Values) (string, error) {
	claimed := firstValue(query, paramClaimedID)
	if claimed == "" {
		claimed = firstValue(query, paramIdentity)
	}
	if claimed == "" {
		return "", NewAuthenticationError(ErrAssertionInvalid, fmt.Errorf("redirect carries no claimed identity"))
	}
	match := claimedIDPattern.FindStringSubmatch(claimed)
	if match == nil {
		return "", NewAuthenticationError(ErrAssertionInvalid, fmt.Errorf("unrecognized claimed identity %q", claimed))
	}
	return match[1], nil
}

// IsCancelResponse reports whether the provider redirected back with a user cancel.
func IsCancelResponse(query url.Values) bool {
	return firstValue(query, paramMode) == "cancel"
}

func firstValue(query url.Values, key string) string {
	values := query[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Verifier confirms an assertion with the provider using OpenID's direct
// verification (check_authentication) before its claimed identity is trusted.
type Verifier struct {
	endpoint string
	client   *resty.Client
}

// NewVerifier creates a verifier that posts to endpoint.
func NewVerifier(endpoint string, client *resty.Client) *Verifier {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultOpenIDEndpoint
	}
	if client == nil {
		client = resty.New()
	}
	return &Verifier{endpoint: endpoint, client: client}
}

// Verify asks the provider whether the signed assertion in query is genuine.
// Assertions not addressed to returnTo, issued by another endpoint, or whose
// signature leaves out the identity or return address are rejected without a round trip.
func (v *Verifier) Verify(ctx context.Context, returnTo string, query url.Values) error {
	if mode := firstValue(query, paramMode); mode != "id_res" {
		return NewAuthenticationError(ErrAssertionInvalid, fmt.Errorf("unexpected openid.mode %q", mode))
	}
	if got := firstValue(query, paramReturnTo); returnTo != "" && got != returnTo {
		return NewAuthenticationError(ErrAssertionUnverified, fmt.Errorf("assertion addressed to %q", got))
	}
	if got := firstValue(query, paramOPEndpoint); got != v.endpoint {
		return NewAuthenticationError(ErrAssertionUnverified, fmt.Errorf("assertion issued by %q", got))
	}
	signed := strings.Split(firstValue(query, paramSigned), ",")
	for _, field := range requiredSignedFields {
		if !slices.Contains(signed, field) {
			return NewAuthenticationError(ErrAssertionUnverified, fmt.Errorf("openid.%s is not signed", field))
		}
	}

	form := url.Values{}
	for key, values := range query {
		if strings.HasPrefix(key, "openid.") && len(values) > 0 {
			form.Set(key, values[0])
		}
	}
	form.Set(paramMode, "check_authentication")

	resp, err := v.client.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(v.endpoint)
	if err != nil {
		return NewAuthenticationError(ErrNetworkFailure, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return NewAuthenticationError(ErrAssertionUnverified, fmt.Errorf("provider answered %s", resp.Status()))
	}
	if !isValidKeyValue(string(resp.Body())) {
		log.Debugf("steam openid: provider rejected assertion for %s", firstValue(query, paramClaimedID))
		return NewAuthenticationError(ErrAssertionUnverified, fmt.Errorf("provider did not confirm assertion"))
	}
	return nil
}

// isValidKeyValue scans an OpenID key-value form body for is_valid:true.
func isValidKeyValue(body string) bool {
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "is_valid" {
			return strings.TrimSpace(value) == "true"
		}
	}
	return false
}
