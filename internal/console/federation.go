package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BerryBytes/awsbridge/models"
)

// DefaultFederationEndpoint is the provider's signin federation API.
const DefaultFederationEndpoint = "https://signin.aws.amazon.com/federation"

// SigninTokenClient exchanges a temporary credential set for a signin
// token at the federation endpoint. The HTTP client carries its own
// timeout, shorter than any request budget; failures are surfaced,
// never retried here.
type SigninTokenClient struct {
	Endpoint        string
	SessionDuration time.Duration
	HTTPClient      *http.Client
}

func NewSigninTokenClient(endpoint string, sessionDuration, timeout time.Duration) *SigninTokenClient {
	if endpoint == "" {
		endpoint = DefaultFederationEndpoint
	}
	return &SigninTokenClient{
		Endpoint:        endpoint,
		SessionDuration: sessionDuration,
		HTTPClient:      &http.Client{Timeout: timeout},
	}
}

// SigninToken calls the federation endpoint's getSigninToken action.
// Only temporary credentials ever reach the network.
func (c *SigninTokenClient) SigninToken(ctx context.Context, creds *models.AWSCredentials) (string, error) {
	if !creds.Temporary() {
		return "", &FederationError{Op: "get signin token", Err: fmt.Errorf("credentials carry no session token")}
	}

	session, err := json.Marshal(map[string]string{
		"sessionId":    creds.AccessKeyID,
		"sessionKey":   creds.SecretAccessKey,
		"sessionToken": creds.SessionToken,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	params := url.Values{}
	params.Set("Action", "getSigninToken")
	params.Set("DurationSeconds", strconv.Itoa(int(c.SessionDuration.Seconds())))
	params.Set("Session", string(session))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build federation request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &FederationError{Op: "get signin token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FederationError{Op: "get signin token", Err: fmt.Errorf("endpoint returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &FederationError{Op: "get signin token", Err: err}
	}

	var result struct {
		SigninToken string `json:"SigninToken"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &FederationError{Op: "get signin token", Err: fmt.Errorf("unparseable response: %w", err)}
	}
	if result.SigninToken == "" {
		return "", &FederationError{Op: "get signin token", Err: fmt.Errorf("response carried no signin token")}
	}
	return result.SigninToken, nil
}
