package console

import (
	"context"
	"fmt"
	"net/url"

	"github.com/BerryBytes/awsbridge/models"
)

// CredentialSource resolves credentials for a profile name.
type CredentialSource interface {
	Credentials(ctx context.Context, profileName string) (*models.AWSCredentials, error)
}

// SigninTokenAPI exchanges temporary credentials for a signin token.
type SigninTokenAPI interface {
	SigninToken(ctx context.Context, creds *models.AWSCredentials) (string, error)
}

// Generator turns a profile name and region into a ready-to-open
// console URL. Temporary credentials go through federation; long-term
// credentials get a plain console URL since no signin token is
// obtainable for them without a network exchange of the long-term
// secret, which this service never performs.
type Generator struct {
	Credentials    CredentialSource
	Federation     SigninTokenAPI
	Endpoint       string
	ConsoleBaseURL string
	Issuer         string
}

func NewGenerator(credentials CredentialSource, federation SigninTokenAPI, endpoint, consoleBaseURL, issuer string) *Generator {
	if endpoint == "" {
		endpoint = DefaultFederationEndpoint
	}
	if consoleBaseURL == "" {
		consoleBaseURL = "https://console.aws.amazon.com/"
	}
	return &Generator{
		Credentials:    credentials,
		Federation:     federation,
		Endpoint:       endpoint,
		ConsoleBaseURL: consoleBaseURL,
		Issuer:         issuer,
	}
}

// ConsoleURL generates the console URL for a profile.
func (g *Generator) ConsoleURL(ctx context.Context, profileName, region string) (string, error) {
	creds, err := g.Credentials.Credentials(ctx, profileName)
	if err != nil {
		return "", err
	}

	destination := g.destination(region)
	if !creds.Temporary() {
		return destination, nil
	}

	signinToken, err := g.Federation.SigninToken(ctx, creds)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("Action", "login")
	params.Set("Issuer", g.Issuer)
	params.Set("Destination", destination)
	params.Set("SigninToken", signinToken)
	return g.Endpoint + "?" + params.Encode(), nil
}

func (g *Generator) destination(region string) string {
	if region == "" {
		return g.ConsoleBaseURL
	}
	return fmt.Sprintf("https://%s.console.aws.amazon.com/console/home?region=%s", region, url.QueryEscape(region))
}
