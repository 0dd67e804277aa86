package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerryBytes/awsbridge/internal/awsconfig"
	"github.com/BerryBytes/awsbridge/internal/ssocache"
	"github.com/BerryBytes/awsbridge/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfigv2 "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// RoleCredentialsAPI is the slice of the AWS SSO API the provider uses.
type RoleCredentialsAPI interface {
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
}

// SSOClientFactory builds an SSO client for a region. Role credential
// calls authenticate with the bearer access token, so the client
// itself signs nothing.
type SSOClientFactory func(ctx context.Context, region string) (RoleCredentialsAPI, error)

func defaultSSOClientFactory(ctx context.Context, region string) (RoleCredentialsAPI, error) {
	cfg, err := awsconfigv2.LoadDefaultConfig(ctx,
		awsconfigv2.WithRegion(region),
		awsconfigv2.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sso.NewFromConfig(cfg), nil
}

// TokenCache is the slice of the SSO token cache the provider needs.
type TokenCache interface {
	GetToken(startURL string) (*models.SSOToken, error)
}

// CredentialProvider resolves a credential set for a profile name:
// static keys from the credentials file first, then SSO role
// credentials fetched with the cached access token.
type CredentialProvider struct {
	Reader       *awsconfig.ProfileReader
	Tokens       TokenCache
	NewSSOClient SSOClientFactory
}

func NewCredentialProvider(reader *awsconfig.ProfileReader, tokens TokenCache) *CredentialProvider {
	return &CredentialProvider{
		Reader:       reader,
		Tokens:       tokens,
		NewSSOClient: defaultSSOClientFactory,
	}
}

// Credentials returns credentials for the named profile. It reports
// ssocache.ErrTokenExpired when the profile's SSO token has lapsed
// and ErrProfileNotFound when no source can supply credentials.
func (p *CredentialProvider) Credentials(ctx context.Context, profileName string) (*models.AWSCredentials, error) {
	creds, err := p.Reader.Credentials(profileName)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		return creds, nil
	}

	section, err := p.Reader.Config(profileName)
	if err != nil {
		return nil, err
	}
	if section == nil || section["sso_start_url"] == "" ||
		section["sso_account_id"] == "" || section["sso_role_name"] == "" {
		return nil, ErrProfileNotFound
	}

	token, err := p.Tokens.GetToken(section["sso_start_url"])
	if err != nil {
		if errors.Is(err, ssocache.ErrTokenExpired) {
			return nil, err
		}
		return nil, ErrProfileNotFound
	}

	region := section["sso_region"]
	if region == "" {
		region = "us-east-1"
	}
	return p.fetchRoleCredentials(ctx, token.AccessToken, region, section["sso_account_id"], section["sso_role_name"])
}

func (p *CredentialProvider) fetchRoleCredentials(ctx context.Context, accessToken, region, accountID, roleName string) (*models.AWSCredentials, error) {
	client, err := p.NewSSOClient(ctx, region)
	if err != nil {
		return nil, err
	}

	out, err := client.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccessToken: aws.String(accessToken),
		AccountId:   aws.String(accountID),
		RoleName:    aws.String(roleName),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			logrus.WithFields(logrus.Fields{
				"code":    apiErr.ErrorCode(),
				"account": accountID,
				"role":    roleName,
			}).Warn("SSO role credential call rejected")
			if apiErr.ErrorCode() == "UnauthorizedException" {
				// The portal no longer honors the cached token.
				return nil, ssocache.ErrTokenExpired
			}
		}
		return nil, &FederationError{Op: "get role credentials", Err: err}
	}
	if out.RoleCredentials == nil {
		return nil, &FederationError{Op: "get role credentials", Err: errors.New("empty response")}
	}

	rc := out.RoleCredentials
	expiration := time.UnixMilli(rc.Expiration).UTC()
	return &models.AWSCredentials{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		Expiration:      &expiration,
	}, nil
}
