// Package auth exchanges the configured client credentials for a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/people-agent/server/internal/agent/model"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

// Token is a bearer token and the instant it stops being valid.
type Token struct {
	Value     string
	ExpiresOn time.Time
}

// Expired reports whether the token can no longer be used at now.
func (t Token) Expired(now time.Time) bool {
	return t.Value == "" || (!t.ExpiresOn.IsZero() && !now.Before(t.ExpiresOn))
}

// TokenSource is the narrow collaborator the agent depends on.
type TokenSource interface {
	GetToken(ctx context.Context) (Token, error)
}

// CredentialProvider acquires app-only tokens. The underlying azidentity
// credential keeps an in-process token cache, so a call first returns a cached
// token silently and only performs a client-credentials exchange on a miss.
type CredentialProvider struct {
	cred   azcore.TokenCredential
	scopes []string
}

var _ TokenSource = (*CredentialProvider)(nil)

// NewCredentialProvider builds a client-secret credential from cfg.
func NewCredentialProvider(cfg model.AuthConfig) (*CredentialProvider, error) {
	host, tenant, err := cfg.Tenant()
	if err != nil {
		return nil, err
	}
	scopes := cfg.Scopes()
	if len(scopes) == 0 {
		return nil, fmt.Errorf("no scopes configured")
	}

	opts := &azidentity.ClientSecretCredentialOptions{}
	opts.Cloud = cloud.Configuration{ActiveDirectoryAuthorityHost: host}

	cred, err := azidentity.NewClientSecretCredential(tenant, cfg.ClientID, cfg.Secret, opts)
	if err != nil {
		return nil, fmt.Errorf("create client secret credential: %w", err)
	}
	return &CredentialProvider{cred: cred, scopes: scopes}, nil
}

// NewWithCredential wraps an existing credential.
func NewWithCredential(cred azcore.TokenCredential, scopes []string) *CredentialProvider {
	return &CredentialProvider{cred: cred, scopes: scopes}
}

// GetToken returns a bearer token or an errx.AuthError describing why none
// could be obtained.
func (p *CredentialProvider) GetToken(ctx context.Context) (Token, error) {
	at, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: p.scopes})
	if err != nil {
		code, desc := describe(err)
		logx.Error().Str("error", code).Str("error_description", desc).Msg("Error getting token")
		return Token{}, errx.Auth(code, desc, err)
	}
	if at.Token == "" {
		logx.Error().Msg("Token endpoint returned an empty access token")
		return Token{}, errx.Auth("empty_token", "token endpoint returned no access token", nil)
	}
	logx.Debug().Time("expires_on", at.ExpiresOn).Msg("Access token acquired")
	return Token{Value: at.Token, ExpiresOn: at.ExpiresOn}, nil
}

var aadCode = regexp.MustCompile(`AADSTS\d+`)

func describe(err error) (code, description string) {
	description = strings.TrimSpace(err.Error())

	var authErr *azidentity.AuthenticationFailedError
	var unavailable *azidentity.CredentialUnavailableError
	switch {
	case errors.As(err, &authErr):
		code = "authentication_failed"
	case errors.As(err, &unavailable):
		code = "credential_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	default:
		code = "token_request_failed"
	}
	if m := aadCode.FindString(description); m != "" {
		code = m
	}
	return code, description
}
