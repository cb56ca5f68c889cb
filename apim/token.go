package apim

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// TokenProvider hands out bearer tokens for the management API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

func (s StaticToken) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", &AuthError{Err: errEmptyToken}
	}
	return string(s), nil
}

// DefaultCredential returns the azidentity default chain (environment, managed identity,
// Azure CLI, ...).
func DefaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	return cred, nil
}

// OnceToken fetches a token on first use and keeps it for the life of the process.  Fine for
// short runs; use RefreshingToken for long ones.
type OnceToken struct {
	cred azcore.TokenCredential

	mu    sync.Mutex
	token string
}

func NewOnceToken(cred azcore.TokenCredential) *OnceToken {
	return &OnceToken{cred: cred}
}

func (o *OnceToken) Token(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.token != "" {
		return o.token, nil
	}

	tok, err := fetchToken(ctx, o.cred)
	if err != nil {
		return "", err
	}
	o.token = tok.Token
	return o.token, nil
}

// RefreshingToken re-fetches the token once it is within Skew of expiring.
type RefreshingToken struct {
	cred azcore.TokenCredential
	Skew time.Duration

	// overridable in tests
	now func() time.Time

	mu      sync.Mutex
	current azcore.AccessToken
}

func NewRefreshingToken(cred azcore.TokenCredential) *RefreshingToken {
	return &RefreshingToken{
		cred: cred,
		Skew: 2 * time.Minute,
		now:  time.Now,
	}
}

func (r *RefreshingToken) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current.Token != "" && r.now().Add(r.Skew).Before(r.current.ExpiresOn) {
		return r.current.Token, nil
	}

	tok, err := fetchToken(ctx, r.cred)
	if err != nil {
		return "", err
	}
	r.current = tok
	return tok.Token, nil
}

func fetchToken(ctx context.Context, cred azcore.TokenCredential) (azcore.AccessToken, error) {
	if cred == nil {
		return azcore.AccessToken{}, &AuthError{Err: errNoCredential}
	}
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{ManagementScope},
	})
	if err != nil {
		return azcore.AccessToken{}, &AuthError{Err: err}
	}
	if tok.Token == "" {
		return azcore.AccessToken{}, &AuthError{Err: errEmptyToken}
	}
	return tok, nil
}
