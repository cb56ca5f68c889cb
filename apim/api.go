package apim

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	// APIVersion is sent as the api-version query parameter on every management call.
	APIVersion = "2021-08-01"

	// ManagementEndpoint is the Azure Resource Manager host.
	ManagementEndpoint = "https://management.azure.com"

	// ManagementScope is the token scope for the management API.
	ManagementScope = "https://management.azure.com/.default"
)

// Service identifies one API Management instance.
type Service struct {
	SubscriptionID    string
	ResourceGroupName string
	ServiceName       string
}

// NewAPI builds a client for the given service.  The token provider is asked for a token right
// away so that credential problems surface before any work starts.
func NewAPI(ctx context.Context, svc Service, tokens TokenProvider) (*API, error) {
	return NewAPIWithEndpoint(ctx, ManagementEndpoint, svc, tokens)
}

// NewAPIWithEndpoint is NewAPI against a different management host, e.g. a stub server.
func NewAPIWithEndpoint(ctx context.Context, endpoint string, svc Service, tokens TokenProvider) (*API, error) {
	if svc.SubscriptionID == "" {
		return nil, fmt.Errorf("apim: configure your subscription with --subscription-id")
	}
	if svc.ResourceGroupName == "" {
		return nil, fmt.Errorf("apim: configure your resource group with --resource-group")
	}
	if svc.ServiceName == "" {
		return nil, fmt.Errorf("apim: configure your service name with --service-name")
	}
	if tokens == nil {
		return nil, fmt.Errorf("apim: no token provider")
	}

	u, err := url.ParseRequestURI(
		fmt.Sprintf("%s/subscriptions/%s/resourceGroups/%s/providers/Microsoft.ApiManagement/service/%s",
			endpoint,
			url.PathEscape(svc.SubscriptionID),
			url.PathEscape(svc.ResourceGroupName),
			url.PathEscape(svc.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("apim: couldn't parse management API URL: %w", err)
	}

	if _, err := tokens.Token(ctx); err != nil {
		return nil, err
	}

	a := &API{
		BaseURI: u,
		Service: svc,
		tokens:  tokens,
	}
	a.Client = &http.Client{}

	return a, nil
}

type API struct {
	// Base resource URL of the service; relative request paths are appended to it.
	BaseURI *url.URL

	Service Service

	// An HTTP client - you can substitute VCR or whatnot.
	Client *http.Client

	tokens TokenProvider
}
