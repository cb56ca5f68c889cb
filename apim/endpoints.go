package apim

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
)

// VersionQuery carries the query parameters every management call needs.
type VersionQuery struct {
	APIVersion string `url:"api-version"`
}

// contentTypesEndpoint lists the portal content types:
// https://learn.microsoft.com/en-us/rest/api/apimanagement/content-type/list-by-service
func contentTypesEndpoint() string {
	return "/contentTypes"
}

// contentItemsEndpoint lists the items of one content type:
// https://learn.microsoft.com/en-us/rest/api/apimanagement/content-item/list-by-service
func contentItemsEndpoint(contentType string) (string, error) {
	if contentType == "" {
		return "", fmt.Errorf("apim: please provide a content type")
	}
	return fmt.Sprintf("/contentTypes/%s/contentItems", url.PathEscape(contentType)), nil
}

// contentItemEndpoint addresses a single item for GET/PUT:
// https://learn.microsoft.com/en-us/rest/api/apimanagement/content-item/create-or-update
func contentItemEndpoint(contentType, id string) (string, error) {
	if contentType == "" || id == "" {
		return "", fmt.Errorf("apim: please provide content type and item id")
	}
	return fmt.Sprintf("/contentTypes/%s/contentItems/%s", url.PathEscape(contentType), url.PathEscape(id)), nil
}

// mediaSecretsEndpoint returns the SAS URL of the portal's media container:
// https://learn.microsoft.com/en-us/rest/api/apimanagement/portal-config/list-media-content-secrets
func mediaSecretsEndpoint() string {
	return "/portalconfigs/default/listMediaContentSecrets"
}

// Resolve an absolute URL or a path relative to the service, and stamp the api-version onto it.
// Existing query parameters (a nextLink's $skipToken, say) are passed through untouched.
func (a *API) resolveEndpoint(pathOrURL string) (*url.URL, error) {
	var (
		ep  *url.URL
		err error
	)

	if isAbsolute(pathOrURL) {
		ep, err = url.Parse(pathOrURL)
	} else {
		ep, err = url.Parse(strings.TrimSuffix(a.BaseURI.String(), "/") + "/" + strings.TrimPrefix(pathOrURL, "/"))
	}
	if err != nil {
		return nil, fmt.Errorf("apim: failed to parse endpoint ref %q: %w", pathOrURL, err)
	}

	v, err := query.Values(VersionQuery{APIVersion: APIVersion})
	if err != nil {
		return nil, fmt.Errorf("apim: couldn't encode query params: %w", err)
	}

	ep.RawQuery = withVersion(ep.RawQuery, v.Encode())

	return ep, nil
}

// withVersion replaces any api-version in rawQuery with version.  The other parameters keep their
// bytes and order; nextLink skip tokens are opaque to us.
func withVersion(rawQuery, version string) string {
	params := []string{}
	for _, p := range strings.Split(rawQuery, "&") {
		if p == "" {
			continue
		}
		key, _, _ := strings.Cut(p, "=")
		if k, err := url.QueryUnescape(key); err == nil && k == "api-version" {
			continue
		}
		params = append(params, p)
	}
	return strings.Join(append(params, version), "&")
}

func isAbsolute(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
