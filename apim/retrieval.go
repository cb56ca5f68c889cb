package apim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListContentTypes returns the keys of all portal content types, e.g. "page", "layout".
func (a *API) ListContentTypes(ctx context.Context) ([]string, error) {
	var resp ListResponse[ContentType]
	if err := a.getJSON(ctx, contentTypesEndpoint(), &resp); err != nil {
		return nil, fmt.Errorf("apim: couldn't list content types: %w", err)
	}

	types := make([]string, 0, len(resp.Value))
	for _, ct := range resp.Value {
		types = append(types, ct.Key())
	}
	return types, nil
}

// ListContentItems follows nextLink until the service stops sending one, and returns every item in
// the order received.  Duplicates are kept.
func (a *API) ListContentItems(ctx context.Context, contentType string) ([]ContentItem, error) {
	next, err := contentItemsEndpoint(contentType)
	if err != nil {
		return nil, err
	}

	items := []ContentItem{}
	for next != "" {
		var page ListResponse[json.RawMessage]
		if err := a.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("apim: couldn't list items of %s: %w", contentType, err)
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}

	return items, nil
}

func (a *API) GetContentItem(ctx context.Context, contentType, id string) (ContentItem, error) {
	ep, err := contentItemEndpoint(contentType, id)
	if err != nil {
		return nil, err
	}

	body, err := a.Send(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, fmt.Errorf("apim: couldn't get %s/%s: %w", contentType, id, err)
	}
	return body, nil
}

func (a *API) UpdateContentItem(ctx context.Context, contentType, id string, body ContentItem) (ContentItem, error) {
	ep, err := contentItemEndpoint(contentType, id)
	if err != nil {
		return nil, err
	}
	return a.PutContentItem(ctx, ep, body)
}

// PutContentItem writes body to a full item identifier, as recorded in a snapshot, e.g.
// "/contentTypes/page/contentItems/home".
func (a *API) PutContentItem(ctx context.Context, identifier string, body ContentItem) (ContentItem, error) {
	if identifier == "" {
		return nil, fmt.Errorf("apim: empty content item identifier")
	}

	resp, err := a.Send(ctx, http.MethodPut, identifier, json.RawMessage(body))
	if err != nil {
		return nil, fmt.Errorf("apim: couldn't put %s: %w", identifier, err)
	}
	return resp, nil
}

// MediaSASURL asks for a fresh SAS URL on the portal's media container.  These expire, so don't
// hang on to them.
func (a *API) MediaSASURL(ctx context.Context) (string, error) {
	body, err := a.Send(ctx, http.MethodPost, mediaSecretsEndpoint(), nil)
	if err != nil {
		return "", fmt.Errorf("apim: couldn't list media content secrets: %w", err)
	}

	var secrets MediaSecrets
	if body != nil {
		if err := json.Unmarshal(body, &secrets); err != nil {
			return "", fmt.Errorf("apim: couldn't parse json response: %w", err)
		}
	}
	if secrets.ContainerSASURL == "" {
		return "", fmt.Errorf("apim: containerSasUrl missing from listMediaContentSecrets response")
	}
	return secrets.ContainerSASURL, nil
}
