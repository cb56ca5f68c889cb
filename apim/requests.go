package apim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Send issues one management call.  pathOrURL is either absolute or relative to the service
// base URL.  body may be nil, a json.RawMessage (sent verbatim) or anything json.Marshal takes.
//
// A 200/201/202 returns the raw response body, which is nil when the server sent nothing.
func (a *API) Send(ctx context.Context, method string, pathOrURL string, body any) (json.RawMessage, error) {
	ep, err := a.resolveEndpoint(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("apim: couldn't resolve endpoint: %w", err)
	}

	var reqBody io.Reader
	switch b := body.(type) {
	case nil:
	case json.RawMessage:
		reqBody = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("apim: couldn't encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, ep.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("apim: couldn't instantiate http request: %w", err)
	}

	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	// unconditional overwrite on PUT
	req.Header.Set("If-Match", "*")

	response, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apim: couldn't perform http request: %w", err)
	}

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		response.Body.Close()
		return nil, fmt.Errorf("apim: couldn't read http response body: %w", err)
	}

	if err := response.Body.Close(); err != nil {
		return nil, fmt.Errorf("apim: couldn't close response body: %w", err)
	}

	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		if len(bytes.TrimSpace(respBody)) == 0 {
			return nil, nil
		}
		return json.RawMessage(respBody), nil
	}

	return nil, &HTTPError{
		Method:     method,
		URL:        redactQuery(ep.String()),
		StatusCode: response.StatusCode,
		Status:     response.Status,
		Body:       respBody,
	}
}

// nextLinks may carry opaque skip tokens; keep them out of error messages.
func redactQuery(u string) string {
	base, _, _ := strings.Cut(u, "?")
	return base
}

func (a *API) getJSON(ctx context.Context, pathOrURL string, v any) error {
	body, err := a.Send(ctx, http.MethodGet, pathOrURL, nil)
	if err != nil {
		return err
	}
	if body == nil {
		return fmt.Errorf("apim: empty response from %s", pathOrURL)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("apim: couldn't parse json response: %w", err)
	}
	return nil
}
