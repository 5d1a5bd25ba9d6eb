package sites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/toothbrush/site-mirror/remote"
)

func (api *API) getFeed(ctx context.Context, ep *url.URL) (*FeedResponse, error) {
	body, err := api.request(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't perform request: %w", err)
	}

	var feed FeedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("sites: couldn't parse json response: %w", err)
	}
	return &feed, nil
}

func (api *API) getSites(ctx context.Context, opts SitesQuery) (*SitesResponse, error) {
	ep, err := api.sitesEndpoint(opts)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't get sites endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't perform request: %w", err)
	}

	var list SitesResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("sites: couldn't parse json response: %w", err)
	}
	return &list, nil
}

// send writes entry to ep with method and returns the entry as the service stored it.
func (api *API) send(ctx context.Context, method string, ep *url.URL, entry Entry) (*Entry, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't encode entry: %w", err)
	}

	body, err := api.request(ctx, method, ep, payload)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't perform request: %w", err)
	}

	var stored Entry
	if err := json.Unmarshal(body, &stored); err != nil {
		return nil, fmt.Errorf("sites: couldn't parse json response: %w", err)
	}
	return &stored, nil
}

// request performs one HTTP exchange.  Failures are wrapped in remote.ErrTransient when trying
// again might help, and remote.ErrRejected otherwise.
func (api *API) request(ctx context.Context, method string, url *url.URL, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't instantiate http request: %w", err)
	}

	req.Header.Add("Accept", "application/json, */*")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// without a token we only see public sites
	if api.token != "" {
		req.Header.Set("Authorization", "Bearer "+api.token)
	}

	response, err := api.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sites: http request abandoned: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sites: couldn't perform http request: %w: %w", err, remote.ErrTransient)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		response.Body.Close()
		return nil, fmt.Errorf("sites: couldn't read http response body: %w: %w", err, remote.ErrTransient)
	}

	if err := response.Body.Close(); err != nil {
		return nil, fmt.Errorf("sites: couldn't close response body: %w", err)
	}

	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusPartialContent, http.StatusNoContent, http.StatusResetContent:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("sites: authentication failed: %s: %w", response.Status, remote.ErrRejected)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("sites: rate limited: %s: %w", response.Status, remote.ErrTransient)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return nil, fmt.Errorf("sites: service is not available: %s: %w", response.Status, remote.ErrTransient)
	case http.StatusInternalServerError:
		return nil, fmt.Errorf("sites: internal server error: %s: %w", response.Status, remote.ErrTransient)
	case http.StatusConflict:
		return nil, fmt.Errorf("sites: conflict: %s: %w", response.Status, remote.ErrRejected)
	}

	if response.StatusCode >= 400 && response.StatusCode < 500 {
		return nil, fmt.Errorf("sites: request refused: %s: %s: %w", response.Status, excerpt(body), remote.ErrRejected)
	}
	return nil, fmt.Errorf("sites: unknown HTTP response status: %s: %s: %w", response.Status, url.String(), remote.ErrRejected)
}

// excerpt trims an error body down to something fit for a log line.
func excerpt(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
