package hostfuncs

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// NetFetchRequest asks for an HTTP GET of the given URL.
type NetFetchRequest struct {
	URL string `json:"url"`
}

// NetFetchResponse carries the status and body of the response. The
// body is base64-encoded for the JSON wire format.
type NetFetchResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// NetFetch is the net_fetch host function. The capability check runs
// against the URL's hostname and scheme, so an https-only grant blocks
// plain-http fetches.
func (e *Env) NetFetch(ctx context.Context, req NetFetchRequest) (NetFetchResponse, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return NetFetchResponse{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NetFetchResponse{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return NetFetchResponse{}, fmt.Errorf("url %q has no host", req.URL)
	}

	if err := e.authorize(ctx, entities.NetworkConnect(u.Hostname(), u.Scheme)); err != nil {
		return NetFetchResponse{}, err
	}

	status, body, err := e.services.HTTP.Fetch(ctx, req.URL)
	if err != nil {
		return NetFetchResponse{}, err
	}
	return NetFetchResponse{
		Status: status,
		Body:   base64.StdEncoding.EncodeToString(body),
	}, nil
}
