// Package sites talks to a Sites-style feed service over HTTP and JSON.  *API implements
// remote.Store, so the export and import engines can run against it.
package sites

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewAPI returns a client for host.  An empty domain addresses consumer sites (/site/<name>);
// otherwise sites live under the domain (/a/<domain>/<name>).
func NewAPI(host string, domain string, token string) (*API, error) {
	if host == "" {
		return nil, fmt.Errorf("sites: configure the service host with --host")
	}

	u, err := url.ParseRequestURI(fmt.Sprintf("https://%s/", host))
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't parse service URL: %w", err)
	}

	a := &API{
		BaseURI: u,
		Domain:  domain,
		token:   token,
	}
	a.Client = &http.Client{}

	return a, nil
}

type API struct {
	// Where the service lives, e.g. https://sites.example.com/
	BaseURI *url.URL

	// The hosted domain, or "" for consumer sites.
	Domain string

	// An HTTP client - you can substitute VCR or whatnot.
	Client *http.Client

	token string
}

// scope is the path segment feeds are grouped under.
func (a *API) scope() string {
	if a.Domain == "" {
		return "site"
	}
	return a.Domain
}
