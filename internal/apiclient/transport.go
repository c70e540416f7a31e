package apiclient

import (
	"net/http"
)

// UnauthorizedFunc is invoked for every 401 response with the token the
// request carried ("" when it carried none).
type UnauthorizedFunc func(sentToken string)

// authTransport attaches the bearer credential to each request and reports
// 401 responses to the client's unauthorized handler.
type authTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.client.cred.Token()
	if token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if fn := t.client.unauthorizedHandler(); fn != nil {
			fn(token)
		}
	}
	return resp, nil
}
