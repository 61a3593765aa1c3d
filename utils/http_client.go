// Package utils: small helpers shared by the daemon and the clients
package utils

import (
	"log"
	"net/http"
	"time"
)

// HTTPClient is the shared client for audio fetches and the relay endpoint.
var HTTPClient = NewHTTPClient(30 * time.Second)

// NewHTTPClient returns a client that logs every redirect it follows.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			log.Printf("[http] Redirect to: %s", req.URL.String())
			return nil
		},
	}
}
