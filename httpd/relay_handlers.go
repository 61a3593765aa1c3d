package httpd

import (
	"io"
	"log"
	"net/http"

	"cryogon/rizumu-udio/transport"
	"cryogon/rizumu-udio/utils"
)

const maxRelayBody = 8 << 20

// handleRelay forwards ?url= upstream and returns the answer with permissive CORS headers, so the
// daemon can serve as its own proxy in the transport chain.
func (s *Server) handleRelay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		target := r.URL.Query().Get("url")
		if !utils.IsDirectURL(target) {
			http.Error(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
			return
		}

		req := &transport.Request{Method: r.Method, URL: target, Header: http.Header{}}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		if r.Method == http.MethodPost {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxRelayBody))
			if err != nil {
				http.Error(w, "reading body", http.StatusBadRequest)
				return
			}
			req.Body = body
		}

		fetcher := s.Relay
		if fetcher == nil {
			fetcher = &transport.DirectFetcher{Client: utils.HTTPClient}
		}
		resp, err := fetcher.Do(r.Context(), req)
		if err != nil {
			log.Printf("[http] Relay %s %s: %v", r.Method, target, err)
			http.Error(w, "upstream request failed", http.StatusBadGateway)
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := w.Write(resp.Body); err != nil {
			log.Printf("[http] Relay write: %v", err)
		}
	}
}
