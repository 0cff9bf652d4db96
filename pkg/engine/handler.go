package engine

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// hopByHopHeaders are never forwarded or replayed.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// ServeHTTP answers from a matching stub, else forwards to the proxy target,
// else responds 404.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, DefaultMaxBodySize))
		if err != nil {
			e.log.Warn("failed to read request body", "method", r.Method, "url", r.URL.String(), "error", err)
			http.Error(w, "Error reading request", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()
	}

	req := RecordedRequest{
		Method:      r.Method,
		URL:         r.URL.RequestURI(),
		Body:        string(body),
		ContentType: r.Header.Get("Content-Type"),
		ReceivedAt:  start,
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	stubs := e.stubs
	rules := e.rules
	target := e.target
	e.mu.Unlock()

	if stub := findStub(stubs, rules, req); stub != nil {
		e.log.Debug("stub matched", "method", req.Method, "url", req.URL, "stub", stub.Name)
		e.writeStub(w, stub)
		return
	}

	if target != nil {
		e.proxy(w, r, target, req, body, start)
		return
	}

	e.log.Info("no stub matched", "method", req.Method, "url", req.URL)
	writeNotFound(w, req, nearMisses(stubs, req))
}

func (e *Engine) writeStub(w http.ResponseWriter, s *Stub) {
	body, err := s.ResponseBody()
	if err != nil {
		e.log.Warn("stub body unreadable", "stub", s.Name, "error", err)
		http.Error(w, "Error reading stub body", http.StatusInternalServerError)
		return
	}

	for name, value := range s.Response.Headers {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			e.log.Debug("skipping invalid stub header", "stub", s.Name, "header", name)
			continue
		}
		w.Header().Set(name, value)
	}
	removeHopByHopHeaders(w.Header())
	w.Header().Del("Content-Length")

	w.WriteHeader(s.Response.Status)
	_, _ = w.Write(body)
}

// proxy forwards the request to target and captures the exchange.
func (e *Engine) proxy(w http.ResponseWriter, r *http.Request, target *url.URL, req RecordedRequest, body []byte, start time.Time) {
	resp, err := e.forwardRequest(r, target, body)
	if err != nil {
		e.log.Warn("failed to forward request", "target", target.String(), "url", req.URL, "error", err)
		http.Error(w, "Error forwarding request: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		e.log.Warn("failed to read upstream response", "target", target.String(), "error", err)
		http.Error(w, "Error reading response", http.StatusBadGateway)
		return
	}

	rec := &Recording{
		Target:  normalizeTarget(target.String()),
		Request: req,
		Response: RecordedResponse{
			Status:  resp.StatusCode,
			Headers: resp.Header.Clone(),
			Body:    respBody,
		},
		Duration: time.Since(start),
	}
	e.mu.Lock()
	e.recordings = append(e.recordings, rec)
	e.mu.Unlock()

	e.log.Debug("request proxied", "method", req.Method, "url", req.URL, "status", resp.StatusCode, "duration", rec.Duration)

	copyHeaders(w.Header(), resp.Header)
	removeHopByHopHeaders(w.Header())
	w.Header().Del("Content-Length")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

// forwardRequest sends r to the upstream, preserving path and query below the
// target's base path.
func (e *Engine) forwardRequest(r *http.Request, target *url.URL, body []byte) (*http.Response, error) {
	out := *target
	out.Path = strings.TrimSuffix(target.Path, "/") + r.URL.Path
	out.RawPath = ""
	out.RawQuery = r.URL.RawQuery

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, out.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	copyHeaders(outReq.Header, r.Header)
	removeHopByHopHeaders(outReq.Header)
	outReq.Header.Set("X-Forwarded-Host", r.Host)

	return e.client.Do(outReq)
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func removeHopByHopHeaders(h http.Header) {
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}

// notFound is the body of a 404 answer.
type notFound struct {
	Error      string   `json:"error"`
	Method     string   `json:"method"`
	URL        string   `json:"url"`
	NearMisses []string `json:"nearMisses,omitempty"`
}

func writeNotFound(w http.ResponseWriter, req RecordedRequest, near []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(notFound{
		Error:      "no stub matched the request",
		Method:     req.Method,
		URL:        req.URL,
		NearMisses: near,
	})
}

func normalizeTarget(target string) string {
	return strings.TrimSuffix(strings.TrimSpace(target), "/")
}
