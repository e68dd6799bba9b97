package proxy

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Svigo-o/PoCGen/pkg/capture"
)

// handleHTTP records the request and forwards it upstream. Capture happens
// before forwarding, so a dead upstream still leaves a replayable record.
func (p *Proxy) handleHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cid := uuid.NewString()[:8]

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, p.maxBodySize))
		if err != nil {
			p.log.Warn("failed to read request body", "cid", cid, "error", err)
			http.Error(w, "error reading request", http.StatusBadGateway)
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	id := p.record(r, body, cid)

	resp, err := p.forward(r, body)
	if err != nil {
		p.log.Warn("forward failed", "cid", cid, "capture_id", id, "url", r.URL.String(), "error", err)
		http.Error(w, "error forwarding request: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Debug("relay interrupted", "cid", cid, "error", err)
		return
	}

	p.log.Debug("intercepted", "cid", cid, "capture_id", id, "method", r.Method,
		"url", r.URL.String(), "status", resp.StatusCode, "duration", time.Since(start))
}

// record inserts the request into the capture store and returns the assigned
// ID, or -1 if the wire bytes could not be reconstructed.
func (p *Proxy) record(r *http.Request, body []byte, cid string) int64 {
	raw, err := httputil.DumpRequest(r, true)
	if err != nil {
		// A capture failure must never break forwarding.
		p.log.Warn("failed to dump request", "cid", cid, "error", err)
		return -1
	}

	host, port := destination(r)
	return p.store.Insert(&capture.Record{
		Method: r.Method,
		URL:    requestURL(r),
		Host:   host,
		Port:   port,
		Secure: false, // plain HTTP path; CONNECT traffic is tunneled, not captured
		Raw:    raw,
	})
}

// forward sends the request upstream and returns the response.
func (p *Proxy) forward(r *http.Request, body []byte) (*http.Response, error) {
	out, err := http.NewRequestWithContext(r.Context(), r.Method, requestURL(r), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, values := range r.Header {
		if key == "Proxy-Connection" || key == "Proxy-Authorization" {
			continue
		}
		for _, v := range values {
			out.Header.Add(key, v)
		}
	}
	out.Host = r.Host
	return p.transport.RoundTrip(out)
}

// requestURL resolves the absolute URL of a proxied request. Proxy clients
// send an absolute form; direct clients only carry the Host header.
func requestURL(r *http.Request) string {
	if r.URL.Host != "" {
		return r.URL.String()
	}
	return "http://" + r.Host + r.URL.RequestURI()
}

// destination extracts the upstream host and port, defaulting the port to 80.
func destination(r *http.Request) (string, int) {
	host := r.URL.Hostname()
	if host == "" {
		host = r.Host
		if h, portStr, err := net.SplitHostPort(host); err == nil {
			if port, perr := strconv.Atoi(portStr); perr == nil {
				return h, port
			}
		}
		return host, 80
	}
	port := 80
	if portStr := r.URL.Port(); portStr != "" {
		if n, err := strconv.Atoi(portStr); err == nil {
			port = n
		}
	}
	return host, port
}
