package proxy

import (
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const tunnelDialTimeout = 10 * time.Second

// handleConnect tunnels a CONNECT request without interception. TLS sessions
// pass through opaque; only plain HTTP traffic is captured.
func (p *Proxy) handleConnect(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if !strings.Contains(host, ":") {
		host += ":443"
	}

	upstream, err := net.DialTimeout("tcp", host, tunnelDialTimeout)
	if err != nil {
		p.log.Warn("tunnel dial failed", "host", host, "error", err)
		http.Error(w, "cannot reach "+host, http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		_ = upstream.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	client, _, err := hijacker.Hijack()
	if err != nil {
		_ = upstream.Close()
		p.log.Warn("hijack failed", "host", host, "error", err)
		return
	}

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		_ = client.Close()
		_ = upstream.Close()
		return
	}

	p.log.Debug("tunnel established", "host", host)

	var wg sync.WaitGroup
	wg.Add(2)
	go pipe(&wg, upstream, client)
	go pipe(&wg, client, upstream)
	wg.Wait()
}

// pipe copies one direction of the tunnel and closes both ends when it stops,
// so the opposite copy unblocks.
func pipe(wg *sync.WaitGroup, dst, src net.Conn) {
	defer wg.Done()
	_, _ = io.Copy(dst, src)
	_ = dst.Close()
	_ = src.Close()
}
