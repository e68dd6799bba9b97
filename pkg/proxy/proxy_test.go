package proxy

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Svigo-o/PoCGen/pkg/capture"
)

// proxyRequest builds an absolute-form request, the way proxy clients send
// them.
func proxyRequest(t *testing.T, method, rawURL string, body []byte) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, rawURL, bytes.NewReader(body))
}

func TestProxy_CapturesAndForwards(t *testing.T) {
	var backendGot []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendGot, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Backend", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))
	defer backend.Close()

	store := capture.NewStore(10)
	p := New("127.0.0.1:0", store)

	body := []byte(`{"cmd":"id"}`)
	req := proxyRequest(t, http.MethodPost, backend.URL+"/run", body)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	// Response relayed to the client.
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Backend"))
	assert.Equal(t, "created", rec.Body.String())
	assert.Equal(t, body, backendGot)

	// Request captured with its wire bytes.
	require.Equal(t, 1, store.Len())
	recd, ok := store.Get(0)
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, recd.Method)
	assert.Equal(t, backend.URL+"/run", recd.URL)
	assert.False(t, recd.Secure)

	backendURL, err := url.Parse(backend.URL)
	require.NoError(t, err)
	assert.Equal(t, backendURL.Hostname(), recd.Host)
	port, err := strconv.Atoi(backendURL.Port())
	require.NoError(t, err)
	assert.Equal(t, port, recd.Port)

	assert.True(t, bytes.HasPrefix(recd.Raw, []byte("POST ")), "raw starts with the request line: %q", recd.Raw)
	assert.True(t, bytes.HasSuffix(recd.Raw, body), "raw ends with the body: %q", recd.Raw)
}

func TestProxy_CapturesEvenWhenForwardFails(t *testing.T) {
	// A backend that is guaranteed dead.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadURL := "http://" + ln.Addr().String() + "/gone"
	require.NoError(t, ln.Close())

	store := capture.NewStore(10)
	p := New("127.0.0.1:0", store)

	req := proxyRequest(t, http.MethodGet, deadURL, nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 1, store.Len(), "capture must precede forwarding")
}

func TestProxy_BinaryBodyFidelity(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	store := capture.NewStore(10)
	p := New("127.0.0.1:0", store)

	body := []byte{0x00, 0x01, 0xff, 0xfe, 0x80, '\r', '\n', 0x00}
	req := proxyRequest(t, http.MethodPost, backend.URL+"/bin", body)
	req.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	recd, ok := store.Get(0)
	require.True(t, ok)
	assert.True(t, bytes.HasSuffix(recd.Raw, body), "binary body must survive capture untouched")
}

func TestProxy_TunnelsConnectWithoutCapture(t *testing.T) {
	// Upstream echoes one line back.
	upstream, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = upstream.Close() }()
	go func() {
		conn, err := upstream.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(conn, "echo:%s", line)
	}()

	store := capture.NewStore(10)
	p := New("127.0.0.1:0", store)
	require.NoError(t, p.Start())
	defer func() { _ = p.Stop(context.Background()) }()

	conn, err := net.DialTimeout("tcp", p.Addr(), 2*time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = fmt.Fprintf(conn, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", upstream.Addr(), upstream.Addr())
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "200 Connection Established")
	// Consume the blank line ending the CONNECT response.
	_, err = reader.ReadString('\n')
	require.NoError(t, err)

	_, err = fmt.Fprintf(conn, "hello tunnel\n")
	require.NoError(t, err)
	echoed, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "echo:hello tunnel\n", echoed)

	assert.Equal(t, 0, store.Len(), "CONNECT traffic is not captured")
}

func TestProxy_Lifecycle(t *testing.T) {
	p := New("127.0.0.1:0", capture.NewStore(10))

	require.NoError(t, p.Start())
	assert.Error(t, p.Start(), "second start must fail")

	addr := p.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr, "Addr reports the bound port")

	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Stop(context.Background()), "stop is idempotent")
}

func TestRequestURL_DirectRequests(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/path?q=1", nil)
	req.Host = "inner.example.com"

	assert.Equal(t, "http://inner.example.com/path?q=1", requestURL(req))
}

func TestDestination(t *testing.T) {
	tests := []struct {
		rawURL string
		host   string
		port   int
	}{
		{"http://example.com/", "example.com", 80},
		{"http://example.com:8080/x", "example.com", 8080},
		{"http://10.0.0.5:9999/", "10.0.0.5", 9999},
	}
	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			require.NoError(t, err)
			r := &http.Request{URL: u, Host: u.Host}

			host, port := destination(r)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}

	t.Run("host header only", func(t *testing.T) {
		r := &http.Request{URL: &url.URL{Path: "/x"}, Host: "example.com:8081"}
		host, port := destination(r)
		assert.Equal(t, "example.com", host)
		assert.Equal(t, 8081, port)
	})

	t.Run("host header without port", func(t *testing.T) {
		r := &http.Request{URL: &url.URL{Path: "/x"}, Host: "example.com"}
		host, port := destination(r)
		assert.Equal(t, "example.com", host)
		assert.Equal(t, 80, port)
	})
}
