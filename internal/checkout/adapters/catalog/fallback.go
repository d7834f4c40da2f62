package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

// rawGet is the degraded transport: a hand-dialled TCP connection carrying
// a minimal HTTP/1.1 GET, deliberately independent of the http.Client
// stack (no transport pooling, no redirects, no proxies). It exists for
// the case where the standard client is misbehaving while the catalog
// itself is fine.
//
// Plain http only; the raw path does not speak TLS.
func rawGet(ctx context.Context, rawURL string) (int, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("raw transport: parse url: %w", err)
	}
	if u.Scheme != "http" {
		return 0, nil, fmt.Errorf("raw transport: unsupported scheme %q", u.Scheme)
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "80")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, nil, fmt.Errorf("raw transport: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return 0, nil, fmt.Errorf("raw transport: set deadline: %w", err)
		}
	}

	// Connection: close keeps the read loop trivial: the response ends
	// when the peer closes.
	_, err = fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: %s\r\nAccept: application/json\r\nConnection: close\r\n\r\n",
		u.RequestURI(), u.Host)
	if err != nil {
		return 0, nil, fmt.Errorf("raw transport: write request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("raw transport: read response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("raw transport: read body: %w", err)
	}

	return resp.StatusCode, body, nil
}
