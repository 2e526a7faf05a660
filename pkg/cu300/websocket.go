// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

// WebSocketTransport speaks GENIBus through a WebSocket serial bridge.
// Binary messages from the bridge are treated as an opaque byte stream and
// re-framed by the receiver, so message boundaries need not align with
// GENIBus frames.
type WebSocketTransport struct {
	URL           string
	Username      string
	Password      string
	SkipTLSVerify bool

	conn *websocket.Conn
	buf  []byte // unread remainder of the last binary message
}

// NewWebSocketTransport creates a transport for a ws:// or wss:// bridge URL.
func NewWebSocketTransport(wsURL, username, password string, skipTLSVerify bool) *WebSocketTransport {
	return &WebSocketTransport{
		URL:           wsURL,
		Username:      username,
		Password:      password,
		SkipTLSVerify: skipTLSVerify,
	}
}

// Connect dials the bridge, sending HTTP basic auth when credentials are set.
func (w *WebSocketTransport) Connect(ctx context.Context) error {
	u, err := url.Parse(w.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("unsupported URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: w.SkipTLSVerify}
	}

	headers := http.Header{}
	if w.Username != "" && w.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(w.Username + ":" + w.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, w.URL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	w.conn = conn
	w.buf = nil
	return nil
}

// Close tears the WebSocket down.
func (w *WebSocketTransport) Close() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

// Write sends p as one binary message. The bridge forwards it byte for byte.
func (w *WebSocketTransport) Write(p []byte) error {
	if w.conn == nil {
		return ErrNotConnected
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, p)
}

// ReadExact drains buffered bytes first, then pulls further binary messages
// until n bytes are available or the deadline passes.
func (w *WebSocketTransport) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	if w.conn == nil {
		return nil, ErrNotConnected
	}
	deadline := time.Now().Add(timeout)
	out := make([]byte, 0, n)

	for len(out) < n {
		if len(w.buf) > 0 {
			take := n - len(out)
			if take > len(w.buf) {
				take = len(w.buf)
			}
			out = append(out, w.buf[:take]...)
			w.buf = w.buf[take:]
			continue
		}
		if err := w.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, fmt.Errorf("%w: %d of %d bytes after %v", genibus.ErrTimeout, len(out), n, timeout)
			}
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
	}
	return out, nil
}

func (w *WebSocketTransport) String() string {
	return fmt.Sprintf("websocket %s", w.URL)
}
