// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uxmodem/engine/pkg/xmodem"
)

// WebSocket wraps a WebSocket connection as an xmodem.Transport, buffering
// partial binary messages since XMODEM's byte-oriented reads rarely align
// with WebSocket message boundaries.
type WebSocket struct {
	conn      *websocket.Conn
	url       string
	buf       []byte
	bufOffset int
}

// DialWebSocket connects to wsURL, optionally with HTTP Basic auth, and
// optionally skipping TLS verification for wss:// endpoints reached over a
// self-signed certificate.
func DialWebSocket(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (*WebSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+creds)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return &WebSocket{conn: conn, url: wsURL}, nil
}

// String identifies the connection for status output.
func (w *WebSocket) String() string { return fmt.Sprintf("ws:%s", w.url) }

// Close closes the underlying WebSocket connection.
func (w *WebSocket) Close() error { return w.conn.Close() }

// ReadFull blocks until buf is completely filled, reading and buffering
// binary WebSocket messages as needed, or returns xmodem.ErrPortTimeout
// once the read deadline passes without enough bytes arriving.
func (w *WebSocket) ReadFull(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	total := 0
	for total < len(buf) {
		if w.bufOffset < len(w.buf) {
			n := copy(buf[total:], w.buf[w.bufOffset:])
			w.bufOffset += n
			total += n
			continue
		}

		if err := w.conn.SetReadDeadline(deadline); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err) {
				return fmt.Errorf("websocket closed: %w", err)
			}
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				return xmodem.ErrPortTimeout
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
		w.bufOffset = 0
	}
	return nil
}

// Write sends buf as a single binary WebSocket message.
func (w *WebSocket) Write(ctx context.Context, buf []byte) error {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}
