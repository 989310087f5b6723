package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one physical duplex connection carrying JSON-RPC frames.
// ReadMessage is only called from the socket's read loop; WriteMessage is
// serialized by the socket.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// DialFunc opens a connection to the normalized url.
type DialFunc func(ctx context.Context, u *url.URL) (Conn, error)

// closeGracePeriod bounds the write of the close frame.
const closeGracePeriod = time.Second

// wsConn adapts a gorilla connection to Conn using text frames.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)
	return c.conn.Close()
}

// ipcConn carries a stream of concatenated JSON values over a unix socket.
type ipcConn struct {
	conn    net.Conn
	decoder *json.Decoder
	once    sync.Once
}

func (c *ipcConn) ReadMessage() ([]byte, error) {
	var raw json.RawMessage
	if err := c.decoder.Decode(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			// the stream cannot be resynchronized after a syntax error
			return nil, errors.Join(ErrMalformedFrame, err)
		}
		return nil, err
	}
	return raw, nil
}

func (c *ipcConn) WriteMessage(data []byte) error {
	_, err := c.conn.Write(data)
	return err
}

func (c *ipcConn) Close() error {
	var err error
	c.once.Do(func() { err = c.conn.Close() })
	return err
}

// newDialFunc returns the default dialer: gorilla for ws/wss and a unix
// socket for ipc.
func newDialFunc(wsDialer *websocket.Dialer) DialFunc {
	return func(ctx context.Context, u *url.URL) (Conn, error) {
		switch u.Scheme {
		case "ws", "wss":
			conn, _, err := wsDialer.DialContext(ctx, u.String(), nil)
			if err != nil {
				return nil, err
			}
			return &wsConn{conn: conn}, nil
		case "ipc", "unix":
			var d net.Dialer
			conn, err := d.DialContext(ctx, "unix", u.Path)
			if err != nil {
				return nil, err
			}
			return &ipcConn{conn: conn, decoder: json.NewDecoder(conn)}, nil
		default:
			return nil, ErrUnsupportedURL
		}
	}
}

// normalizeURL parses rawURL into the registry key and the dial target.
// Absolute filesystem paths are treated as IPC endpoints.
func normalizeURL(rawURL string) (string, *url.URL, error) {
	if strings.HasPrefix(rawURL, "/") {
		u := &url.URL{Scheme: "ipc", Path: rawURL}
		return u.String(), u, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, errors.Join(ErrUnsupportedURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)

	switch u.Scheme {
	case "ws", "wss":
		u.Host = strings.ToLower(u.Host)
		if u.Host == "" {
			return "", nil, ErrUnsupportedURL
		}
		if u.Path == "" {
			u.Path = "/"
		}
	case "ipc", "unix":
		// ipc://relative/path parses the first segment as host
		u.Path = u.Host + u.Path
		u.Host = ""
		if u.Path == "" {
			return "", nil, ErrUnsupportedURL
		}
	default:
		return "", nil, ErrUnsupportedURL
	}

	return u.String(), u, nil
}
