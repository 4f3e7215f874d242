package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WebsocketDialer opens realtime channel subscriptions over a websocket.
// Each channel maps to one connection at BaseURL/<channel>.
type WebsocketDialer struct {
	// BaseURL is the realtime endpoint, e.g. wss://sync.example.com/realtime.
	BaseURL string

	// Token, when set, is sent as a bearer credential on the handshake.
	Token string

	// HTTPClient overrides the client used for the handshake. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Dial implements Dialer.
func (d *WebsocketDialer) Dial(ctx context.Context, channel string) (Conn, error) {
	base, err := url.Parse(d.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/" + channel

	opts := &websocket.DialOptions{HTTPClient: d.HTTPClient}
	if d.Token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + d.Token}}
	}

	ws, _, err := websocket.Dial(ctx, base.String(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", channel, err)
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Recv(ctx context.Context) (*Event, error) {
	var ev Event
	if err := wsjson.Read(ctx, c.ws, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *wsConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
