package vigilcli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"

	"github.com/vigild/vigild/common"
)

// Handlers receives push notifications from the daemon. Nil fields are
// ignored.
type Handlers struct {
	OnCheckStarted func(*common.CheckStartedEvent)
	OnTimerReset   func(*common.TimerResetEvent)
	OnTriggered    func(*common.SwitchTriggeredEvent)
}

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel interface.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// Listen connects to the daemon's websocket endpoint and dispatches push
// notifications to h until ctx is canceled or the connection drops.
func Listen(ctx context.Context, baseURL, secret string, h Handlers) error {
	wsURL := toWebsocketURL(baseURL) + "/ws"
	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + secret}},
	})
	if err != nil {
		return fmt.Errorf("listen: dial %s: %w", wsURL, err)
	}

	ch := &wsChannel{conn: conn, ctx: ctx}
	cli := jrpc2.NewClient(ch, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) { dispatch(req, h) },
	})
	defer cli.Close()

	<-ctx.Done()
	return ctx.Err()
}

func dispatch(req *jrpc2.Request, h Handlers) {
	switch req.Method() {
	case common.NotifyCheckStarted:
		if h.OnCheckStarted != nil {
			var ev common.CheckStartedEvent
			if err := req.UnmarshalParams(&ev); err == nil {
				h.OnCheckStarted(&ev)
			}
		}
	case common.NotifyTimerReset:
		if h.OnTimerReset != nil {
			var ev common.TimerResetEvent
			if err := req.UnmarshalParams(&ev); err == nil {
				h.OnTimerReset(&ev)
			}
		}
	case common.NotifySwitchTriggered:
		if h.OnTriggered != nil {
			var ev common.SwitchTriggeredEvent
			if err := req.UnmarshalParams(&ev); err == nil {
				h.OnTriggered(&ev)
			}
		}
	}
}

// toWebsocketURL converts an http(s) base URL to its ws(s) form.
func toWebsocketURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}
