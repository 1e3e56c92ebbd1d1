package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nourish/api"
)

// LiveFeed subscribes to the backend's change stream and republishes every
// event on the bus, so edits from another device trigger the same
// re-fetch as local ones.
type LiveFeed struct {
	client *api.Client
	bus    *RefreshBus
	log    *zap.Logger
	dialer *websocket.Dialer
}

func NewLiveFeed(client *api.Client, bus *RefreshBus, log *zap.Logger) *LiveFeed {
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveFeed{client: client, bus: bus, log: log, dialer: websocket.DefaultDialer}
}

// URL is the websocket endpoint derived from the API base URL.
func (f *LiveFeed) URL() (string, error) {
	u, err := url.Parse(f.client.URL("/ws"))
	if err != nil {
		return "", fmt.Errorf("live feed url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// Run reads events until ctx is done or the connection drops. It returns
// nil when stopped through ctx.
func (f *LiveFeed) Run(ctx context.Context) error {
	cred, err := f.client.Store().Get()
	if err != nil {
		return err
	}
	if cred == nil || cred.AccessToken == "" {
		return &api.Error{Kind: api.KindAuth, Message: "Not logged in"}
	}
	u, err := f.URL()
	if err != nil {
		return err
	}

	header := http.Header{"Authorization": {"Bearer " + cred.AccessToken}}
	conn, resp, err := f.dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return f.client.Expire()
		}
		return &api.Error{Kind: api.KindNetwork, Message: fmt.Sprintf("Network error: %v", err), Err: err}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	f.log.Info("live feed connected", zap.String("url", u))
	for {
		var e Event
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("live feed: %w", err)
		}
		e.Remote = true
		f.log.Debug("live event", zap.String("topic", string(e.Topic)), zap.String("action", string(e.Action)))
		f.bus.Publish(e)
	}
}
