package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nourish/api"
	"nourish/models"
	"nourish/services"
	"nourish/session"
)

// follow calls reload whenever one of topics changes, until the command's
// context is canceled or the session ends. Remote changes arrive through
// the live feed when live updates are enabled; a logout from another
// process sharing the session file ends the loop.
func (c *cli) follow(cmd *cobra.Command, topics []services.Topic, reload func() error) error {
	events, unsubscribe := c.svc.Bus.Subscribe(append(topics, services.TopicSession)...)
	defer unsubscribe()

	if _, ok := c.store.(*session.DBStore); ok {
		w, err := session.NewWatcher(c.store, c.cfg.SessionDB, func(cred *models.Credential) {
			action := services.ActionLogin
			if cred == nil {
				action = services.ActionLogout
			}
			c.svc.Bus.Publish(services.Event{Topic: services.TopicSession, Action: action})
		}, c.log)
		if err != nil {
			c.log.Warn("session watcher unavailable", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	if c.cfg.LiveUpdates {
		g.Go(func() error {
			err := c.svc.Live.Run(ctx)
			if err != nil && !api.IsSessionExpired(err) {
				c.log.Warn("live feed stopped", zap.Error(err))
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if e.Topic == services.TopicSession {
					if e.Action == services.ActionLogout {
						return &api.Error{Kind: api.KindAuth, Message: "Logged out", Err: api.ErrSessionExpired}
					}
					continue
				}
				c.log.Debug("reloading", zap.String("topic", string(e.Topic)), zap.Bool("remote", e.Remote))
				if err := reload(); err != nil {
					if api.IsSessionExpired(err) {
						return err
					}
					c.log.Warn("reload failed", zap.Error(err))
				}
			}
		}
	})
	return g.Wait()
}
