package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nourish/api"
	"nourish/config"
	"nourish/services"
	"nourish/session"
)

// exitSessionExpired is the status used when the backend rejected the
// stored credential.
const exitSessionExpired = 2

// cli carries the state shared by every command. Tests fill cfg, log and
// svc directly and skip setup.
type cli struct {
	out     io.Writer
	in      io.Reader
	cfgPath string
	verbose bool

	cfg   *config.Config
	log   *zap.Logger
	store session.Store
	svc   *services.Services
}

func main() {
	c := &cli{out: os.Stdout, in: os.Stdin}
	root := newRootCmd(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	c.close()

	if err == nil {
		return
	}
	if api.IsSessionExpired(err) {
		fmt.Fprintln(os.Stderr, "Your session has expired. Run `nourish login` to sign in again.")
		os.Exit(exitSessionExpired)
	}
	fmt.Fprintln(os.Stderr, "Error:", describe(err))
	os.Exit(1)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "nourish",
		Short: "Track foods, meals and nutrition goals from the terminal",
		Long: `nourish is a client for the nutrition tracking backend.

Log foods into breakfast, lunch, dinner and snacks, keep saved meals,
share recipes with the community and follow daily and weekly progress
against your goals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		loginCmd(c),
		registerCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		goalsCmd(c),
		passwordCmd(c),
		diaryCmd(c),
		summaryCmd(c),
		progressCmd(c),
		foodsCmd(c),
		searchCmd(c),
		mealsCmd(c),
		recipesCmd(c),
		devserverCmd(c),
	)
	return root
}

// init builds the logger and loads the configuration once.
func (c *cli) init() error {
	if c.cfg != nil {
		return nil
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if c.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.log = log

	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// services opens the session database and wires the client on first use.
func (c *cli) services() (*services.Services, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	db, err := config.OpenDB(c.cfg.SessionDB)
	if err != nil {
		return nil, err
	}
	c.store = session.NewDBStore(db)

	opts := []api.Option{
		api.WithLogger(c.log),
		api.OnSessionExpired(func() {
			c.log.Info("session expired, stored credential cleared")
		}),
	}
	if c.cfg.Timeout > 0 {
		opts = append(opts, api.WithTimeout(c.cfg.Timeout))
	}
	client := api.New(c.cfg.APIURL, c.store, opts...)
	c.svc = services.New(client, c.log)
	c.log.Debug("client ready", zap.String("api_url", c.cfg.APIURL), zap.String("session_db", c.cfg.SessionDB))
	return c.svc, nil
}

func (c *cli) close() {
	if c.svc != nil {
		c.svc.Bus.Close()
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}

// describe renders an error for the terminal, listing field errors when
// the backend or a form check returned them.
func describe(err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || len(apiErr.FieldErrors) == 0 {
		return err.Error()
	}
	msg := apiErr.Message
	for _, field := range apiErr.FieldErrors.Fields() {
		if field == "_schema" {
			continue
		}
		msg += fmt.Sprintf("\n  %s: %s", field, apiErr.FieldErrors.First(field))
	}
	return msg
}
