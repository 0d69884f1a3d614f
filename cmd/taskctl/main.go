package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/config"
	"github.com/BuzzLyutic/taskboard/internal/i18n"
	"github.com/BuzzLyutic/taskboard/internal/store"
	"github.com/BuzzLyutic/taskboard/internal/tasklist"
)

var Version = "dev"

type rootOptions struct {
	configPath string
	baseURL    string
	encoding   string
	locale     string
	logLevel   string
}

// app holds what every command needs once flags are parsed.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	msgs   i18n.Catalog
	client *store.Client
	policy tasklist.DeletePolicy
}

// userError carries a localized sentence for the terminal, the cause goes to
// the log only.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage tasks stored on a remote task server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to taskboard.yaml")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "task API root, e.g. http://localhost:8080/api")
	root.PersistentFlags().StringVar(&opts.encoding, "encoding", "", "parameter encoding: query or json")
	root.PersistentFlags().StringVar(&opts.locale, "locale", "", "message language (en, es)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(listCmd(opts))
	root.AddCommand(addCmd(opts))
	root.AddCommand(editCmd(opts))
	root.AddCommand(toggleCmd(opts, "done", true))
	root.AddCommand(toggleCmd(opts, "undo", false))
	root.AddCommand(rmCmd(opts))
	root.AddCommand(shellCmd(opts))

	return root
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.API.BaseURL = opts.baseURL
	}
	if flags.Changed("encoding") {
		cfg.API.Encoding = opts.encoding
	}
	if flags.Changed("locale") {
		cfg.Locale = opts.locale
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	enc, err := store.ParseEncoding(cfg.API.Encoding)
	if err != nil {
		return nil, err
	}
	policy, err := tasklist.ParseDeletePolicy(cfg.DeletePolicy)
	if err != nil {
		return nil, err
	}

	client, err := store.NewClient(store.Options{
		BaseURL:            cfg.API.BaseURL,
		Encoding:           enc,
		Timeout:            cfg.API.Timeout,
		InsecureSkipVerify: cfg.API.InsecureSkipVerify,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		msgs:   i18n.Lookup(cfg.Locale),
		client: client,
		policy: policy,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) fail(msg string, err error) error {
	if msg == "" {
		msg = err.Error()
	}
	return &userError{msg: msg, err: err}
}

// mountList loads the collection, failing with the controller's banner.
func (a *app) mountList(ctx context.Context, confirm tasklist.Confirmer) (*tasklist.Controller, error) {
	list := tasklist.New(a.client, confirm, a.logger, tasklist.Options{
		Messages:     a.msgs,
		DeletePolicy: a.policy,
	})
	if err := list.Mount(ctx); err != nil {
		return nil, a.fail(list.State().Message, err)
	}
	return list, nil
}
