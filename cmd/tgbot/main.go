// Command tgbot runs a small Telegram bot on the router: a /start
// conversation, a vote keyboard and an echo fallback.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	bd "github.com/bjaus/botdispatch"
	"github.com/bjaus/botdispatch/config"
	"github.com/bjaus/botdispatch/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCommand(&cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	logLevel := cfg.LogLevel.String()

	cmd := &cobra.Command{
		Use:   "tgbot",
		Short: "Run the demo Telegram bot",
		Long: `Run the demo Telegram bot.

Every flag defaults to its environment variable (BOT_TOKEN,
DISPATCH_MAX_CONCURRENCY, ...). Without --webhook-addr the bot long-polls.

Example:
  BOT_TOKEN=123:abc tgbot
  tgbot --token 123:abc --handlers ./handlers.yaml --log-level debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), *cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Token, "token", cfg.Token, "bot API token")
	f.IntVar(&cfg.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "global limit on concurrently running handlers")
	f.BoolVar(&cfg.ExclusiveAwaiting, "exclusive-awaiting", cfg.ExclusiveAwaiting, "withhold awaited updates from registered handlers")
	f.DurationVar(&cfg.PollTimeout, "poll-timeout", cfg.PollTimeout, "long-poll timeout")
	f.StringVar(&cfg.HandlersFile, "handlers", cfg.HandlersFile, "YAML handler table (default: built-in registrations)")
	f.StringVar(&cfg.WebhookAddr, "webhook-addr", cfg.WebhookAddr, "serve a webhook on this address instead of polling")
	f.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "secret token expected on webhook requests")
	f.Int64SliceVar(&cfg.AllowedChats, "allowed-chats", cfg.AllowedChats, "accept webhook updates from these chats only")
	f.StringVar(&logLevel, "log-level", logLevel, "debug|info|warn|error")

	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.Token == "" {
		return errors.New("bot token is required (BOT_TOKEN or --token)")
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	me, err := bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot identity: %w", err)
	}
	logger.Info("bot identity", "id", me.ID, "username", me.Username)

	states := bd.NewStateRegistry()
	c := bd.NewCollection()
	if err := register(c, states, cfg.HandlersFile); err != nil {
		return err
	}

	opts := append(cfg.RouterOptions(),
		bd.WithClient(telegram.NewClient(bot)),
		bd.WithBot(telegram.BotInfo(me)),
		bd.WithStates(states),
		bd.WithLogger(logger),
		bd.WithOnNoHandler(func(ctx context.Context, u *bd.Update) {
			logger.Debug("unhandled update", "update_id", u.ID, "kind", u.Kind().String())
		}),
	)
	r := bd.New(c, opts...)

	if cfg.WebhookAddr != "" {
		return serveWebhook(ctx, r, cfg, cfg.Accept(c.Kinds()...), logger)
	}
	return r.Run(ctx, telegram.NewPoller(bot,
		telegram.WithPollTimeout(cfg.PollTimeout),
		telegram.WithAllowedUpdates(c.Kinds()...),
	))
}

func serveWebhook(ctx context.Context, r *bd.Router, cfg config.Config, accept bd.Discriminator, logger *slog.Logger) error {
	srv := &http.Server{
		Addr: cfg.WebhookAddr,
		Handler: telegram.NewWebhook(r,
			telegram.WithSecret(cfg.WebhookSecret),
			telegram.WithAccept(accept),
			telegram.WithWebhookLogger(logger),
			telegram.WithBaseContext(ctx),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook listening", "addr", cfg.WebhookAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("webhook shutdown", "error", err)
	}
	r.Wait()
	logger.Info("webhook stopped")
	return nil
}
