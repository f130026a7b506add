package cli

import (
	"context"
	"errors"
	"github.com/spf13/cobra"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"wallet/internal/config"
	"wallet/internal/delegates"
	"wallet/internal/events"
	"wallet/internal/handlers"
	"wallet/internal/navigation"
	"wallet/internal/nodeclient"
	"wallet/internal/notify"
	"wallet/internal/poller"
	"wallet/internal/services"
	"wallet/internal/signer"
	"wallet/internal/storage/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the wallet daemon and its HTTP API",
	Args:  cobra.NoArgs,
	RunE:  serveCmdRun,
}

func serveCmdRun(cmd *cobra.Command, args []string) error {
	log := app.logger
	provider := app.provider
	cfg := provider.Current()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider.Watch()
	unsubscribe := provider.Subscribe(func(c *config.Config) {
		log.Info("config updated", "delegates", len(c.Delegates), "account", c.DefaultAccount.Address)
	})
	defer unsubscribe()

	if len(cfg.Etcd.Endpoints) > 0 {
		source, err := delegates.NewEtcdSource(cfg.Etcd.Endpoints, cfg.Etcd.DialTimeout, cfg.Etcd.Prefix, log)
		if err != nil {
			return err
		}
		defer source.Close()

		go func() {
			if err := source.Sync(ctx, provider); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("delegate sync stopped", "error", err)
			}
		}()
	}

	db, err := sqlite.Open(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing database connection")
		if err := db.Close(); err != nil {
			log.Error("Database close failed", "error", err)
		}
	}()

	storage := sqlite.NewStorage(db, log)
	if err := storage.Init(); err != nil {
		return err
	}

	inbox := notify.NewInbox(storage, log)
	pages := navigation.NewStack(navigation.PageWallet, log)
	pages.Push(navigation.PageSendTokens)
	bus := events.NewBus(log)
	refreshes := bus.Count(ctx, events.Refresh)

	sender := newSender(provider, inbox, pages, bus)

	handler := handlers.NewHandler(ctx, handlers.HandlerDeps{
		Sender:    sender,
		Toasts:    inbox,
		Pages:     pages,
		Refreshes: refreshes,
		Config:    provider,
	}, log)
	router := handlers.NewRouter(handler)

	srv := &http.Server{
		Addr:        cfg.Address,
		Handler:     router,
		ReadTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout: cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		return err
	}

	log.Info("Server gracefully stopped")
	return nil
}

// newSender wires the send flow around the given user facing collaborators.
func newSender(provider *config.Provider, notifier notify.Notifier, nav services.Navigator, bus services.EventEmitter) *services.Sender {
	cfg := provider.Current()
	log := app.logger

	return services.NewSender(services.SenderDeps{
		Config:  provider,
		Builder: services.NewBuilder(signer.New()),
		Client:  nodeclient.New(cfg.Node.Port, cfg.Node.Timeout, log),
		Poller: poller.New(poller.Config{
			Delay:       cfg.Poll.Delay,
			MaxAttempts: cfg.Poll.MaxAttempts,
		}, log),
		Notifier:  notifier,
		Navigator: nav,
		Events:    bus,
	}, log)
}
