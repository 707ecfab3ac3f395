package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/lunchdesk/internal/allocator"
	"github.com/roach88/lunchdesk/internal/flow"
	"github.com/roach88/lunchdesk/internal/notify"
	"github.com/roach88/lunchdesk/internal/session"
	"github.com/roach88/lunchdesk/internal/store"
	"github.com/roach88/lunchdesk/internal/transport"
)

// shutdownTimeout bounds how long in-flight requests may take after a
// shutdown signal.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ordering service",
		Long: `Start the HTTP ordering service.

Opens (or creates) the SQLite database, then serves:
  POST /v1/updates                        inbound chat updates
  GET  /v1/sessions/:sessionId/messages   queued asynchronous replies
  GET  /healthz                           liveness and database check

Idle conversations are expired in the background and order notifications
are logged.

Example:
  lunchdesk serve --db ./lunchdesk.db --listen :8080
  LUNCHDESK_LISTEN=:9000 lunchdesk serve -c lunchdesk.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	addDBFlag(cmd)
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}

	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc := newService(st, cfg.MenuCacheTTL, cfg.SessionIdleTimeout, cfg.ReaperInterval, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = svc.dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = svc.reaper.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "listen", cfg.Listen, "db", cfg.Database)
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", cfg.Listen)

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	cancel()
	svc.dispatcher.Stop()
	wg.Wait()

	if serveErr != nil {
		return WrapExitError(ExitFailure, "server error", serveErr)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// service is the wired ordering stack.
type service struct {
	dispatcher *notify.Dispatcher
	engine     *flow.Engine
	reaper     *session.Reaper
	router     *gin.Engine
}

func newService(st *store.Store, cacheTTL, idle, reapEvery time.Duration, logger *slog.Logger) *service {
	gin.SetMode(gin.ReleaseMode)

	dispatcher := notify.NewDispatcher(logger, notify.LogSink{Logger: logger})
	alloc := allocator.New(st,
		allocator.WithNotifier(dispatcher),
		allocator.WithLogger(logger),
	)

	sessions := session.NewStore(nil)
	mailbox := transport.NewMailbox()
	eng := flow.New(sessions, store.NewMenuCache(st, cacheTTL, nil), st, alloc,
		flow.WithOutbox(mailbox),
		flow.WithIdleTimeout(idle),
		flow.WithLogger(logger),
	)

	return &service{
		dispatcher: dispatcher,
		engine:     eng,
		reaper:     session.NewReaper(sessions, idle, reapEvery, eng.Expire, logger, session.WithForgetHook(mailbox.Discard)),
		router:     transport.NewRouter(transport.NewServer(eng, st, mailbox, st.DB(), logger)),
	}
}
