package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/codequiz/internal/config"
	"github.com/abhisek/codequiz/internal/discovery"
	"github.com/abhisek/codequiz/internal/engine"
	"github.com/abhisek/codequiz/internal/event"
	"github.com/abhisek/codequiz/internal/httpapi"
	"github.com/abhisek/codequiz/internal/reaper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the quiz HTTP service and the session reaper",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().Bool("no-reaper", false, "Do not run the background session reaper")
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	cfg := config.Load()

	client, sessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	glog.Infof("session store: redis %s db %d, prefix %q", cfg.Redis.Addr, cfg.Redis.DB, sessions.Prefix())

	st, err := openAuditStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	gen, closeGen := buildGenerator(ctx, cfg, st.AuditLog())
	defer closeGen()

	opts := engine.Options{DefaultLanguage: cfg.Quiz.DefaultLanguage}
	publisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		glog.Warningf("event publishing disabled: %v", err)
	} else {
		defer publisher.Close()
		if publisher.Enabled() {
			opts.Events = publisher
		}
	}

	eng := engine.New(sessions, gen, opts)

	router := httpapi.NewRouter(eng, sessions, httpapi.Config{
		CORSOrigins:     cfg.Server.CORSOrigins,
		DefaultLanguage: cfg.Quiz.DefaultLanguage,
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		glog.Infof("quiz service listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		glog.Info("shutting down quiz service")
		return srv.Shutdown(shutdownCtx)
	})

	if noReaper, _ := cmd.Flags().GetBool("no-reaper"); !noReaper {
		r := reaper.New(sessions, st.AuditLog(), reaper.Config{
			SweepInterval:  cfg.Reaper.SweepInterval,
			ReportHour:     cfg.Reaper.ReportHour,
			AuditRetention: cfg.Reaper.AuditRetention,
		})
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	if cfg.Consul.Address != "" {
		registry, err := discovery.NewServiceRegistry(cfg.Consul.Address, discovery.Registration{
			ServiceID:   cfg.Consul.ServiceID,
			ServiceName: cfg.Consul.ServiceName,
			Address:     cfg.Consul.ServiceAddress,
			ListenAddr:  cfg.Server.Addr,
		})
		if err != nil {
			glog.Warningf("consul registration skipped: %v", err)
		} else if err := registry.Register(); err != nil {
			glog.Warningf("consul registration failed: %v", err)
		} else {
			defer func() {
				if err := registry.Deregister(); err != nil {
					glog.Warningf("%v", err)
				}
			}()
		}
	}

	err = g.Wait()
	glog.Infof("quiz service stopped after %s", time.Since(started).Truncate(time.Second))
	return err
}
