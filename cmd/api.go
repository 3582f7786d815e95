package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanshpatelx/Opinex/config"
	"github.com/vanshpatelx/Opinex/internal/api"
	"github.com/vanshpatelx/Opinex/internal/profiling"
	"github.com/vanshpatelx/Opinex/internal/services"
)

var enabledServices []string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for events and orders`,
	RunE:  runAPI,
}

func init() {
	apiCmd.Flags().StringSliceVar(&enabledServices, "services", nil, "services to expose (events, orders); defaults to server.services")
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	configureLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	profiler, err := profiling.Start(cfg.Profiling, map[string]string{"environment": cfg.Environment})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to start profiler, continuing without profiling")
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop profiler")
			}
		}()
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	eventService, orderService, err := selectServices(rt, serviceNames(cfg))
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, eventService, orderService, rt.metrics, rt.tracer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	// Ping backing resources so /health reflects reality
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return errors.Wrap(err, "failed to create scheduler")
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Server.HealthInterval),
			gocron.NewTask(func() { rt.checkHealth(ctx) }),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return errors.Wrap(err, "failed to schedule health checks")
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("API server error")
		return err
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func serviceNames(cfg config.Config) []string {
	if len(enabledServices) > 0 {
		return enabledServices
	}
	return cfg.Server.Services
}

// selectServices returns the services whose routes should be mounted.
func selectServices(rt *runtime, names []string) (*services.EventService, *services.OrderService, error) {
	var events *services.EventService
	var orders *services.OrderService
	for _, name := range names {
		switch name {
		case "events":
			events = rt.eventService
		case "orders":
			orders = rt.orderService
		default:
			return nil, nil, errors.Errorf("unknown service %q", name)
		}
	}
	if events == nil && orders == nil {
		return nil, nil, errors.New("no services enabled")
	}
	log.Info().Strs("services", names).Msg("Services enabled")
	return events, orders, nil
}

func configureLogging(cfg config.LoggingConfig) {
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if debug {
		return
	}
	if level, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		zerolog.SetGlobalLevel(level)
	}
}
