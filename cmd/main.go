package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/docgen"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/sksmith/bunnyq"
	"github.com/sksmith/video-shoppe/api"
	"github.com/sksmith/video-shoppe/config"
	"github.com/sksmith/video-shoppe/core/employee"
	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/db"
	"github.com/sksmith/video-shoppe/db/employeerepo"
	"github.com/sksmith/video-shoppe/db/memrepo"
	"github.com/sksmith/video-shoppe/db/rentalrepo"
	"github.com/sksmith/video-shoppe/queue"

	"github.com/common-nighthawk/go-figure"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load("config")

	configLogging(cfg)
	printLogHeader(cfg)
	cfg.Print()

	shutdownTracing := configTracing(ctx, cfg)
	defer shutdownTracing()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}

	log.Info().Msg("configuring metrics...")
	api.ConfigureMetrics()

	if cfg.Http.GenerateRoutes.Value {
		fmt.Println(docgen.JSONRoutesDoc(app.router))
	}

	if app.catalog != nil {
		log.Info().Msg("consuming catalog items...")
		go app.catalog.ConsumeItems(ctx, app.rentalService)
	}

	srv := &http.Server{Addr: ":" + cfg.Port.Value, Handler: app.router}
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to shut down cleanly")
		}
	}()

	log.Info().Str("port", cfg.Port.Value).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Send()
	}
}

type app struct {
	router          chi.Router
	rentalService   rental.Service
	employeeService employee.Service
	catalog         *queue.CatalogQueue
}

// newApp wires the repositories, queues and services selected by cfg behind the http router.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	rentalRepo, employeeRepo, err := configRepos(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var bq *bunnyq.BunnyQ
	if !cfg.RabbitMQ.Mock.Value {
		log.Info().Msg("connecting to rabbitmq...")
		bq = rabbit(ctx, cfg)
	}

	loc, err := time.LoadLocation(cfg.Rental.TimeZone.Value)
	if err != nil {
		log.Warn().Err(err).Str("timeZone", cfg.Rental.TimeZone.Value).Msg("unknown time zone, defaulting to UTC")
		loc = time.UTC
	}

	log.Info().Msg("creating rental service...")
	rentalService := rental.NewService(rentalRepo, configRentalQueue(bq, cfg),
		rental.WithLocation(loc),
		rental.RestockOnReturn(cfg.Rental.RestockOnReturn.Value),
		rental.MaxRentAge(cfg.Rental.MaxRentAgeYears.Value),
	)

	log.Info().Msg("creating employee service...")
	employeeService := employee.NewService(employeeRepo)
	if err := employeeService.EnsureAdmin(ctx, cfg.Security.AdminUser.Value, cfg.Security.AdminPass.Value); err != nil {
		return nil, err
	}

	log.Info().Msg("configuring router...")
	a := &app{
		router:          api.ConfigureRouter(cfg, rentalService, employeeService),
		rentalService:   rentalService,
		employeeService: employeeService,
	}
	if bq != nil {
		a.catalog = queue.NewCatalogQueue(bq, cfg.RabbitMQ.Catalog.Queue.Value, cfg.RabbitMQ.Catalog.Dlt.Exchange.Value)
	}
	return a, nil
}

func configRepos(ctx context.Context, cfg *config.Config) (rental.Repository, employee.Repository, error) {
	if cfg.Db.InMemory.Value {
		log.Info().Msg("using the in memory store...")
		store := memrepo.NewStore()
		return memrepo.NewRentalRepo(store), memrepo.NewEmployeeRepo(store), nil
	}

	dbPool, err := db.ConnectDb(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return rentalrepo.NewPostgresRepo(dbPool), employeerepo.NewPostgresRepo(dbPool), nil
}

func configRentalQueue(bq *bunnyq.BunnyQ, cfg *config.Config) rental.Queue {
	if bq == nil {
		log.Info().Msg("creating mock queue...")
		return queue.NewMockQueue()
	}
	return queue.New(bq, cfg.RabbitMQ.Rental.Exchange.Value, cfg.RabbitMQ.Inventory.Exchange.Value)
}

func rabbit(ctx context.Context, cfg *config.Config) *bunnyq.BunnyQ {
	osChannel := make(chan os.Signal, 1)
	signal.Notify(osChannel, syscall.SIGTERM)

	return bunnyq.New(ctx,
		bunnyq.Address{
			User: cfg.RabbitMQ.User.Value,
			Pass: cfg.RabbitMQ.Pass.Value,
			Host: cfg.RabbitMQ.Host.Value,
			Port: cfg.RabbitMQ.Port.Value,
		},
		osChannel,
		bunnyq.LogHandler(logger{}),
	)
}

type logger struct {
}

func (l logger) Log(_ context.Context, level bunnyq.LogLevel, msg string, data map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case bunnyq.LogLevelTrace:
		evt = log.Trace()
	case bunnyq.LogLevelDebug:
		evt = log.Debug()
	case bunnyq.LogLevelInfo:
		evt = log.Info()
	case bunnyq.LogLevelWarn:
		evt = log.Warn()
	case bunnyq.LogLevelError:
		evt = log.Error()
	case bunnyq.LogLevelNone:
		evt = log.Info()
	default:
		evt = log.Info()
	}

	for k, v := range data {
		evt.Interface(k, v)
	}

	evt.Msg(msg)
}

// configTracing installs an OTLP exporting tracer provider when tracing is enabled. The returned func flushes it.
func configTracing(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Tracing.Enabled.Value {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint.Value),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create trace exporter, tracing disabled")
		return func() {}
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.AppName.Value),
			semconv.ServiceVersionKey.String(cfg.AppVersion.Value),
		),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create trace resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Info().Str("endpoint", cfg.Tracing.Endpoint.Value).Msg("tracing enabled")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}
}

func printLogHeader(cfg *config.Config) {
	if cfg.Log.Structured.Value {
		log.Info().Str("application", cfg.AppName.Value).
			Str("revision", cfg.Revision.Value).
			Str("version", cfg.AppVersion.Value).
			Str("sha1ver", cfg.Sha1Version.Value).
			Str("build-time", cfg.BuildTime.Value).
			Str("profile", cfg.Profile.Value).
			Str("config-source", cfg.Config.Source.Value).
			Str("config-branch", cfg.Config.Spring.Branch.Value).
			Send()
	} else {
		f := figure.NewFigure(cfg.AppName.Value, "", true)
		f.Print()

		log.Info().Msg("=============================================")
		log.Info().Msg(fmt.Sprintf("       Revision: %s", cfg.Revision.Value))
		log.Info().Msg(fmt.Sprintf("        Profile: %s", cfg.Profile.Value))
		log.Info().Msg(fmt.Sprintf("  Config Server: %s - %s", cfg.Config.Source.Value, cfg.Config.Spring.Branch.Value))
		log.Info().Msg(fmt.Sprintf("    Tag Version: %s", cfg.AppVersion.Value))
		log.Info().Msg(fmt.Sprintf("   Sha1 Version: %s", cfg.Sha1Version.Value))
		log.Info().Msg(fmt.Sprintf("     Build Time: %s", cfg.BuildTime.Value))
		log.Info().Msg("=============================================")
	}
}

func configLogging(cfg *config.Config) {
	log.Info().Msg("configuring logging...")

	if !cfg.Log.Structured.Value {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(cfg.Log.Level.Value)
	if err != nil {
		log.Warn().Str("loglevel", cfg.Log.Level.Value).Err(err).Msg("defaulting to info")
		level = zerolog.InfoLevel
	}
	log.Info().Str("loglevel", level.String()).Msg("setting log level")
	zerolog.SetGlobalLevel(level)
}
