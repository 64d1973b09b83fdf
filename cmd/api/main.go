package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/freeds2mqtt/internal/adapter/actor"
	"github.com/berfenger/freeds2mqtt/internal/config"
	"github.com/berfenger/freeds2mqtt/internal/core/actor"
	"github.com/berfenger/freeds2mqtt/internal/server"
	"github.com/berfenger/freeds2mqtt/internal/util/actorutil"
	"github.com/berfenger/freeds2mqtt/pkg/freeds"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func gracefulShutdown(ctx context.Context, apiServer *http.Server) error {
	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
		return err
	}

	log.Println("Server exiting")
	return nil
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// device client
	mode, _ := freeds.ParseMode(cfg.FreeDS.Mode)
	registry := freeds.NewRegistry(freeds.WithLogger(logger.With(zap.String("device", cfg.FreeDS.Device().Identity()))))
	client, release := registry.Acquire(cfg.FreeDS.Device(), freeds.WithMode(mode))
	defer release()

	if err := startupProbe(ctx, client, logger); err != nil {
		logger.Error("startup probe failed", zap.Error(err))
		return
	}

	reboot := freeds.NewRebootGuard(client, cfg.FreeDS.RebootCooldown(), 0, logger)
	defer reboot.Close()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, freedsActorProvider(client, reboot, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := rootCtx.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		return
	}

	apiServer := server.NewServer(*cfg, rootCtx, pid)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := apiServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return gracefulShutdown(gctx, apiServer)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	log.Println("Graceful shutdown complete.")

	rootCtx.Stop(pid)
	as.Shutdown()
}

// startupProbe fails only on bad credentials, an offline device is retried by
// the acquisition loop.
func startupProbe(ctx context.Context, client *freeds.Client, logger *zap.Logger) error {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	result, err := client.Probe(probeCtx)
	switch {
	case freeds.IsAuthError(err):
		return err
	case err != nil:
		logger.Warn("device not reachable at startup", zap.Error(err))
		return nil
	}
	logger.Info("device found",
		zap.String("mode", result.Mode.String()),
		zap.String("version", result.Info.Version),
		zap.String("title", result.Info.Title))
	return nil
}

func initConfig() (*config.Config, error) {

	// alias PORT => FREEDS2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("FREEDS2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("freeds2mqtt")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := config.Normalize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func freedsActorProvider(client *freeds.Client, reboot *freeds.RebootGuard, logger *zap.Logger) actor.FreeDSActorProvider {
	return func(es *eventstream.EventStream) *adactor.FreeDSActor {
		return adactor.NewFreeDSActor(client, reboot, es, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("freeds.host", "")
	viper.SetDefault("freeds.port", 80)
	viper.SetDefault("freeds.username", "")
	viper.SetDefault("freeds.password", "")
	viper.SetDefault("freeds.unique_id", "")
	viper.SetDefault("freeds.name", "")
	viper.SetDefault("freeds.mode", "")
	viper.SetDefault("freeds.reboot_cooldown_millis", 90000)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "freeds")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("mqtt.ha_discovery_refresh_minutes", 30)
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	if cfg.FreeDS.Username != "" {
		cfg.FreeDS.Username = "*redacted*"
	}
	cfg.FreeDS.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
