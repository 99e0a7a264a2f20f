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
	"syscall"
	"time"

	adactor "icomm2mqtt/internal/adapter/actor"
	"icomm2mqtt/internal/config"
	"icomm2mqtt/internal/core/actor"
	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/server"
	"icomm2mqtt/internal/util/actorutil"
	"icomm2mqtt/pkg/icomm"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, cloudActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	// periodic poll timer
	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()
	sched, err := startPollScheduler(schedCtx, cfg, ctx, pid)
	if err != nil {
		panic(fmt.Sprintf("poll scheduler error: %s", err))
	}
	defer sched.Stop()

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func startPollScheduler(ctx context.Context, cfg *config.Config, actorCtx *pactor.RootContext, masterActor *pactor.PID) (quartz.Scheduler, error) {
	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	pollJob := job.NewFunctionJob(func(_ context.Context) (int, error) {
		actorCtx.Send(masterActor, domain.RefreshRequest{})
		return 0, nil
	})
	interval := time.Duration(cfg.Poll.IntervalSeconds) * time.Second
	if err := sched.ScheduleJob(quartz.NewJobDetail(pollJob, quartz.NewJobKey("poll")), quartz.NewSimpleTrigger(interval)); err != nil {
		return nil, err
	}
	return sched, nil
}

func initConfig() (*config.Config, error) {

	// alias PORT => ICOMM_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("ICOMM_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("icomm")
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

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Poll.IntervalSeconds < 10 {
		return nil, errors.New("config param poll.interval_seconds should be >= 10")
	}
	if cfg.Cloud.TimeoutSeconds < 1 {
		return nil, errors.New("config param cloud.timeout_seconds should be >= 1")
	}
	if !cfg.Account.HasCredentials() {
		slog.Warn("account.email / account.password not set, polling will be disabled")
	}

	return &cfg, nil
}

func cloudActorProvider(cfg *config.Config, logger *zap.Logger) actor.CloudActorProvider {
	client := icomm.NewClient(cfg.Cloud.BaseURL, cfg.Account.Brand,
		time.Duration(cfg.Cloud.TimeoutSeconds)*time.Second, logger)
	return func() *adactor.CloudActor {
		return adactor.NewCloudActor(cfg, client, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("account.brand", icomm.DefaultBrand)
	viper.SetDefault("cloud.base_url", icomm.DefaultBaseURL)
	viper.SetDefault("cloud.timeout_seconds", 15)
	viper.SetDefault("cloud.retry_delay_millis", 3000)
	viper.SetDefault("cloud.force_device_update", false)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "icomm2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("poll.interval_seconds", 30)
	viper.SetDefault("poll.pending_repoll_seconds", 5)
	viper.SetDefault("poll.post_command_repoll_seconds", 2)
	viper.SetDefault("poll.temperature_unit", "F")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.Account.Password = "*redacted*"
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
