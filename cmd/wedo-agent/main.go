package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/agent"
	"github.com/dnbeesley/wedo-agent/internal/blocks"
	"github.com/dnbeesley/wedo-agent/internal/config"
	"github.com/dnbeesley/wedo-agent/internal/relay"
	"github.com/dnbeesley/wedo-agent/internal/transport"
)

func main() {
	var configFile string
	var envFile string
	flag.StringVar(&configFile, "config", "config/wedo-agent.yml", "config file path")
	flag.StringVar(&envFile, "env", ".env", "dotenv file path")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := config.LoadDotEnv(envFile); err != nil {
		log.Fatal().Err(err).Str("file", envFile).Msg("Could not load env file")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts = blocks.Options{
		OnState: func(s blocks.State) {
			log.Info().Str("state", s.String()).Msg("Hub connection changed")
		},
	}

	if cfg.NATS.URL != "" {
		nc, err := relay.Connect(cfg.NATS.URL, cfg.NATS.Name, cfg.NATS.ReconnectInterval, cfg.NATS.MaxReconnects)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not connect to NATS")
		}
		defer nc.Close()

		var r = relay.New(nc, cfg.NATS.SubjectPrefix)
		opts.OnSensor = r.Sensor
		opts.OnState = func(s blocks.State) {
			log.Info().Str("state", s.String()).Msg("Hub connection changed")
			r.State(s)
		}
		log.Info().Str("url", cfg.NATS.URL).Msg("Relaying telemetry to NATS")
	}

	log.Info().Str("url", cfg.Broker.URL).Msg("Opening connection to STOMP server")
	broker, err := transport.DialStomp(ctx, cfg.Broker.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not reach broker")
	}
	defer broker.Close()
	broker.WriteTimeout = cfg.Broker.WriteTimeout

	if err = broker.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Could not connect to broker")
	}

	go func() {
		if err := broker.Listen(ctx); err != nil {
			log.Error().Err(err).Msg("Broker connection ended")
			cancel()
		}
	}()

	var ext = blocks.NewExtension(hubDialer(cfg.Hub, cfg.Broker.WriteTimeout), opts)
	var registry = ext.Registry()
	var a = agent.New(registry, broker, cfg.Broker.ResponseTopic)
	if err = a.PublishCatalog(cfg.Broker.InfoTopic); err != nil {
		log.Warn().Err(err).Msg("Could not publish block catalog")
	}

	log.Info().Str("transport", cfg.Hub.Transport).Msg("Connecting to hub")
	ext.Connect(ctx)

	log.Info().Str("topic", cfg.Broker.BlockTopic).Msg("Subscribing to block requests")
	requests, _, err := broker.Subscribe(cfg.Broker.BlockTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not subscribe to block requests")
	}

	go func() {
		if err := a.Run(ctx, requests); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Block request loop stopped")
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case <-ctx.Done():
	}

	if session, ok := ext.Session(); ok {
		session.StopAll()
	}
	ext.Disconnect()
	cancel()

	log.Info().Msg("Agent stopped")
}

// hubDialer picks the hub transport named by the config. Each attempt is
// bounded by the connect timeout.
func hubDialer(c config.HubConfig, writeTimeout time.Duration) blocks.Dialer {
	if c.Transport == config.TransportSerial {
		var d = transport.SerialDialer{Name: c.Serial.Port, Baud: c.Serial.Baud}
		return blocks.DialFunc(func(ctx context.Context) (blocks.Link, error) {
			ctx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
			defer cancel()

			sh, err := d.Dial(ctx)
			if err != nil {
				return nil, err
			}
			return sh, nil
		})
	}

	var d = transport.StompDialer{
		URL:          c.URL,
		CommandDest:  c.CommandTopic,
		EventDest:    c.EventTopic,
		WriteTimeout: writeTimeout,
	}
	return blocks.DialFunc(func(ctx context.Context) (blocks.Link, error) {
		ctx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
		defer cancel()

		h, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
}
