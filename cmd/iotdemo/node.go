package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/iotdemo-core/internal/api"
	"github.com/nerrad567/iotdemo-core/internal/inference"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/logging"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/mqtt5"
	"github.com/nerrad567/iotdemo-core/internal/network"
	"github.com/nerrad567/iotdemo-core/internal/supervisor"
	"github.com/nerrad567/iotdemo-core/internal/timesync"
)

func newNodeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "node",
		Short: "Run inference and publish results while supervising link and broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runNode(cmd.Context(), cfg, log)
		},
	}
}

// brokerClient is what the node needs from either MQTT client.
type brokerClient interface {
	supervisor.Broker
	inference.Publisher
	SetOnConnect(callback func(sessionPresent bool))
	SetOnDisconnect(callback func(err error))
	ClientID() string
	Close() error
}

func newBrokerClient(cfg *config.Config, log *logging.Logger) brokerClient {
	if cfg.MQTT.Protocol == "5" {
		c := mqtt5.New(cfg.MQTT, cfg.Node.Board)
		c.SetLogger(log)
		return c
	}
	c := mqtt.New(cfg.MQTT, cfg.Node.Board)
	c.SetLogger(log)
	return c
}

// newRunner builds the inference runner. pub and gate are nil when the
// node runs without MQTT.
func newRunner(cfg *config.Config, log *logging.Logger, pub inference.Publisher, gate inference.Gate, clock inference.Clock) (*inference.Runner, error) {
	var ds *inference.Dataset
	if cfg.Inference.Dataset != "" {
		loaded, err := inference.LoadDataset(cfg.Inference.Dataset)
		if err != nil {
			return nil, fmt.Errorf("loading dataset: %w", err)
		}
		ds = loaded
	}

	predictor, err := inference.NewPredictor(cfg.Inference.Model, ds)
	if err != nil {
		return nil, fmt.Errorf("creating predictor: %w", err)
	}

	opts := inference.RunnerOptions{
		Board:       cfg.Node.Board,
		Predictor:   predictor,
		Dataset:     ds,
		Publisher:   pub,
		Gate:        gate,
		Clock:       clock,
		Logger:      log.Component("inference"),
		Iterations:  cfg.Inference.Iterations,
		Interval:    cfg.Inference.Interval,
		SampleDelay: cfg.Inference.SampleDelay,
		QoS:         byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0..2
		Retain:      cfg.MQTT.Retain,
	}
	return inference.NewRunner(opts)
}

func runNode(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	log = log.With("board", cfg.Node.Board)

	clock := timesync.New(cfg.NTP.Server, cfg.NTP.Timeout, log.Component("timesync"))

	if !cfg.Node.UseMQTT {
		log.Info("MQTT disabled, running inference locally")
		clock.SyncInBackground(ctx)
		runner, err := newRunner(cfg, log, nil, nil, clock)
		if err != nil {
			return err
		}
		return runner.Run(ctx)
	}

	link := network.New(network.Config{
		ProbeTarget:  cfg.Network.ProbeTarget,
		ProbeTimeout: cfg.Network.ProbeTimeout,
		PollInterval: cfg.Network.PollInterval,
	}, log.Component("link"))
	broker := newBrokerClient(cfg, log.Component("mqtt"))

	sup, err := supervisor.New(supervisor.Options{
		Link:                 link,
		Broker:               broker,
		Logger:               log.Component("supervisor"),
		LinkIdentity:         cfg.Network.Identity,
		LinkSecret:           cfg.Network.Secret,
		BrokerUser:           cfg.MQTT.Auth.Username,
		BrokerSecret:         cfg.MQTT.Auth.Password,
		LinkReconnectDelay:   cfg.Supervisor.LinkReconnectDelay,
		BrokerReconnectDelay: cfg.Supervisor.BrokerReconnectDelay,
	})
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}

	link.SetOnConnect(func() {
		sup.OnLinkEvent(supervisor.LinkConnected)
		clock.SyncInBackground(ctx)
	})
	link.SetOnDisconnect(func(err error) {
		log.Debug("link event", "error", err)
		sup.OnLinkEvent(supervisor.LinkDisconnected)
	})
	broker.SetOnConnect(func(sessionPresent bool) {
		sup.OnBrokerEvent(supervisor.BrokerEvent{Kind: supervisor.BrokerConnected, SessionPresent: sessionPresent})
	})
	broker.SetOnDisconnect(func(err error) {
		sup.OnBrokerEvent(supervisor.BrokerEvent{Kind: supervisor.BrokerDisconnected, Reason: err})
	})

	runner, err := newRunner(cfg, log, broker, sup, clock)
	if err != nil {
		return err
	}

	// Start the API
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:       cfg.API,
			WS:           cfg.WebSocket,
			Logger:       log.Component("api"),
			Version:      version,
			Connectivity: sup,
			Link:         link,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		sup.SetOnChange(func(st supervisor.State) {
			server.Hub().Broadcast(api.EventConnectivity, st)
		})
	}

	log.Info("node starting",
		"client_id", broker.ClientID(),
		"broker", cfg.MQTT.BrokerAddress(),
		"protocol", cfg.MQTT.Protocol,
		"topic", runner.Topic(),
	)
	sup.Start()

	// Deferred in reverse: timers first so the disconnects below do not
	// schedule new attempts.
	defer func() {
		log.Info("disconnecting from network link")
		link.Disconnect()
	}()
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := broker.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	defer sup.Stop()

	err = runner.Run(ctx)
	log.Info("shutdown signal received, cleaning up")
	return err
}
