// Command server is repcore's process entrypoint, adapted from
// core/main.go: load configuration, build the World and its Rules,
// start the UDP server and admin console, then wait for a shutdown
// signal.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"

	"repcore/internal/config"
	"repcore/internal/console"
	"repcore/internal/metrics"
	"repcore/internal/scene"
	"repcore/internal/server"
	"repcore/internal/transport"
	"repcore/pkg/logging"
)

func main() {
	logging.Banner("repcore server", versioninfo.Short())

	cfg, err := config.LoadServerConfig("server.toml")
	if err != nil {
		logging.For("main").WithField("error", err).Warn("using default server config")
		cfg = config.DefaultServerConfig()
	}

	world := scene.NewWorld(transport.NetmodeServer, cfg.TickRate)
	world.AddScene("default", 0)

	rules := newDefaultRules(cfg.MaxPlayers)
	metricsCollector := metrics.New("repcore")

	srv := server.NewServer(cfg.Host, cfg.Port, cfg.MaxPlayers, cfg.TickRate, world, rules)
	srv.Metrics = metricsCollector

	logging.Section("Starting server")
	logging.For("main").WithField("host", cfg.Host).WithField("port", cfg.Port).Info("binding")

	if err := srv.Start(); err != nil {
		logging.For("main").WithField("error", err).Error("server failed to start")
		os.Exit(1)
	}

	go console.New(srv, os.Stdout, cfg.ServerName+"> ").Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logging.For("main").WithField("signal", sig.String()).Info("shutting down")
	srv.Stop()
	time.Sleep(200 * time.Millisecond)
}
