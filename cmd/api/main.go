package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fortiban/fortiban/internal/api/routes"
	"github.com/fortiban/fortiban/internal/auth"
	"github.com/fortiban/fortiban/internal/blocklist"
	"github.com/fortiban/fortiban/internal/config"
	"github.com/fortiban/fortiban/internal/fortigate"
	"github.com/fortiban/fortiban/internal/logger"
	"github.com/fortiban/fortiban/internal/metrics"
	"github.com/fortiban/fortiban/internal/notify"
	"github.com/fortiban/fortiban/internal/server"
	"github.com/fortiban/fortiban/internal/services"
	"github.com/fortiban/fortiban/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	// Log to both stdout and a rotating file
	logger.Init(cfg.Debug, logger.RotatingWriter(cfg.LogDir))
	log := logger.Log()
	log.WithField("version", version.Full()).Infof("starting %s", version.Name)

	registry, err := auth.Load(cfg.CredentialsFile)
	if err != nil {
		log.WithError(err).WithField("file", cfg.CredentialsFile).Fatal("load credentials")
	}
	log.WithField("principals", registry.Len()).Info("credentials loaded")

	if cfg.FortiGate.SkipTLSVerify {
		log.Warn("firewall TLS certificate verification is disabled")
	}
	firewall := fortigate.NewClient(fortigate.Options{
		Host:          cfg.FortiGate.Host,
		VDOM:          cfg.FortiGate.VDOM,
		AccessToken:   cfg.FortiGate.AccessToken,
		SkipTLSVerify: cfg.FortiGate.SkipTLSVerify,
		Timeout:       cfg.FortiGate.Timeout,
	})

	store := blocklist.New(blocklist.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		ListDB:   cfg.Redis.ListDB,
	})
	defer store.Close()

	notifier := notify.New(cfg.NotifyURLs, cfg.Location)
	defer notifier.Wait()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(promReg)

	probe := services.NewProbeService(map[string]services.Pinger{
		"fortigate": firewall,
		"redis":     store,
	}, cfg.FortiGate.Timeout)
	if err := probe.Start(cfg.ProbeSchedule); err != nil {
		log.WithError(err).WithField("schedule", cfg.ProbeSchedule).Fatal("schedule upstream probe")
	}
	defer probe.Stop()

	srv := server.New(cfg, routes.Deps{
		Registry:  registry,
		Banner:    services.NewBanService(firewall, cfg.FortiGate.AddressGroup, notifier),
		Blocklist: services.NewBlocklistService(store, notifier),
		Probe:     probe,
		Location:  cfg.Location,
		Gatherer:  promReg,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server error")
		return
	}
	log.Info("shutdown complete")
}
