package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/config"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/gnss"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/rylr"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/serialport"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./tracker.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("config load failed: %v", err)
		}
		log.Printf("config %s not found, using defaults", configPath)
		cfg = config.Default()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status := web.NewStatus("tracker")
	logs := web.NewLogBuffer(500)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	if cfg.Radio.ResetLine != "" {
		if err := rylr.Reset(cfg.Radio.ResetLine); err != nil {
			log.Fatalf("modem reset failed: %v", err)
		}
	}

	port, err := serialport.Open(cfg.Radio.Device, cfg.Radio.Baud)
	if err != nil {
		log.Fatalf("radio port %s: %v", cfg.Radio.Device, err)
	}
	defer port.Close()

	modem := rylr.New(port, rylr.Config{
		Address:         cfg.Radio.Address,
		Peer:            cfg.Radio.Peer,
		NetworkID:       cfg.Radio.NetworkID,
		BandHz:          cfg.Radio.BandHz,
		SpreadingFactor: cfg.Radio.SpreadingFactor,
		Bandwidth:       cfg.Radio.Bandwidth,
		CodingRate:      cfg.Radio.CodingRate,
		Preamble:        cfg.Radio.Preamble,
		PowerDbm:        cfg.Radio.PowerDbm,
		SettleDelay:     cfg.Radio.SettleDelay,
		ResponseTimeout: cfg.Radio.ResponseTimeout,
	})

	confCtx, confCancel := context.WithTimeout(ctx, 30*time.Second)
	err = modem.Configure(confCtx)
	confCancel()
	if err != nil {
		log.Fatalf("modem configure failed: %v", err)
	}

	// Anything the modem says outside a command exchange is diagnostics
	// on this side of the link.
	go func() {
		for line := range modem.Lines() {
			log.Printf("rylr: %s", line)
		}
	}()

	gnssSvc := gnss.New(gnss.Config{
		Source:  cfg.GNSS.Source,
		Device:  cfg.GNSS.Device,
		Baud:    cfg.GNSS.Baud,
		I2CBus:  cfg.GNSS.I2CBus,
		I2CAddr: cfg.GNSS.I2CAddr,
		Sim:     cfg.GNSS.Sim,
	})
	if err := gnssSvc.Start(ctx); err != nil {
		log.Fatalf("gnss start failed: %v", err)
	}
	defer gnssSvc.Close()

	if cfg.Web.Enable {
		handler := web.Handler(status, logs, nil, nil)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, handler); err != nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	log.Printf("tracker starting addr=%d peer=%d band=%d interval=%s",
		cfg.Radio.Address, cfg.Radio.Peer, cfg.Radio.BandHz, cfg.GNSS.SampleInterval)

	start := time.Now()
	ticker := time.NewTicker(cfg.GNSS.SampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("tracker stopping")
			return
		case <-ticker.C:
			runCycle(status, gnssSvc, modem, uptimeMs(start))
			status.SetComponents(map[string]any{
				"gnss":  gnssSvc.Snapshot(),
				"modem": modem.Snapshot(),
			})
		}
	}
}
