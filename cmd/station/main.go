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
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/feed"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/linelog"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/rylr"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/serialport"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/sink"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/store"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/web"
)

func main() {
	var configPath, summarizePath string
	flag.StringVar(&configPath, "config", "./station.yaml", "Path to YAML config")
	flag.StringVar(&summarizePath, "summarize-log", "", "Print a summary of a capture file and exit")
	flag.Parse()

	if summarizePath != "" {
		if err := printLogSummary(os.Stdout, summarizePath); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

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

	status := web.NewStatus("station")
	logs := web.NewLogBuffer(500)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	sinks := []sink.Sink{sink.NewCSV(os.Stdout, cfg.Station.Display)}
	if cfg.Outputs.UDP.Enable {
		u, err := sink.NewUDP(cfg.Outputs.UDP.Dest)
		if err != nil {
			log.Fatalf("udp sink: %v", err)
		}
		sinks = append(sinks, u)
	}
	if cfg.Outputs.MQTT.Enable {
		m, err := sink.NewMQTT(sink.MQTTConfig{
			Broker:   cfg.Outputs.MQTT.Broker,
			Topic:    cfg.Outputs.MQTT.Topic,
			ClientID: cfg.Outputs.MQTT.ClientID,
		})
		if err != nil {
			log.Fatalf("mqtt sink: %v", err)
		}
		sinks = append(sinks, m)
	}
	multi := sink.NewMulti(sinks...)
	defer multi.Close()

	var history *store.Store
	var webHistory web.History
	if cfg.Outputs.SQLite.Enable {
		st, err := store.Open(cfg.Outputs.SQLite.Path)
		if err != nil {
			log.Fatalf("sqlite store %s: %v", cfg.Outputs.SQLite.Path, err)
		}
		defer st.Close()
		history = st
		webHistory = st
	}

	var capture *linelog.Writer
	if cfg.Station.Capture.Enable {
		capture, err = linelog.CreateWriter(cfg.Station.Capture.Path)
		if err != nil {
			log.Fatalf("capture %s: %v", cfg.Station.Capture.Path, err)
		}
		defer capture.Close()

		// A crash should cost seconds of capture, not the write buffer.
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := capture.Flush(); err != nil {
						log.Printf("station: capture flush: %v", err)
					}
				}
			}
		}()
	}

	live := web.NewLiveFeed()
	h := &lineHandler{
		status:  status,
		out:     os.Stdout,
		sinks:   multi,
		history: history,
		live:    live,
		capture: capture,
		now:     time.Now,
	}

	if cfg.Web.Enable {
		handler := web.Handler(status, logs, live, webHistory)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, handler); err != nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	log.Printf("station starting input=%s", cfg.Station.Input)

	// finished is non-nil only for a bounded replay; closing it ends the
	// process once the capture is exhausted.
	var finished <-chan struct{}

	switch cfg.Station.Input {
	case "serial":
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

		radio, err := feed.NewRadio(modem)
		if err != nil {
			log.Fatalf("radio feed: %v", err)
		}
		if err := radio.Start(ctx, h.handle); err != nil {
			log.Fatalf("radio feed start: %v", err)
		}
		defer radio.Close()

	case "tcp":
		tcpFeed, err := feed.NewTCP(feed.TCPConfig{Addr: cfg.Station.TCPAddr})
		if err != nil {
			log.Fatalf("tcp feed: %v", err)
		}
		if err := tcpFeed.Start(ctx, h.handle); err != nil {
			log.Fatalf("tcp feed start: %v", err)
		}
		defer tcpFeed.Close()

	case "replay":
		rp, err := feed.NewReplay(feed.ReplayConfig{
			Path:  cfg.Station.Replay.Path,
			Speed: cfg.Station.Replay.Speed,
			Loop:  cfg.Station.Replay.Loop,
		})
		if err != nil {
			log.Fatalf("replay feed: %v", err)
		}
		if err := rp.Start(ctx, h.handle); err != nil {
			log.Fatalf("replay feed start: %v", err)
		}
		defer rp.Close()
		if !cfg.Station.Replay.Loop {
			finished = rp.Done()
		}
	}

	select {
	case <-ctx.Done():
	case <-finished:
	}
	log.Printf("station stopping")
}
