package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"piclock/internal/canvas"
	"piclock/internal/clock"
	"piclock/internal/config"
	"piclock/internal/device"
	"piclock/internal/hw"
	appLog "piclock/internal/log"
	"piclock/internal/render"
	"piclock/internal/touch"
	"piclock/internal/web"
)

const dumpDir = "./cache"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	renderOnly bool
	dump       bool
}

func main() {
	appLog.Info("piclock starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"rotation", conf.Rotation,
		"assets_dir", conf.AssetsDir,
		"partial_waveform", conf.Panel.PartialWaveform,
		"touch", conf.Touch.Enabled,
		"once", flags.once,
		"render_only", flags.renderOnly,
		"dump", flags.dump,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("piclock failed", err)
		os.Exit(1)
	}
	appLog.Info("piclock exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	angle, err := canvas.ParseAngle(conf.Rotation)
	if err != nil {
		return err
	}
	if !angle.Swaps() {
		return fmt.Errorf("rotation %d: clock pages are laid out in landscape", conf.Rotation)
	}

	var (
		panel   render.Panel
		scanner device.Scanner
	)
	dump := &render.DumpPanel{Dir: dumpDir, Width: 128, Height: 296}
	if flags.renderOnly {
		panel = dump
	} else {
		board, err := hw.Open(conf)
		if err != nil {
			return err
		}
		defer board.Close()

		panel = board.Panel
		if flags.dump {
			panel = render.Tee(board.Panel, dump)
		}
		if board.Touch != nil {
			if err := board.Touch.Init(); err != nil {
				appLog.Error("touch init failed; continuing without touch", err)
			} else {
				scanner = board.Touch
			}
		}
	}

	dev := device.New(panel, 128, 296, scanner,
		touch.NewClassifier(conf.Touch.DeadZone, conf.Touch.TapTimeout),
		device.Opts{PollInterval: conf.Touch.PollInterval})

	devCtx, stopDev := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dev.Run(devCtx); err != nil {
			appLog.Error("device loop failed", err)
		}
	}()
	// The device loop outlives ctx so the panel can be put to sleep after
	// every other user has stopped.
	defer func() {
		stopDev()
		wg.Wait()
	}()

	var birthday string
	if b := conf.Birthday; b != nil {
		birthday = fmt.Sprintf("%02d%02d", b.Month, b.Day)
	}
	ctrl := clock.NewController(dev, clock.NewLibrary(os.DirFS(conf.AssetsDir)), clock.Opts{
		Angle:            angle,
		Location:         loc,
		Birthday:         birthday,
		FullRefreshEvery: conf.FullRefreshEvery,
	})

	if flags.once {
		return ctrl.Refresh(ctx, true)
	}

	if err := ctrl.Refresh(ctx, true); err != nil {
		appLog.Error("initial redraw failed", err)
	}
	if _, err := clock.Schedule(ctx, conf.RefreshCron, loc, ctrl); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-dev.Events():
				if err := ctrl.HandleEvent(ctx, ev); err != nil {
					appLog.Error("touch redraw failed", err, "event", ev)
				}
			}
		}
	}()

	if conf.Listen == "" {
		<-ctx.Done()
		return nil
	}
	return web.NewServer(conf, dev, ctrl.Refresh).Serve(ctx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/piclock/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Draw one full frame and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render only; write frames to "+dumpDir+" instead of the display")
	flag.BoolVar(&cfg.dump, "dump", false, "Also write every frame to "+dumpDir+" (frame.bin, frame.png)")

	flag.Parse()

	return cfg
}
