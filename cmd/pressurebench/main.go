package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"pressurebench/internal/api"
	"pressurebench/internal/config"
	"pressurebench/internal/device"
	"pressurebench/internal/store"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		exitErr(err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(cfg.DataDir)
	dev := device.NewManager(logger.WithField("worker", "device"))
	dev.SetBaud(cfg.Baud)
	app := api.New(st, dev)

	switch {
	case cfg.ListPorts:
		runListPorts(app)
	case cfg.ExportKey != "":
		runExport(app, cfg)
	default:
		runMonitor(ctx, app, dev, cfg, logger)
	}
}

func runListPorts(app *api.API) {
	resp := app.ListPorts()
	if !resp.Success {
		exitErr(errors.New(resp.Error))
	}
	if len(resp.Ports) == 0 {
		fmt.Println("no serial ports with USB metadata found")
		return
	}
	for _, p := range resp.Ports {
		fmt.Println(p.String())
	}
}

func runExport(app *api.API, cfg config.Config) {
	userID, bodyPartID, sessionID, err := config.SplitSessionKey(cfg.ExportKey)
	if err != nil {
		exitErr(err)
	}
	resp := app.ExportSession(userID, bodyPartID, sessionID, cfg.ExportOut)
	if !resp.Success {
		exitErr(errors.New(resp.Error))
	}
	fmt.Println("exported:", resp.Path)
}

func runMonitor(ctx context.Context, app *api.API, dev *device.Manager, cfg config.Config, logger *logrus.Logger) {
	path := cfg.Device
	if path == "" {
		ports := app.ListPorts()
		if !ports.Success || len(ports.Ports) == 0 {
			exitErr(errors.New("no serial device found; pass -device or plug the sensor in"))
		}
		path = ports.Ports[0].Path
	}

	if r := app.Connect(path); !r.Success {
		exitErr(errors.New(r.Error))
	}
	defer func() {
		_ = app.Disconnect()
	}()

	logger.WithField("worker", "main").WithField("port", path).Info("monitor starting")
	if err := runTUI(ctx, app, dev.Updates(), path); err != nil {
		exitErr(err)
	}
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
