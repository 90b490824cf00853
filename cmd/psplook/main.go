//go:build linux

// psplook attaches to a running PSP emulator and steers the in-game camera
// from a local pointer device.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"psplook/camera"
	"psplook/config"
	"psplook/injector"
	"psplook/input"
	"psplook/process/memory_map"
	"psplook/process_linux"

	"github.com/urfave/cli"
)

const usage = `psplook locates the camera structure inside a running PSP emulator's
             guest RAM and injects pointer-device motion into its view angles`

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "psplook"
	app.Usage = usage
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "directory containing psplook.cfg.json",
			Value: ".",
		},
		cli.Float64Flag{
			Name:  "sensitivity",
			Usage: "look sensitivity",
		},
		cli.BoolFlag{
			Name:  "invert-y",
			Usage: "invert vertical look",
		},
		cli.IntFlag{
			Name:  "tick-ms",
			Usage: "injection period in milliseconds",
		},
		cli.IntFlag{
			Name:  "backoff-ms",
			Usage: "delay between discovery attempts in milliseconds",
		},
		cli.StringFlag{
			Name:  "profile, p",
			Usage: "camera profile name",
		},
		cli.StringFlag{
			Name:  "device, d",
			Usage: "evdev device path, or \"auto\"",
		},
		cli.BoolFlag{
			Name:  "grab",
			Usage: "grab the pointer device exclusively while running",
		},
		cli.StringSliceFlag{
			Name:  "process",
			Usage: "emulator process name to look for (repeatable)",
		},
	}
	app.Action = run

	return app
}

func run(c *cli.Context) error {
	if err := config.Load(c.String("config")); err != nil {
		return err
	}
	settings := config.Get()

	// Command-line flags win over the config file.
	if c.IsSet("sensitivity") {
		settings.Sensitivity = c.Float64("sensitivity")
	}
	if c.IsSet("invert-y") {
		settings.InvertY = c.Bool("invert-y")
	}
	if c.IsSet("tick-ms") {
		settings.Tick = time.Duration(c.Int("tick-ms")) * time.Millisecond
	}
	if c.IsSet("backoff-ms") {
		settings.Backoff = time.Duration(c.Int("backoff-ms")) * time.Millisecond
	}
	if c.IsSet("profile") {
		settings.Profile = c.String("profile")
	}
	if c.IsSet("device") {
		settings.Device = c.String("device")
	}
	if c.IsSet("grab") {
		settings.Grab = c.Bool("grab")
	}
	if c.IsSet("process") {
		settings.ProcessNames = c.StringSlice("process")
	}

	profile, err := camera.Builtin(settings.Profile)
	if err != nil {
		return err
	}

	sampler, err := input.OpenEvdev(settings.Device, settings.Grab)
	if err != nil {
		return err
	}
	defer sampler.Close()

	heuristic := memory_map.DefaultGuestHeuristic()
	if len(settings.RegionSizesMB) > 0 {
		heuristic.ExpectedSizes = nil
		for _, mb := range settings.RegionSizesMB {
			heuristic.ExpectedSizes = append(heuristic.ExpectedSizes, uint64(mb)<<20)
		}
	}

	loop, err := injector.New(injector.Options{
		Sensitivity:  settings.Sensitivity,
		InvertY:      settings.InvertY,
		Tick:         settings.Tick,
		Backoff:      settings.Backoff,
		Profiles:     []*camera.Profile{profile},
		ProcessNames: settings.ProcessNames,
		Heuristic:    heuristic,
		Locate:       process_linux.Locate,
		Attach:       process_linux.Open,
	}, sampler)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
