// Command replayctl wires together the ambient and domain components
// around the engine: it loads operator config, sets up structured
// logging, reads a Lua scenario, configures an engine.Context from it,
// and either runs the bubbletea dashboard or replays headlessly.
//
// Argument parsing is deliberately thin: a scenario path and a
// -headless flag are all this entry point understands.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kestrel-net/packetloom/bitmap"
	"github.com/kestrel-net/packetloom/config"
	"github.com/kestrel-net/packetloom/dashboard"
	"github.com/kestrel-net/packetloom/engine"
	"github.com/kestrel-net/packetloom/logging"
	"github.com/kestrel-net/packetloom/scenario"
	"github.com/kestrel-net/packetloom/sender"
	"github.com/kestrel-net/packetloom/types"
)

func main() {
	headless := flag.Bool("headless", false, "replay without the interactive dashboard")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: replayctl [-headless] <scenario.lua>")
		os.Exit(2)
	}
	scenarioPath := flag.Arg(0)

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = "logs"
	}
	baseName := filepath.Base(scenarioPath)
	logPath := filepath.Join(logsDir, strings.TrimSuffix(baseName, filepath.Ext(baseName))+".log")

	log, ring := logging.New(logPath, cfg.LogLines, logrus.InfoLevel)
	defer ring.Close()

	sc, err := scenario.Load(scenarioPath, scenarioDefaults(cfg))
	if err != nil {
		log.Fatalf("loading scenario: %v", err)
	}

	recentDir := cfg.RecentDir
	if recentDir == "" {
		recentDir = "recent"
	}
	if recentPath, err := scenario.SaveToRecent(recentDir, sc); err != nil {
		log.Warnf("saving scenario to recent directory: %v", err)
	} else {
		log.Infof("saved a copy of %s to %s", scenarioPath, recentPath)
	}

	ctx, err := buildContext(sc, log)
	if err != nil {
		log.Fatalf("configuring engine: %v", err)
	}
	defer ctx.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ctx.Replay(-1)
	}()

	if *headless {
		if err := <-errCh; err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		stats := ctx.GetStats()
		fmt.Printf("sent=%d bytes=%d failed=%d skipped=%d\n", stats.PktsSent, stats.BytesSent, stats.Failed, stats.Skipped)
		return
	}

	if err := dashboard.Run(ctx, ring); err != nil {
		log.Fatalf("dashboard: %v", err)
	}
	<-errCh
}

// scenarioDefaults maps the operator-level replay defaults out of cfg
// into the seed Config that scenario.Load maps a scenario's Lua table
// onto, so a scenario omitting interfacea/mtu/accuracy/loop falls back
// to the site's configured defaults instead of scenario.Defaults's
// bare fallback.
func scenarioDefaults(cfg *config.Config) *scenario.Config {
	sc := scenario.Defaults()
	sc.InterfaceA = cfg.DefaultInterfaceA
	sc.InterfaceB = cfg.DefaultInterfaceB
	if cfg.DefaultMTU > 0 {
		sc.MTU = cfg.DefaultMTU
	}
	if cfg.DefaultAccuracy != "" {
		sc.Accuracy = cfg.DefaultAccuracy
	}
	if cfg.DefaultLoop > 0 {
		sc.Loop = cfg.DefaultLoop
	}
	return sc
}

func buildContext(sc *scenario.Config, log *logrus.Logger) (*engine.Context, error) {
	ctx := engine.NewContext()

	if err := ctx.SetLoop(uint32(sc.Loop)); err != nil {
		return nil, err
	}
	if err := ctx.SetMTU(sc.MTU); err != nil {
		return nil, err
	}
	if err := ctx.SetLimitSend(sc.LimitSend); err != nil {
		return nil, err
	}
	if err := ctx.SetFileCache(sc.EnableFileCache); err != nil {
		return nil, err
	}
	if err := ctx.SetUsePktHdrLen(sc.UsePktHdrLen); err != nil {
		return nil, err
	}
	if err := ctx.SetSleepAccel(sc.SleepAccelUs); err != nil {
		return nil, err
	}

	accuracy, err := scenario.ParseAccuracy(sc.Accuracy)
	if err != nil {
		return nil, err
	}
	if err := ctx.SetAccuracy(accuracy); err != nil {
		return nil, err
	}

	speed, err := scenario.ToSpeedMode(sc.Speed)
	if err != nil {
		return nil, err
	}
	if err := ctx.SetSpeedMode(speed); err != nil {
		return nil, err
	}

	openSender := func(name string, dir types.Direction) (sender.Sender, error) {
		return sender.Open(name, dir)
	}

	if err := ctx.SetInterfaceA(sc.InterfaceA, openSender); err != nil {
		return nil, err
	}
	if sc.InterfaceB != "" {
		if err := ctx.SetInterfaceB(sc.InterfaceB, openSender); err != nil {
			return nil, err
		}
	}

	for _, path := range sc.Sources {
		if err := ctx.AddSource(types.SourceSpec{Kind: types.SourceFilename, Filename: path}); err != nil {
			return nil, err
		}
	}

	if sc.BitmapPath != "" {
		f, err := os.Open(sc.BitmapPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		bm, err := bitmap.Load(bufio.NewReader(f))
		if err != nil {
			return nil, err
		}
		if err := ctx.SetBitmap(bm); err != nil {
			return nil, err
		}
	}

	ctx.SetVerboseDump(func(rec types.PacketRecord, iface types.Interface) {
		log.WithFields(logrus.Fields{
			"interface": iface,
			"bytes":     rec.CapturedLength,
		}).Debug("sent packet")
	})

	return ctx, nil
}
