// Package scenario implements Lua-scripted replay scenarios: a
// scenario names its sources, speed mode, interfaces, and bitmap, and
// is read and written via gopher-lua + gluamapper.
package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"

	"github.com/kestrel-net/packetloom/engine"
	"github.com/kestrel-net/packetloom/types"
)

// SpeedConfig mirrors types.SpeedMode in a gluamapper-friendly shape:
// plain strings/numbers a Lua table can hold directly.
type SpeedConfig struct {
	Mode       string
	Multiplier float64
	Mbps       float64
	PPS        float64
	Burst      int
}

// Config is the plain Go shape a scenario Lua file maps onto.
type Config struct {
	Sources         []string
	InterfaceA      string
	InterfaceB      string
	Loop            int
	MTU             int
	LimitSend       int64
	EnableFileCache bool
	UsePktHdrLen    bool
	SleepAccelUs    int64
	Accuracy        string
	Speed           SpeedConfig
	BitmapPath      string
	Comment         string
}

// Load executes a Lua file that returns a scenario table and maps it
// onto a Config via DoFile + gluamapper.Map. defaults seeds the Config
// before mapping, so any field the scenario's table leaves unset picks
// up the operator's site-wide default (see Defaults) rather than
// Load's own bare fallback. A nil defaults is equivalent to Defaults().
func Load(path string, defaults *Config) (*Config, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return nil, types.WrapError(types.ErrorConfig, err, "executing scenario %s", path)
	}

	lv := L.Get(-1)
	table, ok := lv.(*lua.LTable)
	if !ok {
		return nil, types.NewError(types.ErrorConfig, "scenario %s did not return a table", path)
	}

	cfg := defaults
	if cfg == nil {
		cfg = Defaults()
	} else {
		clone := *cfg
		cfg = &clone
	}
	if err := gluamapper.Map(table, cfg); err != nil {
		return nil, types.WrapError(types.ErrorConfig, err, "mapping scenario %s", path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the bare Config fallback used when the caller has
// no operator-level defaults to seed Load with.
func Defaults() *Config {
	return &Config{Loop: 1, MTU: engine.DefaultMTU, LimitSend: -1, Accuracy: "abstime", Speed: SpeedConfig{Mode: "multiplier", Multiplier: 1.0}}
}

// Validate checks the cross-field constraints a raw Config must
// satisfy before it can become engine.Options.
func Validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return types.NewError(types.ErrorConfig, "scenario has no sources")
	}
	if len(cfg.Sources) > types.MaxSources {
		return types.NewError(types.ErrorConfig, "scenario has %d sources, max is %d", len(cfg.Sources), types.MaxSources)
	}
	if cfg.BitmapPath != "" && len(cfg.Sources) != 1 {
		return types.NewError(types.ErrorConfig, "a classification bitmap may only be combined with exactly one source, have %d", len(cfg.Sources))
	}
	if cfg.InterfaceA == "" {
		return types.NewError(types.ErrorConfig, "scenario has no interface A")
	}
	switch cfg.Speed.Mode {
	case "multiplier", "", "mbps", "pps", "topspeed", "oneatatime":
	default:
		return types.NewError(types.ErrorConfig, "unknown speed mode: %q", cfg.Speed.Mode)
	}
	return nil
}

// ParseAccuracy maps a scenario's Accuracy string onto types.Accuracy.
func ParseAccuracy(s string) (types.Accuracy, error) {
	switch s {
	case "abstime", "":
		return types.AccuracyAbsoluteTime, nil
	case "gtod":
		return types.AccuracyGTODSpin, nil
	case "nano":
		return types.AccuracyNanosleep, nil
	case "select":
		return types.AccuracySelectSleep, nil
	case "rdtsc":
		return types.AccuracyRDTSCSpin, nil
	case "ioport":
		return types.AccuracyIOPortSleep, nil
	default:
		return 0, types.NewError(types.ErrorConfig, "unknown timing strategy: %q", s)
	}
}

// ToSpeedMode maps a scenario's SpeedConfig onto types.SpeedMode.
func ToSpeedMode(sc SpeedConfig) (types.SpeedMode, error) {
	switch sc.Mode {
	case "multiplier", "":
		m := sc.Multiplier
		if m == 0 {
			m = 1.0
		}
		return types.SpeedMode{Kind: types.SpeedMultiplier, Multiplier: m}, nil
	case "mbps":
		return types.SpeedMode{Kind: types.SpeedMbps, Mbps: sc.Mbps}, nil
	case "pps":
		burst := sc.Burst
		if burst <= 0 {
			burst = 1
		}
		return types.SpeedMode{Kind: types.SpeedPPS, PPS: sc.PPS, Burst: burst}, nil
	case "topspeed":
		return types.SpeedMode{Kind: types.SpeedTopspeed}, nil
	case "oneatatime":
		return types.SpeedMode{Kind: types.SpeedOneAtATime}, nil
	default:
		return types.SpeedMode{}, types.NewError(types.ErrorConfig, "unknown speed mode: %q", sc.Mode)
	}
}

// Save serializes a Config back to an equivalent Lua script.
func Save(w io.Writer, cfg *Config) error {
	fmt.Fprintln(w, "local scenario = {}")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "scenario.sources = {")
	for _, s := range cfg.Sources {
		fmt.Fprintf(w, "\t%q,\n", s)
	}
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "scenario.interfacea = %q\n", cfg.InterfaceA)
	fmt.Fprintf(w, "scenario.interfaceb = %q\n", cfg.InterfaceB)
	fmt.Fprintf(w, "scenario.loop = %d\n", cfg.Loop)
	fmt.Fprintf(w, "scenario.mtu = %d\n", cfg.MTU)
	fmt.Fprintf(w, "scenario.limitsend = %d\n", cfg.LimitSend)
	fmt.Fprintf(w, "scenario.enablefilecache = %t\n", cfg.EnableFileCache)
	fmt.Fprintf(w, "scenario.usepkthdrlen = %t\n", cfg.UsePktHdrLen)
	fmt.Fprintf(w, "scenario.sleepaccelus = %d\n", cfg.SleepAccelUs)
	fmt.Fprintf(w, "scenario.accuracy = %q\n", cfg.Accuracy)
	fmt.Fprintf(w, "scenario.bitmappath = %q\n", cfg.BitmapPath)
	fmt.Fprintf(w, "scenario.comment = %q\n", cfg.Comment)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "scenario.speed = {")
	fmt.Fprintf(w, "\tmode = %q,\n", cfg.Speed.Mode)
	fmt.Fprintf(w, "\tmultiplier = %g,\n", cfg.Speed.Multiplier)
	fmt.Fprintf(w, "\tmbps = %g,\n", cfg.Speed.Mbps)
	fmt.Fprintf(w, "\tpps = %g,\n", cfg.Speed.PPS)
	fmt.Fprintf(w, "\tburst = %d,\n", cfg.Speed.Burst)
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "return scenario")
	return nil
}

// SaveToRecent writes cfg into dir as an auto-numbered scenario_N.lua,
// creating dir if needed, and returns the path written. Called after a
// successful Load so an operator has a Lua copy of whatever scenario
// last ran, independent of whether the original file is later edited.
func SaveToRecent(dir string, cfg *Config) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", types.WrapError(types.ErrorResource, err, "creating recent-scenario directory %s", dir)
	}

	counter := 1
	var path string
	for {
		path = filepath.Join(dir, fmt.Sprintf("scenario_%d.lua", counter))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		counter++
	}

	f, err := os.Create(path)
	if err != nil {
		return "", types.WrapError(types.ErrorResource, err, "creating %s", path)
	}
	defer f.Close()

	if err := Save(f, cfg); err != nil {
		return "", err
	}
	return path, nil
}
