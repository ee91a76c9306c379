// Command loopcraftd is the loop-recorder daemon: it loads a song/device
// configuration, opens the configured audio and MIDI devices against real
// hardware, launches the engine against them, and logs lifecycle and take
// events until it receives a termination signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/loopcraft/loopcraft/pkg/config"
	"github.com/loopcraft/loopcraft/pkg/driver"
	"github.com/loopcraft/loopcraft/pkg/engine"
)

func main() {
	if err := run(); err != nil {
		log.Error("loopcraftd exiting", "err", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = pflag.StringP("config", "c", "loopcraft.yaml", "Path to the YAML configuration file.")
		songLengthMs = pflag.Uint32P("song-length-ms", "l", 0, "Override the configured song length, in milliseconds.")
		beats        = pflag.Uint32P("beats", "b", 0, "Override the configured beat count.")
		logLevel     = pflag.StringP("log-level", "v", "info", "Log level: debug, info, warn, error.")
	)
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "loopcraftd: a real-time audio/MIDI loop recorder engine")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", *logLevel, err)
	}
	log.SetLevel(level)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *songLengthMs != 0 {
		cfg.Song.LengthMillis = *songLengthMs
	}
	if *beats != 0 {
		cfg.Song.Beats = *beats
	}

	if err := driver.Init(); err != nil {
		return fmt.Errorf("initialize driver backends: %w", err)
	}
	defer func() {
		if err := driver.Terminate(); err != nil {
			log.Error("terminate driver backends", "err", err)
		}
	}()

	if len(cfg.AudioDevices) == 0 {
		return fmt.Errorf("config must list at least one audio device")
	}

	primary := cfg.AudioDevices[0]
	primaryDev, sampleRate, err := driver.OpenNamed(primary.Name, primary.Input, primary.Output, primary.Channels, primary.FramesPerBuffer)
	if err != nil {
		return fmt.Errorf("open audio device %q: %w", primary.Name, err)
	}
	log.Info("audio device opened", "name", primary.Name, "channels", primary.Channels, "sample_rate", sampleRate)

	audioDriver := driver.NewDriver(sampleRate, primaryDev)
	eng := engine.New(audioDriver, cfg.Song.LengthMillis, cfg.Song.Beats)
	log.Info("engine constructed", "song_length_ms", cfg.Song.LengthMillis, "beats", cfg.Song.Beats)

	if _, ok := eng.Frontend.UpdateAudioDevice(0, primaryDev); !ok {
		return fmt.Errorf("install primary audio device: command queue full")
	}

	for i, c := range cfg.AudioDevices[1:] {
		dev, _, err := driver.OpenNamed(c.Name, c.Input, c.Output, c.Channels, c.FramesPerBuffer)
		if err != nil {
			return fmt.Errorf("open audio device %q: %w", c.Name, err)
		}
		if _, ok := eng.Frontend.UpdateAudioDevice(i+1, dev); !ok {
			return fmt.Errorf("install audio device %q: command queue full", c.Name)
		}
		log.Info("audio device opened", "name", c.Name, "channels", c.Channels)
	}

	for i, c := range cfg.MidiDevices {
		dev, err := driver.OpenMidiNamed(c.Name, c.Input, c.Output, c.OutCapacity)
		if err != nil {
			return fmt.Errorf("open midi device %q: %w", c.Name, err)
		}
		if _, ok := eng.Frontend.UpdateMidiDevice(i, dev); !ok {
			return fmt.Errorf("install midi device %q: command queue full", c.Name)
		}
		log.Info("midi device opened", "name", c.Name)
	}

	go logEvents(eng)

	launchErr := make(chan error, 1)
	go func() { launchErr <- eng.Launch() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-launchErr:
		return fmt.Errorf("driver stopped: %w", err)
	case s := <-sig:
		log.Info("shutting down", "signal", s)
		eng.Shutdown()
		audioDriver.Stop()
		return <-launchErr
	}
}

// logEvents drains the engine's event queue and logs lifecycle-relevant
// transitions. It runs on its own goroutine, off the audio thread, since
// the audio thread itself never logs (SPEC_FULL.md §6).
func logEvents(eng *engine.Engine) {
	events := eng.Frontend.Events()
	for {
		ev, ok := events.TryPop()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		switch ev.Kind {
		case engine.EventAudioTakeStateChanged:
			log.Info("audio take state changed", "take_id", ev.TakeID, "state", ev.State, "length", ev.Length)
		case engine.EventMidiTakeStateChanged:
			log.Info("midi take state changed", "take_id", ev.TakeID, "state", ev.State, "length", ev.Length)
		case engine.EventKill:
			log.Info("engine shut down")
			return
		}
	}
}
