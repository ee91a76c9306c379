// Package config loads the on-disk YAML description of a loopcraftd
// launch: the song's length and beat count, and the audio/MIDI devices
// to open at startup, matched by the name PortAudio/rtmididrv report.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultFramesPerBuffer = 256
	defaultOutCapacity     = 256
	maxDevices             = 32
)

// Song describes the loop length and beat count the engine is launched
// with.
type Song struct {
	LengthMillis uint32 `yaml:"length_ms"`
	Beats        uint32 `yaml:"beats"`
}

// AudioDevice names one full-duplex (or one-directional) audio device to
// open: Input/Output are PortAudio device names, either of which may be
// left blank for a one-directional device.
type AudioDevice struct {
	Name            string `yaml:"name"`
	Input           string `yaml:"input"`
	Output          string `yaml:"output"`
	Channels        int    `yaml:"channels"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
}

// MidiDevice names one MIDI input/output port pair to open, either of
// which may be left blank for a one-directional device.
type MidiDevice struct {
	Name        string `yaml:"name"`
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	OutCapacity int    `yaml:"out_capacity"`
}

// Config is the root of a loopcraftd launch file.
type Config struct {
	Song         Song          `yaml:"song"`
	AudioDevices []AudioDevice `yaml:"audio_devices"`
	MidiDevices  []MidiDevice  `yaml:"midi_devices"`
}

// Load reads, parses, and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %q: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.AudioDevices {
		if c.AudioDevices[i].FramesPerBuffer == 0 {
			c.AudioDevices[i].FramesPerBuffer = defaultFramesPerBuffer
		}
	}
	for i := range c.MidiDevices {
		if c.MidiDevices[i].OutCapacity == 0 {
			c.MidiDevices[i].OutCapacity = defaultOutCapacity
		}
	}
}

// Validate checks the shape of the file plus the device-count limit the
// engine itself enforces (§7 "more than 32 devices refused").
func (c *Config) Validate() error {
	if c.Song.LengthMillis == 0 {
		return fmt.Errorf("song.length_ms must be greater than zero")
	}
	if c.Song.Beats == 0 {
		return fmt.Errorf("song.beats must be greater than zero")
	}
	if len(c.AudioDevices) > maxDevices {
		return fmt.Errorf("%d audio devices configured, more than the %d the engine accepts", len(c.AudioDevices), maxDevices)
	}
	if len(c.MidiDevices) > maxDevices {
		return fmt.Errorf("%d midi devices configured, more than the %d the engine accepts", len(c.MidiDevices), maxDevices)
	}
	for i, d := range c.AudioDevices {
		if d.Name == "" {
			return fmt.Errorf("audio_devices[%d]: name is required", i)
		}
		if d.Input == "" && d.Output == "" {
			return fmt.Errorf("audio_devices[%d] %q: at least one of input/output is required", i, d.Name)
		}
		if d.Channels <= 0 {
			return fmt.Errorf("audio_devices[%d] %q: channels must be greater than zero", i, d.Name)
		}
	}
	for i, d := range c.MidiDevices {
		if d.Name == "" {
			return fmt.Errorf("midi_devices[%d]: name is required", i)
		}
		if d.Input == "" && d.Output == "" {
			return fmt.Errorf("midi_devices[%d] %q: at least one of input/output is required", i, d.Name)
		}
	}
	return nil
}
