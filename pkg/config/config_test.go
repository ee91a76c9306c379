package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loopcraft/loopcraft/pkg/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loopcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
song:
  length_ms: 4000
  beats: 8
audio_devices:
  - name: interface
    input: "Scarlett 2i2"
    output: "Scarlett 2i2"
    channels: 2
midi_devices:
  - name: keys
    input: "USB MIDI Keyboard"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, uint32(4000), cfg.Song.LengthMillis)
	require.Equal(t, uint32(8), cfg.Song.Beats)
	require.Equal(t, 256, cfg.AudioDevices[0].FramesPerBuffer, "frames_per_buffer defaults when omitted")
	require.Equal(t, 256, cfg.MidiDevices[0].OutCapacity, "out_capacity defaults when omitted")
}

func TestLoadRejectsZeroSongLength(t *testing.T) {
	path := writeConfig(t, `
song:
  beats: 4
audio_devices:
  - name: interface
    input: "Scarlett 2i2"
    channels: 2
`)

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsDeviceWithNeitherInputNorOutput(t *testing.T) {
	path := writeConfig(t, `
song:
  length_ms: 4000
  beats: 8
audio_devices:
  - name: interface
    channels: 2
`)

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsTooManyDevices(t *testing.T) {
	body := "song:\n  length_ms: 4000\n  beats: 8\naudio_devices:\n"
	for i := 0; i < 33; i++ {
		body += "  - name: dev\n    input: in\n    channels: 2\n"
	}
	path := writeConfig(t, body)

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
