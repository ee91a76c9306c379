package driver

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/loopcraft/loopcraft/pkg/engine"
)

// scope is the concrete engine.Scope a PortAudio callback hands the
// engine: one process cycle's frame count.
type scope struct{ frames int }

func (s scope) NumFrames() int { return s.frames }

// AudioDevice is a PortAudio-backed engine.AudioDevice: one full-duplex
// stream, de-interleaved into per-channel capture/playback buffers each
// callback, grounded on the rayboyd-audio-engine reference's
// StreamParameters/OpenStream shape (extended here to a two-way stream
// since the engine both records and plays back).
type AudioDevice struct {
	name            string
	channels        int
	captureLatency  uint32
	playbackLatency uint32

	stream *portaudio.Stream

	capture  [][]float32
	playback [][]float32

	process func(engine.Scope)
}

// Open opens one full-duplex PortAudio stream spanning in and out
// (either may be nil for a capture-only or playback-only device) with
// the given channel count and frames-per-buffer. The stream is opened
// but not started; Driver.Activate starts it once the engine has
// installed its process callback.
func Open(name string, in, out *portaudio.DeviceInfo, channels, framesPerBuffer int, sampleRate float64) (*AudioDevice, error) {
	d := &AudioDevice{
		name:     name,
		channels: channels,
		capture:  make([][]float32, channels),
		playback: make([][]float32, channels),
	}
	for ch := range d.capture {
		d.capture[ch] = make([]float32, framesPerBuffer)
		d.playback[ch] = make([]float32, framesPerBuffer)
	}

	params := portaudio.StreamParameters{
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}
	if in != nil {
		params.Input = portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: channels,
			Latency:  in.DefaultLowInputLatency,
		}
		d.captureLatency = uint32(in.DefaultLowInputLatency.Seconds() * sampleRate)
	}
	if out != nil {
		params.Output = portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: channels,
			Latency:  out.DefaultLowOutputLatency,
		}
		d.playbackLatency = uint32(out.DefaultLowOutputLatency.Seconds() * sampleRate)
	}

	stream, err := portaudio.OpenStream(params, d.callback)
	if err != nil {
		return nil, fmt.Errorf("open portaudio stream %q: %w", name, err)
	}
	d.stream = stream
	return d, nil
}

// callback de-interleaves in into d.capture, runs one engine process
// cycle against the now-current capture/playback buffers, then
// re-interleaves d.playback into out. It never allocates: every buffer it
// touches was sized once in Open.
func (d *AudioDevice) callback(in, out []float32) {
	n := len(out) / d.channels
	if d.channels > 0 && len(in) > 0 {
		n = len(in) / d.channels
	}
	for ch := 0; ch < d.channels; ch++ {
		for i := 0; i < n; i++ {
			d.capture[ch][i] = in[i*d.channels+ch]
		}
	}

	if d.process != nil {
		d.process(scope{frames: n})
	}

	for ch := 0; ch < d.channels; ch++ {
		for i := 0; i < n; i++ {
			out[i*d.channels+ch] = d.playback[ch][i]
		}
	}
}

func (d *AudioDevice) Info() engine.AudioDeviceInfo {
	return engine.AudioDeviceInfo{
		Name:            d.name,
		NumChannels:     d.channels,
		CaptureLatency:  d.captureLatency,
		PlaybackLatency: d.playbackLatency,
	}
}

func (d *AudioDevice) Buffers(engine.Scope) (capture, playback [][]float32) {
	return d.capture, d.playback
}

// Close stops and closes the underlying stream. The destructor helper
// (pkg/engine's Engine.runDestructor) calls this once the backend has
// handed the device off, through the io.Closer it type-asserts for.
func (d *AudioDevice) Close() error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("stop portaudio stream %q: %w", d.name, err)
	}
	return d.stream.Close()
}

// OpenNamed resolves inputName/outputName (either may be empty for a
// one-directional device) to PortAudio devices via FindAudioDevice and
// opens a duplex AudioDevice through Open, reporting the sample rate it
// resolved (the input device's default, falling back to the output
// device's, or 44100 if neither is present).
func OpenNamed(name, inputName, outputName string, channels, framesPerBuffer int) (*AudioDevice, float64, error) {
	var in, out *portaudio.DeviceInfo
	var err error
	if inputName != "" {
		if in, err = FindAudioDevice(inputName); err != nil {
			return nil, 0, err
		}
	}
	if outputName != "" {
		if out, err = FindAudioDevice(outputName); err != nil {
			return nil, 0, err
		}
	}

	sampleRate := 44100.0
	switch {
	case in != nil:
		sampleRate = in.DefaultSampleRate
	case out != nil:
		sampleRate = out.DefaultSampleRate
	}

	dev, err := Open(name, in, out, channels, framesPerBuffer, sampleRate)
	if err != nil {
		return nil, 0, err
	}
	return dev, sampleRate, nil
}

// Driver is the concrete engine.Driver backed by one AudioDevice's
// PortAudio stream: Activate installs the engine's process callback on
// the device and starts the stream, which then calls back once per
// hardware buffer for the lifetime of the program.
type Driver struct {
	sampleRate float64
	Device     *AudioDevice
	stopped    chan error
}

// NewDriver wires device as the audio thread's driver.
func NewDriver(sampleRate float64, device *AudioDevice) *Driver {
	return &Driver{sampleRate: sampleRate, Device: device, stopped: make(chan error, 1)}
}

func (d *Driver) SampleRate() float64 { return d.sampleRate }

// Activate installs process on the device, starts the stream, and blocks
// until Stop is called. An error from starting the stream is returned at
// once; errors the stream hits after it has started are not reported here.
func (d *Driver) Activate(process func(engine.Scope)) error {
	d.Device.process = process
	if err := d.Device.stream.Start(); err != nil {
		return fmt.Errorf("start portaudio stream %q: %w", d.Device.name, err)
	}
	return <-d.stopped
}

// Stop ends Activate's block. It does not stop the PortAudio stream, which
// keeps invoking the process callback until AudioDevice.Close stops it.
func (d *Driver) Stop() {
	select {
	case d.stopped <- nil:
	default:
	}
}
