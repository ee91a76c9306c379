package engine

import "io"

// Engine ties a Backend to a concrete Driver and runs the destructor
// helper goroutine that frees devices and takes the audio thread has
// handed off, so freeing never happens on the audio thread itself.
type Engine struct {
	Backend  *Backend
	Frontend *Frontend
	driver   Driver

	destructorDone chan struct{}
}

// New constructs an Engine bound to driver, with a song length given in
// milliseconds (converted to frames using the driver's sample rate, per
// §6 Units) and the given beat count.
func New(driver Driver, songLengthMillis, numBeats uint32) *Engine {
	sampleRate := driver.SampleRate()
	songLengthFrames := uint32(float64(songLengthMillis) * sampleRate / 1000.0)

	shared := &SharedState{}
	backend := NewBackend(sampleRate, songLengthFrames, numBeats, shared)

	e := &Engine{
		Backend:        backend,
		Frontend:       NewFrontend(backend),
		driver:         driver,
		destructorDone: make(chan struct{}),
	}
	go e.runDestructor()
	return e
}

// Launch hands the process callback to the driver. It blocks until the
// driver stops (or errors); callers typically run it in its own
// goroutine.
func (e *Engine) Launch() error {
	return e.driver.Activate(e.Backend.Process)
}

// Shutdown emits Kill and stops the destructor helper. The audio thread
// itself is stopped by the driver ceasing to call Activate's callback.
func (e *Engine) Shutdown() {
	e.Backend.emit(Event{Kind: EventKill})
	close(e.destructorDone)
}

// runDestructor drains the destruction-request queue, closing any device
// that exposes an io.Closer and closing every buffer of a deleted take so
// its growth goroutine exits. Go's GC reclaims everything else.
func (e *Engine) runDestructor() {
	for {
		select {
		case <-e.destructorDone:
			return
		case <-e.Backend.destructorWake:
		}
		for {
			req, ok := e.Backend.Destructions.TryPop()
			if !ok {
				break
			}
			switch req.Kind {
			case DestroyAudioDevice:
				closeIfCloser(req.AudioDevice)
			case DestroyMidiDevice:
				closeIfCloser(req.MidiDevice)
			case DestroyAudioTake:
				for _, buf := range req.AudioTake.Channels {
					buf.Close()
				}
			case DestroyMidiTake:
				req.MidiTake.Events.Close()
			}
		}
	}
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok && c != nil {
		c.Close()
	}
}
