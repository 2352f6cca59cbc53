package visualize

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	sampleRate = beep.SampleRate(44100)
	// hitInterval is the shortest gap between two hit sounds.
	hitInterval = 150 * time.Millisecond
)

// HitSound plays a short tone when collisions are resolved. A HitSound that failed to open the
// audio device stays silent.
type HitSound struct {
	mu      sync.Mutex
	open    bool
	limiter *rate.Limiter
	// Volume is the gain in powers of two applied to the tone, 0 for unchanged.
	Volume float64
}

// NewHitSound returns a closed HitSound. Call Open before Play.
func NewHitSound() *HitSound {
	return &HitSound{limiter: rate.NewLimiter(rate.Every(hitInterval), 1), Volume: -2}
}

// Open initializes the speaker.
func (h *HitSound) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return errors.Wrap(err, "cannot open audio device")
	}
	h.open = true
	return nil
}

// Play plays a tone whose pitch rises with the number of resolved pairs. Calls closer together
// than the hit interval are dropped.
func (h *HitSound) Play(resolved int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open || resolved <= 0 || !h.limiter.Allow() {
		return
	}
	tone, err := generators.SineTone(sampleRate, hitFrequency(resolved))
	if err != nil {
		return
	}
	speaker.Play(&effects.Volume{
		Streamer: beep.Take(sampleRate.N(50*time.Millisecond), tone),
		Base:     2,
		Volume:   h.Volume,
	})
}

// Close releases the speaker.
func (h *HitSound) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return
	}
	speaker.Close()
	h.open = false
}

// hitFrequency maps a resolved pair count to a pitch between 440 and 1760 Hz.
func hitFrequency(resolved int) float64 {
	freq := 440 * (1 + float64(resolved)/4)
	if freq > 1760 {
		return 1760
	}
	return freq
}
