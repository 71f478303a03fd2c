//go:build !rp2040 && !rp2350

package platform

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"turret-go/errcode"
	"turret-go/x/timex"
)

// pcmQueue holds at most two queued buffers and reports each one as it is
// consumed.
type pcmQueue struct {
	mu        sync.Mutex
	running   bool
	done      func()
	cur, next []byte
	pos       int
}

func (q *pcmQueue) start(done func()) {
	q.mu.Lock()
	q.running = true
	q.done = done
	q.cur, q.next, q.pos = nil, nil, 0
	q.mu.Unlock()
}

func (q *pcmQueue) push(buf []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case !q.running:
		return errcode.Uninitialized
	case q.cur == nil:
		q.cur, q.pos = buf, 0
	case q.next == nil:
		q.next = buf
	default:
		return errcode.Busy
	}
	return nil
}

func (q *pcmQueue) stop() {
	q.mu.Lock()
	q.running = false
	q.cur, q.next = nil, nil
	q.mu.Unlock()
}

// take pops one sample. ok is false when nothing is queued.
func (q *pcmQueue) take() (s byte, ok bool) {
	q.mu.Lock()
	if q.cur == nil {
		q.mu.Unlock()
		return 0x80, false
	}
	s = q.cur[q.pos]
	q.pos++
	var done func()
	if q.pos == len(q.cur) {
		q.cur, q.next, q.pos = q.next, nil, 0
		done = q.done
	}
	q.mu.Unlock()
	if done != nil {
		done()
	}
	return s, true
}

// SpeakerOutput plays through the host sound card.
type SpeakerOutput struct {
	q    pcmQueue
	once sync.Once
	err  error
	rate beep.SampleRate
}

func NewSpeakerOutput() *SpeakerOutput { return &SpeakerOutput{} }

func (o *SpeakerOutput) Start(rateHz uint32, done func()) error {
	o.once.Do(func() {
		o.rate = beep.SampleRate(rateHz)
		o.err = speaker.Init(o.rate, o.rate.N(time.Second/20))
	})
	if o.err != nil {
		return &errcode.E{C: errcode.Error, Op: "speaker.init", Err: o.err}
	}
	o.q.start(done)
	speaker.Play(beep.StreamerFunc(o.stream))
	return nil
}

func (o *SpeakerOutput) Play(buf []byte) error { return o.q.push(buf) }

func (o *SpeakerOutput) Stop() error {
	o.q.stop()
	speaker.Clear()
	return nil
}

// stream converts queued u8 samples, padding underruns with silence.
func (o *SpeakerOutput) stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		s, _ := o.q.take()
		v := float64(int(s)-128) / 128
		samples[i] = [2]float64{v, v}
	}
	return len(samples), true
}

// SilentOutput consumes each buffer in real time without making a sound.
type SilentOutput struct {
	mu        sync.Mutex
	rate      uint32
	done      func()
	gen       int
	queued    int
	busyUntil time.Time
}

func (o *SilentOutput) Start(rateHz uint32, done func()) error {
	if rateHz == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "audio.start", Msg: "rate"}
	}
	o.mu.Lock()
	o.rate, o.done = rateHz, done
	o.gen++
	o.queued = 0
	o.busyUntil = time.Time{}
	o.mu.Unlock()
	return nil
}

// Play schedules buf to finish after whatever is already queued.
func (o *SilentOutput) Play(buf []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.done == nil:
		return errcode.Uninitialized
	case o.queued == 2:
		return errcode.Busy
	}
	now := time.Now()
	start := o.busyUntil
	if start.Before(now) {
		start = now
	}
	o.busyUntil = start.Add(timex.SamplesDuration(len(buf), o.rate))
	o.queued++

	gen, done := o.gen, o.done
	time.AfterFunc(o.busyUntil.Sub(now), func() {
		o.mu.Lock()
		live := gen == o.gen
		if live {
			o.queued--
		}
		o.mu.Unlock()
		if live {
			done()
		}
	})
	return nil
}

func (o *SilentOutput) Stop() error {
	o.mu.Lock()
	o.gen++
	o.done = nil
	o.queued = 0
	o.mu.Unlock()
	return nil
}
