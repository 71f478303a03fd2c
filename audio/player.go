// Package audio streams stored clips to the sound output through two
// alternating buffers.
package audio

import (
	"io"

	"turret-go/errcode"
	"turret-go/scheduler"
	"turret-go/simplefs"
)

// Clips are unsigned 8-bit mono PCM.
const (
	SampleRate = 16000
	BufSize    = 1024
)

// Output is the playback hardware. Start powers it up; done is then
// called (possibly from interrupt context) each time a buffer passed to
// Play has been consumed. Play must not copy: the buffer stays untouched
// until done fires.
type Output interface {
	Start(rateHz uint32, done func()) error
	Play(buf []byte) error
	Stop() error
}

// Library opens clips by store index. *simplefs.FileSystem satisfies it.
type Library interface {
	Open(index int) (*simplefs.File, error)
}

// Rand picks clips. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

type playState uint8

const (
	stateIdle playState = iota
	statePlaying
	stateLastBlock
)

// Player owns the output and the clip store.
type Player struct {
	out Output
	lib Library
	rnd Rand

	state   playState
	file    *simplefs.File
	clip    Clip
	next    int // buffer to play on the next completion
	pending int // bytes waiting in bufs[next]
	bufs    [2][BufSize]byte

	playNext *scheduler.Event

	// OnClip, when set, is told about every clip that starts.
	OnClip func(Sound, Clip)
}

func New(out Output, lib Library, rnd Rand) *Player {
	p := &Player{out: out, lib: lib, rnd: rnd}
	p.playNext = scheduler.NewEvent("audio.play_next", p.playNextBuffer)
	return p
}

// Bind registers the buffer-completion event.
func (p *Player) Bind(q *scheduler.Queue) error { return q.Bind(p.playNext) }

// BufferDone relays a hardware completion into the main loop. Safe from
// interrupt handlers.
func (p *Player) BufferDone() { p.playNext.Call() }

func (p *Player) Busy() bool { return p.state != stateIdle }

// Current returns the clip being played.
func (p *Player) Current() (Clip, bool) { return p.clip, p.Busy() }

// Play starts a random clip for s. It is a no-op while another clip plays.
func (p *Player) Play(s Sound) error {
	if p.Busy() {
		println("[audio] busy, dropping", s.String())
		return nil
	}
	clips := Clips(s)
	if len(clips) == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "audio.play", Msg: "unknown sound"}
	}
	clip := clips[p.rnd.Intn(len(clips))]
	println("[audio] playing", clip.String())

	f, err := p.lib.Open(clip.FileIndex())
	if err != nil {
		return err
	}
	n, err := fill(f, p.bufs[0][:])
	if err != nil {
		return err
	}
	if n == 0 {
		println("[audio] clip is empty:", clip.String())
		return nil
	}

	p.state = statePlaying
	p.file = f
	p.clip = clip
	p.next = 0
	p.pending = n

	if err := p.start(); err != nil {
		println("[audio] start failed:", err.Error())
		if p.Busy() {
			if stopErr := p.end(); stopErr != nil {
				println("[audio] stop failed:", stopErr.Error())
			}
		}
		return err
	}
	if p.OnClip != nil {
		p.OnClip(s, clip)
	}
	return nil
}

func (p *Player) start() error {
	if err := p.out.Start(SampleRate, p.BufferDone); err != nil {
		return err
	}
	return p.playNextBuffer()
}

// playNextBuffer hands the filled buffer to the output and refills the
// other one.
func (p *Player) playNextBuffer() error {
	switch p.state {
	case stateIdle:
		println("[audio] completion while idle")
		return nil
	case stateLastBlock:
		return p.end()
	}

	cur := p.next
	p.next = (cur + 1) % 2
	if err := p.out.Play(p.bufs[cur][:p.pending]); err != nil {
		return p.fail(err)
	}
	n, err := fill(p.file, p.bufs[p.next][:])
	if err != nil {
		return p.fail(err)
	}
	p.pending = n
	if n == 0 {
		p.state = stateLastBlock
	}
	return nil
}

func (p *Player) fail(err error) error {
	if stopErr := p.end(); stopErr != nil {
		println("[audio] stop failed:", stopErr.Error())
	}
	return err
}

// end stops the output and returns to idle.
func (p *Player) end() error {
	p.state = stateIdle
	p.file = nil
	p.pending = 0
	return p.out.Stop()
}

// fill reads until buf is full or the file ends.
func fill(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return n, err
}
