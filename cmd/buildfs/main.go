// buildfs packs a directory of audio clips into a SimpleFS image for the
// turret's flash. Clips are looked up by name in playback-table order and
// converted to 16 kHz unsigned 8-bit mono.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/spf13/cobra"

	"turret-go/audio"
	"turret-go/simplefs"
)

var version = "dev"

// rp2040 flash minus the first megabyte reserved for firmware.
const defaultCapacity = 1 << 20

func main() {
	var (
		out      string
		capacity int
	)

	cmd := &cobra.Command{
		Use:   "buildfs <clips-dir>",
		Short: "Build a SimpleFS clip image",
		Long: `buildfs reads one file per clip from <clips-dir>, named <clip>.raw,
<clip>.wav or <clip>.mp3. Raw files must already be 16 kHz unsigned 8-bit
mono; wav and mp3 files are decoded, mixed to mono and resampled.`,
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return build(args[0], out, capacity)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&out, "out", "o", "clips.img", "output image path")
	cmd.Flags().IntVar(&capacity, "capacity", defaultCapacity, "maximum image size in bytes")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func build(dir, out string, capacity int) error {
	b := simplefs.NewBuilder(capacity)
	for _, name := range audio.ClipNames() {
		pcm, src, err := loadClip(dir, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := b.Add(name, pcm); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		log.Printf("[buildfs] %-16s %7d bytes  %s", name, len(pcm), filepath.Base(src))
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := b.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("[buildfs] wrote %s: %d files, %d bytes", out, b.NumFiles(), b.Size())
	return nil
}

var errNoClip = errors.New("no .raw, .wav or .mp3 file")

func loadClip(dir, name string) ([]byte, string, error) {
	base := filepath.Join(dir, name)
	if data, err := os.ReadFile(base + ".raw"); err == nil {
		return data, base + ".raw", nil
	}
	for _, ext := range []string{".wav", ".mp3"} {
		f, err := os.Open(base + ext)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		pcm, err := decode(f, ext)
		f.Close()
		return pcm, base + ext, err
	}
	return nil, "", errNoClip
}

func decode(f *os.File, ext string) ([]byte, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch ext {
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".mp3":
		s, format, err = mp3.Decode(io.NopCloser(f))
	}
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return toPCM(s, format.SampleRate)
}

// toPCM resamples s to the playback rate and quantises it to unsigned
// 8-bit mono.
func toPCM(s beep.Streamer, rate beep.SampleRate) ([]byte, error) {
	target := beep.SampleRate(audio.SampleRate)
	if rate != target {
		s = beep.Resample(4, rate, target, s)
	}

	var out []byte
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			out = append(out, quantise((smp[0]+smp[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func quantise(v float64) byte {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return byte(128 + v*127)
}
