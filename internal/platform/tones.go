package platform

import (
	"turret-go/audio"
	"turret-go/simplefs"
)

// ToneImage builds a clip store holding a short square-wave beep per
// clip, pitched by clip index. It stands in for real recordings.
func ToneImage() ([]byte, error) {
	names := audio.ClipNames()
	const n = audio.SampleRate / 4
	b := simplefs.NewBuilder(len(names)*(n+simplefs.DirEntrySize) + simplefs.HeaderSize)
	for i, name := range names {
		half := audio.SampleRate / (2 * (300 + 40*i))
		pcm := make([]byte, n)
		for k := range pcm {
			if (k/half)%2 == 0 {
				pcm[k] = 0xA0
			} else {
				pcm[k] = 0x60
			}
		}
		if err := b.Add(name, pcm); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}
