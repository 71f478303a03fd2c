//go:build !rp2040 && !rp2350

package platform

import (
	"math/rand"
	"sync"

	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
)

// Object is something in the simulated field of view, spanning
// [From, To] of the sweep steps.
type Object struct {
	From, To uint16
	Distance uint16
	// Appear is the number of completed measurements before it shows up.
	Appear int
}

// Scene is a simulated VL53L1X looking along the sweep servo.
type Scene struct {
	mu       sync.Mutex
	pos      func() (num, den uint16)
	wall     uint16
	noise    int
	rnd      *rand.Rand
	objects  []Object
	ranging  bool
	budget   vl53l1x.TimingBudget
	mode     vl53l1x.DistanceMode
	measured int
}

func NewScene(pos func() (num, den uint16), wall uint16, noise int, seed int64, objects ...Object) *Scene {
	return &Scene{
		pos:     pos,
		wall:    wall,
		noise:   noise,
		rnd:     rand.New(rand.NewSource(seed)),
		objects: objects,
		budget:  vl53l1x.Budget100ms,
		mode:    vl53l1x.Long,
	}
}

func (s *Scene) SetTimingBudget(b vl53l1x.TimingBudget) error {
	if b == vl53l1x.Budget15ms && s.mode == vl53l1x.Long {
		return vl53l1x.ErrInvalidTimingBudget
	}
	s.budget = b
	return nil
}

func (s *Scene) SetDistanceMode(m vl53l1x.DistanceMode) error {
	if m != vl53l1x.Short && m != vl53l1x.Long {
		return vl53l1x.ErrInvalidDistanceMode
	}
	s.mode = m
	return nil
}

func (s *Scene) SetInterMeasurement(uint32) error { return nil }

func (s *Scene) StartRanging() error {
	s.mu.Lock()
	s.ranging = true
	s.mu.Unlock()
	return nil
}

func (s *Scene) StopRanging() error {
	s.mu.Lock()
	s.ranging = false
	s.mu.Unlock()
	return nil
}

func (s *Scene) CheckForDataReady() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ranging {
		return false, &errcode.E{C: errcode.Uninitialized, Op: "scene.ready", Msg: "not ranging"}
	}
	return true, nil
}

func (s *Scene) ClearInterrupt() error { return nil }

func (s *Scene) RangeStatus() (vl53l1x.RangeStatus, error) {
	return vl53l1x.RangeStatus{Kind: vl53l1x.StatusOK}, nil
}

// Distance returns the nearest visible surface at the current step.
func (s *Scene) Distance() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	num, _ := s.pos()
	d := s.wall
	for _, o := range s.objects {
		if s.measured >= o.Appear && num >= o.From && num <= o.To && o.Distance < d {
			d = o.Distance
		}
	}
	s.measured++
	if s.noise > 0 {
		v := int(d) + s.rnd.Intn(2*s.noise+1) - s.noise
		if v < 0 {
			v = 0
		}
		d = uint16(v)
	}
	return d, nil
}
