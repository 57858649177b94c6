// Package scene holds the single aggregate of everything the frame loop mutates.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/meshload"
	"github.com/surgisim/fusion/internal/pose"
	"github.com/surgisim/fusion/internal/stock"
)

// State owns every scene entity plus the shared pivot and target points.
// It is mutated by the frame loop only.
type State struct {
	Models      *stock.Stock[*Model]
	Cameras     *stock.Stock[*Camera]
	Lights      *stock.Stock[*Light]
	Programs    *stock.Stock[*Program]
	Instruments *stock.Stock[*Instrument]

	Pivot  mgl64.Vec3
	Target mgl64.Vec3
	Frame  uint64
}

// New returns an empty scene with the stock rules for cameras and programs.
func New() *State {
	return &State{
		Models: stock.New[*Model]("model"),
		Cameras: stock.New("camera",
			stock.KeepLast[*Camera](),
			stock.KeepMarked(
				func(c *Camera) bool { return c.Active },
				func(_, _ *Camera) bool { return true },
			),
		),
		Lights: stock.New[*Light]("light"),
		Programs: stock.New("program",
			stock.KeepLast[*Program](),
			stock.KeepMarked(
				func(p *Program) bool { return p.Default },
				func(candidate, removed *Program) bool {
					return candidate.Default && candidate.Pass == removed.Pass
				},
			),
		),
		Instruments: stock.New[*Instrument]("instrument"),
	}
}

// AddCamera stores c. The first camera becomes active.
func (s *State) AddCamera(c *Camera) stock.ID {
	c.Active = s.Cameras.Len() == 0
	return s.Cameras.Add(c)
}

// ActiveCamera returns the camera currently in use.
func (s *State) ActiveCamera() (stock.ID, *Camera, bool) {
	return s.Cameras.Find(func(c *Camera) bool { return c.Active })
}

// SetActiveCamera switches the active camera.
func (s *State) SetActiveCamera(id stock.ID) error {
	next, err := s.Cameras.Get(id)
	if err != nil {
		return err
	}
	for _, c := range s.Cameras.All() {
		c.Active = false
	}
	next.Active = true
	return nil
}

// RemoveCamera deletes a camera. When the active camera goes, the oldest
// remaining camera takes over.
func (s *State) RemoveCamera(id stock.ID) error {
	c, err := s.Cameras.Get(id)
	if err != nil {
		return err
	}
	wasActive := c.Active
	if err := s.Cameras.Remove(id); err != nil {
		return err
	}
	if wasActive {
		if _, first, ok := s.Cameras.First(); ok {
			first.Active = true
		}
	}
	return nil
}

// AddInstrument creates the model for an instrument and registers it.
func (s *State) AddInstrument(role Role, name string, meshes meshload.Set, p pose.Pose) (stock.ID, *Model) {
	m := &Model{Name: name, Pose: p, Meshes: meshes}
	modelID := s.Models.Add(m)
	return s.Instruments.Add(NewInstrument(role, modelID)), m
}

// RemoveModel deletes a model along with any instrument driving it.
func (s *State) RemoveModel(id stock.ID) error {
	if err := s.Models.Remove(id); err != nil {
		return err
	}
	for instID, inst := range s.Instruments.All() {
		if inst.Model() == id {
			if err := s.Instruments.Remove(instID); err != nil {
				return fmt.Errorf("detach instrument: %w", err)
			}
		}
	}
	return nil
}

// InstrumentModels returns the models of every instrument with one of the
// given roles, in insertion order.
func (s *State) InstrumentModels(roles ...Role) []*Model {
	var out []*Model
	for _, inst := range s.Instruments.All() {
		for _, r := range roles {
			if inst.Role() != r {
				continue
			}
			if m, err := s.Models.Get(inst.Model()); err == nil {
				out = append(out, m)
			}
			break
		}
	}
	return out
}

// FirstModel returns the model of the first instrument with role r.
func (s *State) FirstModel(r Role) (*Model, bool) {
	models := s.InstrumentModels(r)
	if len(models) == 0 {
		return nil, false
	}
	return models[0], true
}

// FollowCamera moves grabbed lights onto the active camera.
func (s *State) FollowCamera() {
	_, cam, ok := s.ActiveCamera()
	if !ok {
		return
	}
	for _, l := range s.Lights.All() {
		if l.Grabbed {
			l.Follow(cam)
		}
	}
}
