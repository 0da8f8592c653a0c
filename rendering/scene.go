package rendering

import (
	"fmt"
	"image/color"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is one drawable instance in a Scene
type Mesh struct {
	Spec      MeshSpec
	Transform Transform
	Color     color.RGBA

	// Version increments whenever the mesh changes
	Version uint64
}

// Scene is an in-memory Renderer. The simulation writes into it and a view
// draws from it on the render thread.
type Scene struct {
	mu     sync.RWMutex
	meshes map[MeshHandle]*Mesh
	nextID MeshHandle
}

// NewScene creates an empty scene
func NewScene() *Scene {
	return &Scene{meshes: make(map[MeshHandle]*Mesh)}
}

// CreateMesh adds a mesh at the origin
func (s *Scene) CreateMesh(spec MeshSpec) (MeshHandle, error) {
	if !spec.Kind.Valid() {
		return 0, fmt.Errorf("create mesh: invalid kind %v", spec.Kind)
	}
	if spec.Scale <= 0 {
		return 0, fmt.Errorf("create mesh: scale must be positive, got %v", spec.Scale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h := s.nextID
	s.meshes[h] = &Mesh{
		Spec:      spec,
		Transform: Transform{Rotation: mgl32.QuatIdent()},
		Color:     spec.Color,
	}
	return h, nil
}

// DestroyMesh removes a mesh
func (s *Scene) DestroyMesh(h MeshHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meshes[h]; !ok {
		return fmt.Errorf("destroy mesh %d: %w", h, ErrUnknownMesh)
	}
	delete(s.meshes, h)
	return nil
}

// SetTransform moves a mesh
func (s *Scene) SetTransform(h MeshHandle, t Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meshes[h]
	if !ok {
		return fmt.Errorf("set transform %d: %w", h, ErrUnknownMesh)
	}
	m.Transform = t
	m.Version++
	return nil
}

// SetColor recolours a mesh
func (s *Scene) SetColor(h MeshHandle, c color.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meshes[h]
	if !ok {
		return fmt.Errorf("set color %d: %w", h, ErrUnknownMesh)
	}
	m.Color = c
	m.Version++
	return nil
}

// Get returns a copy of the mesh
func (s *Scene) Get(h MeshHandle) (Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[h]
	if !ok {
		return Mesh{}, false
	}
	return *m, true
}

// Len returns the number of meshes
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

// Each visits a snapshot of every mesh in handle order
func (s *Scene) Each(fn func(MeshHandle, Mesh)) {
	s.mu.RLock()
	handles := make([]MeshHandle, 0, len(s.meshes))
	for h := range s.meshes {
		handles = append(handles, h)
	}
	snapshot := make(map[MeshHandle]Mesh, len(s.meshes))
	for h, m := range s.meshes {
		snapshot[h] = *m
	}
	s.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		fn(h, snapshot[h])
	}
}
