package rendering

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"sandbox/core"
)

func TestScene_Lifecycle(t *testing.T) {
	s := NewScene()
	h, err := s.CreateMesh(MeshSpec{Kind: core.ShapeCube, Scale: 1, Color: ColorCube})
	if err != nil {
		t.Fatalf("CreateMesh: %v", err)
	}

	tr := Transform{Translation: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent()}
	if err := s.SetTransform(h, tr); err != nil {
		t.Fatalf("SetTransform: %v", err)
	}
	if err := s.SetColor(h, ColorHighlight); err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	m, ok := s.Get(h)
	if !ok {
		t.Fatal("mesh missing")
	}
	if m.Transform != tr || m.Color != ColorHighlight || m.Version != 2 {
		t.Errorf("unexpected mesh state %+v", m)
	}

	if err := s.DestroyMesh(h); err != nil {
		t.Fatalf("DestroyMesh: %v", err)
	}
	if err := s.DestroyMesh(h); !errors.Is(err, ErrUnknownMesh) {
		t.Errorf("second DestroyMesh err = %v, want ErrUnknownMesh", err)
	}
	if err := s.SetTransform(h, tr); !errors.Is(err, ErrUnknownMesh) {
		t.Errorf("SetTransform after destroy err = %v, want ErrUnknownMesh", err)
	}
}

func TestScene_RejectsBadSpec(t *testing.T) {
	s := NewScene()
	if _, err := s.CreateMesh(MeshSpec{Kind: core.ShapeKind(9), Scale: 1}); err == nil {
		t.Error("expected an error for an unknown kind")
	}
	if _, err := s.CreateMesh(MeshSpec{Kind: core.ShapeSphere, Scale: 0}); err == nil {
		t.Error("expected an error for a zero scale")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestScene_EachInHandleOrder(t *testing.T) {
	s := NewScene()
	for i := 0; i < 5; i++ {
		if _, err := s.CreateMesh(MeshSpec{Kind: core.ShapeSphere, Scale: 1}); err != nil {
			t.Fatal(err)
		}
	}
	var last MeshHandle
	s.Each(func(h MeshHandle, _ Mesh) {
		if h <= last {
			t.Errorf("handle %d visited after %d", h, last)
		}
		last = h
	})
}
