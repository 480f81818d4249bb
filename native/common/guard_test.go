package common

import (
	"errors"
	"testing"
)

func TestGuardNilViewNeverPauses(t *testing.T) {
	if err := Guard(nil, "lending"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p *Pauses
	if err := Guard(p, "lending"); err != nil {
		t.Fatalf("nil pauses must not halt: %v", err)
	}
}

func TestPausesToggle(t *testing.T) {
	p := NewPauses("lending")
	if err := Guard(p, "lending"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(p, "oracle"); err != nil {
		t.Fatalf("unrelated module halted: %v", err)
	}
	p.Set("oracle", true)
	if got := p.Paused(); len(got) != 2 || got[0] != "lending" || got[1] != "oracle" {
		t.Fatalf("unexpected paused list %v", got)
	}
	p.Set("lending", false)
	if err := Guard(p, "lending"); err != nil {
		t.Fatalf("resumed module still halted: %v", err)
	}
	if err := Guard(p, ""); err != nil {
		t.Fatalf("empty module name must pass: %v", err)
	}
}
