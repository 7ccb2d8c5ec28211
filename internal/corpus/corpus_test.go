package corpus

import (
	"path/filepath"
	"testing"

	"github.com/movy/movefuzz/pkg/move"
)

func sampleSeq() move.MoveSequence {
	return move.MoveSequence{
		Inputs: []move.InputArgument{{Kind: move.InputPureU64, PureBytes: []byte{1, 2, 3, 4, 5, 6, 7, 8}}},
		Commands: []move.Command{{
			Kind: move.CommandCall,
			Call: &move.MoveCall{Package: move.Address{1}, Module: "m", Function: "f", Args: []move.SequenceArgument{move.Input(0)}},
		}},
	}
}

func TestNewInputDerivesIDFromFingerprint(t *testing.T) {
	in := NewInput(sampleSeq())
	if len(in.ID) != 16 {
		t.Fatalf("expected a 16-hex-char ID, got %q", in.ID)
	}
	if in.Metadata.Fingerprint == "" {
		t.Fatalf("expected a non-empty fingerprint")
	}
}

func TestInputJSONRoundTrip(t *testing.T) {
	in := NewInput(sampleSeq())
	data, err := in.Marshal(false)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != in.ID || len(got.Sequence.Commands) != 1 {
		t.Fatalf("expected round-trip equality, got %+v", got)
	}
}

func TestInputCBORRoundTrip(t *testing.T) {
	in := NewInput(sampleSeq())
	data, err := in.Marshal(true)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != in.ID {
		t.Fatalf("expected round-trip equality, got %+v", got)
	}
}

func TestStorePutQueueAndLoad(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	in := NewInput(sampleSeq())
	if err := s.PutQueue(in); err != nil {
		t.Fatalf("PutQueue: %v", err)
	}

	loaded, err := s.LoadQueue()
	if err != nil || len(loaded) != 1 {
		t.Fatalf("expected 1 queued input, got %d err=%v", len(loaded), err)
	}

	if !s.AlreadyPromoted(in.Metadata.Fingerprint) {
		t.Fatalf("expected fingerprint to be marked promoted after PutQueue")
	}
}

func TestStorePutCrashWritesSeparateDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	in := NewInput(sampleSeq())
	if err := s.PutCrash(in); err != nil {
		t.Fatalf("PutCrash: %v", err)
	}
	crashes, err := s.LoadCrashes()
	if err != nil || len(crashes) != 1 {
		t.Fatalf("expected 1 crash input, got %d err=%v", len(crashes), err)
	}
	queue, err := s.LoadQueue()
	if err != nil || len(queue) != 0 {
		t.Fatalf("expected queue directory to remain empty, got %d", len(queue))
	}
	if _, err := filepath.Abs(dir); err != nil {
		t.Fatalf("unexpected path error: %v", err)
	}
}
