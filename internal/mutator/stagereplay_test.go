package mutator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movy/movefuzz/pkg/move"
)

func TestStageReplayFreshOnFirstUse(t *testing.T) {
	r := New()
	action, _, _ := r.Next(KindSequence, "fp1")
	require.Equal(t, ActionFresh, action, "expected ActionFresh before any success recorded")
}

func TestStageReplayAdvancesStageOnMatchingFingerprint(t *testing.T) {
	r := New()
	seq := &move.MoveSequence{}
	r.RecordSuccess("fp1", seq)

	idx := 2
	r.RecordOutcome(KindSequence, "fp1", Outcome{StageIdx: &idx})

	action, stage, snap := r.Next(KindSequence, "fp1")
	require.Equal(t, ActionReplay, action, "expected ActionReplay after a stage_idx outcome")
	require.Equal(t, 2, stage)
	require.Same(t, seq, snap, "expected cached snapshot returned")
}

func TestStageReplayInvalidatesOnFingerprintChange(t *testing.T) {
	r := New()
	seq := &move.MoveSequence{}
	r.RecordSuccess("fp1", seq)
	idx := 1
	r.RecordOutcome(KindSequence, "fp1", Outcome{StageIdx: &idx})

	action, _, _ := r.Next(KindSequence, "fp2")
	require.Equal(t, ActionFresh, action, "expected ActionFresh on fingerprint mismatch")
}

func TestStageReplayResetsAfterMaxAttempts(t *testing.T) {
	r := New()
	seq := &move.MoveSequence{}
	r.RecordSuccess("fp1", seq)

	idx := 1
	for i := 0; i < MaxReplayAttempts; i++ {
		r.RecordOutcome(KindSequence, "fp1", Outcome{StageIdx: &idx})
	}
	require.Equal(t, 0, r.attempts, "expected reset to attempts=0 after %d attempts", MaxReplayAttempts)
	require.Equal(t, 0, r.stageIdx, "expected reset to stage 0 after %d attempts", MaxReplayAttempts)
}
