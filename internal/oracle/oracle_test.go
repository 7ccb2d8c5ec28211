package oracle

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/movy/movefuzz/pkg/move"
)

func TestProceedsOracleFlagsNetPositiveAttackerBalance(t *testing.T) {
	sender := move.Address{1}
	state := &State{
		Sender:  sender,
		GasUsed: 100,
		BalanceDelta: map[move.Address]map[string]decimal.Decimal{
			sender: {gasCoinKey: decimal.NewFromInt(500)},
		},
	}
	findings := ProceedsOracle{}.DoneExecution(nil, state, Effects{Success: true})
	if len(findings) != 1 || findings[0].Severity != SeverityCritical {
		t.Fatalf("expected one Critical finding, got %+v", findings)
	}
}

func TestProceedsOracleIgnoresFailedExecution(t *testing.T) {
	sender := move.Address{1}
	state := &State{
		Sender: sender,
		BalanceDelta: map[move.Address]map[string]decimal.Decimal{
			sender: {gasCoinKey: decimal.NewFromInt(500)},
		},
	}
	findings := ProceedsOracle{}.DoneExecution(nil, state, Effects{Success: false})
	if len(findings) != 0 {
		t.Fatalf("expected no findings on a failed tx, got %+v", findings)
	}
}

func TestProceedsOracleIgnoresNetNegativeOrZero(t *testing.T) {
	sender := move.Address{1}
	state := &State{
		Sender:  sender,
		GasUsed: 1000,
		BalanceDelta: map[move.Address]map[string]decimal.Decimal{
			sender: {gasCoinKey: decimal.NewFromInt(500)},
		},
	}
	findings := ProceedsOracle{}.DoneExecution(nil, state, Effects{Success: true})
	if len(findings) != 0 {
		t.Fatalf("expected no findings when gas exceeds proceeds, got %+v", findings)
	}
}

func TestPipelineDoneExecutionAggregatesCrash(t *testing.T) {
	sender := move.Address{1}
	state := &State{
		Sender:  sender,
		GasUsed: 1,
		BalanceDelta: map[move.Address]map[string]decimal.Decimal{
			sender: {gasCoinKey: decimal.NewFromInt(500)},
		},
	}
	p := NewPipeline(ProceedsOracle{}, BoolJudgementOracle{})
	findings, crash := p.DoneExecution(nil, state, Effects{Success: true})
	if !crash {
		t.Fatalf("expected pipeline to elevate to crash")
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 aggregated finding, got %d", len(findings))
	}
}
