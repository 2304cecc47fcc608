package inventory

import (
	"math/big"
	"testing"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func TestResolve_Create(t *testing.T) {
	p, err := Resolve(Input{
		TypedBase:     bi(80),
		TypedQuote:    bi(120000),
		LevelsPerSide: 8,
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.Mode != ModeCreate {
		t.Fatalf("mode got=%s want=create", p.Mode)
	}
	if p.AskGivesPerLevel.Cmp(bi(10)) != 0 || p.BidGivesPerLevel.Cmp(bi(15000)) != 0 {
		t.Fatalf("gives got ask=%s bid=%s", p.AskGivesPerLevel, p.BidGivesPerLevel)
	}
	if p.BaseToSend.Cmp(bi(80)) != 0 || p.QuoteToSend.Cmp(bi(120000)) != 0 {
		t.Fatalf("send amounts got base=%s quote=%s", p.BaseToSend, p.QuoteToSend)
	}
	if !p.NeedsBaseApproval || !p.NeedsQuoteApproval {
		t.Fatal("create mode must approve both typed amounts")
	}
}

func TestResolve_TopUp_SendsDeltaOnly(t *testing.T) {
	p, err := Resolve(Input{
		Editing:       true,
		AddInventory:  true,
		Reserves:      Snapshot{Base: bi(100), Quote: bi(50)},
		TypedBase:     bi(20),
		TypedQuote:    bi(0),
		LevelsPerSide: 10,
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.Mode != ModeTopUp {
		t.Fatalf("mode got=%s want=top-up", p.Mode)
	}
	if p.BaseTotal.Cmp(bi(120)) != 0 {
		t.Fatalf("base total got=%s want=120", p.BaseTotal)
	}
	if p.BaseToSend.Cmp(bi(20)) != 0 || p.QuoteToSend.Sign() != 0 {
		t.Fatalf("send amounts got base=%s quote=%s", p.BaseToSend, p.QuoteToSend)
	}
	if !p.NeedsBaseApproval || p.NeedsQuoteApproval {
		t.Fatal("only the non-zero delta needs approval")
	}
}

func TestResolve_EmptyReservesForceTopUp(t *testing.T) {
	p, err := Resolve(Input{
		Editing:       true,
		AddInventory:  false, // checkbox off, but nothing to reuse
		Reserves:      Snapshot{Base: bi(0), Quote: bi(0)},
		TypedBase:     bi(10),
		LevelsPerSide: 5,
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.Mode != ModeTopUp {
		t.Fatalf("mode got=%s want=top-up", p.Mode)
	}
}

func TestResolve_Reuse(t *testing.T) {
	p, err := Resolve(Input{
		Editing:       true,
		Reserves:      Snapshot{Base: bi(100), Quote: bi(0)},
		LevelsPerSide: 10,
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.Mode != ModeReuse {
		t.Fatalf("mode got=%s want=reuse", p.Mode)
	}
	if p.AskGivesPerLevel.Cmp(bi(10)) != 0 {
		t.Fatalf("ask gives got=%s want=10", p.AskGivesPerLevel)
	}
	// Empty quote side falls back to the minimum unit.
	if p.BidGivesPerLevel.Cmp(bi(1)) != 0 || !p.BidGivesFallback {
		t.Fatalf("bid gives got=%s fallback=%v", p.BidGivesPerLevel, p.BidGivesFallback)
	}
	if p.NeedsBaseApproval || p.NeedsQuoteApproval {
		t.Fatal("reuse mode needs no approvals")
	}
	if p.BaseToSend.Sign() != 0 || p.QuoteToSend.Sign() != 0 {
		t.Fatal("reuse mode sends nothing")
	}
}

func TestResolve_ReuseRoundingStaysWithinReserve(t *testing.T) {
	// 101 over 10 levels floors to 10 per level, 100 total, within reserve.
	p, err := Resolve(Input{
		Editing:       true,
		Reserves:      Snapshot{Base: bi(101), Quote: bi(7)},
		LevelsPerSide: 10,
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.AskGivesPerLevel.Cmp(bi(10)) != 0 {
		t.Fatalf("ask gives got=%s want=10", p.AskGivesPerLevel)
	}
	// 7 over 10 levels floors to 0: the side is effectively empty but the
	// reserve is non-zero, so no fallback and no shortfall.
	if p.BidGivesPerLevel.Sign() != 0 || p.BidGivesFallback {
		t.Fatalf("bid gives got=%s fallback=%v", p.BidGivesPerLevel, p.BidGivesFallback)
	}
}

func TestResolve_RejectsZeroLevels(t *testing.T) {
	if _, err := Resolve(Input{LevelsPerSide: 0}); err == nil {
		t.Fatal("zero levels must be rejected")
	}
}
