package provision

import (
	"math/big"
	"testing"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func TestPerOffer(t *testing.T) {
	got := PerOffer(bi(30_000_000_000), bi(170_000), bi(160_000))
	want := new(big.Int).Mul(bi(30_000_000_000), bi(330_000))
	if got.Cmp(want) != 0 {
		t.Fatalf("PerOffer got=%s want=%s", got, want)
	}
}

func TestTotal(t *testing.T) {
	if got := Total(bi(1000), 8); got.Cmp(bi(8000)) != 0 {
		t.Fatalf("Total got=%s want=8000", got)
	}
	if got := Total(bi(1000), 0); got.Sign() != 0 {
		t.Fatalf("Total with zero offers got=%s want=0", got)
	}
}

func TestMinGives(t *testing.T) {
	if got := MinGives(bi(7), bi(100), bi(200)); got.Cmp(bi(2100)) != 0 {
		t.Fatalf("MinGives got=%s want=2100", got)
	}
}

func TestMissing(t *testing.T) {
	cases := []struct {
		needed, locked, free, want int64
	}{
		{1000, 400, 600, 0},
		{1000, 500, 600, 0},
		{1000, 0, 0, 1000},
		{1000, 300, 200, 500},
		{0, 0, 0, 0},
	}
	for _, c := range cases {
		got := Missing(bi(c.needed), bi(c.locked), bi(c.free))
		if got.Cmp(bi(c.want)) != 0 {
			t.Fatalf("Missing(%d,%d,%d) got=%s want=%d", c.needed, c.locked, c.free, got, c.want)
		}
	}
}

func TestMissing_ScenarioC(t *testing.T) {
	// perAsk=1000, perBid=1000, 8 offers each side, free=5000 -> 11000 short.
	needed := new(big.Int).Add(Total(bi(1000), 8), Total(bi(1000), 8))
	got := Missing(needed, bi(0), bi(5000))
	if got.Cmp(bi(11000)) != 0 {
		t.Fatalf("missing got=%s want=11000", got)
	}
}

func TestValidGasreq(t *testing.T) {
	if ValidGasreq(16_777_216) {
		t.Fatal("gasreq above the 24-bit ceiling must fail")
	}
	if !ValidGasreq(16_777_215) {
		t.Fatal("gasreq at the 24-bit ceiling must pass")
	}
	if ValidGasreq(0) {
		t.Fatal("zero gasreq must fail")
	}
}
