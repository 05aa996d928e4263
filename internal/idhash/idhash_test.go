package idhash

import "testing"

func TestComputePairID_Deterministic(t *testing.T) {
	a := ComputePairID("POOL", "USDC", 86400, 86400)
	b := ComputePairID("POOL", "USDC", 86400, 86400)
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if a == "" {
		t.Error("empty pair ID")
	}
}

func TestComputePairID_DistinguishesInputs(t *testing.T) {
	base := ComputePairID("POOL", "USDC", 86400, 86400)

	variants := []string{
		ComputePairID("USDC", "POOL", 86400, 86400),
		ComputePairID("POOL", "USDC", 3600, 86400),
		ComputePairID("POOL", "USDC", 86400, 0),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base ID %s", i, base)
		}
	}
}

func TestComputeTradeID_Deterministic(t *testing.T) {
	a := ComputeTradeID("pair1", "alice", "exact_in", 3, 172800)
	b := ComputeTradeID("pair1", "alice", "exact_in", 3, 172800)
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("trade ID length = %d, want 64 hex chars", len(a))
	}

	if ComputeTradeID("pair1", "alice", "exact_out", 3, 172800) == a {
		t.Error("kind not part of the trade ID")
	}
}
