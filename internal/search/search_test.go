package search

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func collect(t *testing.T, ch <-chan Match) []Match {
	t.Helper()
	var out []Match
	for m := range ch {
		out = append(out, m)
	}
	return out
}

func TestRun_ZeroMaskMatchesFirstCandidate(t *testing.T) {
	cfg := Config{
		Mode:    ModeEOA,
		Target:  common.HexToAddress("0xdeadbeef00112233445566778899aabbccddeeff"),
		Mask:    common.Address{}, // every candidate matches
		Workers: 1,
	}
	resultCh := make(chan Match, 1)
	stats := &Stats{}

	if err := Run(context.Background(), cfg, resultCh, stats); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	matches := collect(t, resultCh)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	m := matches[0]
	if m.PrivateKey == nil {
		t.Fatalf("eoa match must carry its private key")
	}
	if got := crypto.PubkeyToAddress(m.PrivateKey.PublicKey); got != m.Address {
		t.Fatalf("key does not reconstruct the reported address: got %s want %s", got.Hex(), m.Address.Hex())
	}
	if stats.Attempts.Load() < 1 {
		t.Fatalf("attempts counter never incremented")
	}
}

func TestRun_ExactlyOneMatchAcrossWorkers(t *testing.T) {
	// Low 4 bits only: one in 16 candidates matches, so several workers
	// are likely to find candidates close together.
	cfg := Config{
		Mode:    ModeEOA,
		Target:  common.Address{},
		Mask:    common.HexToAddress("0x000000000000000000000000000000000000000f"),
		Workers: 8,
	}
	resultCh := make(chan Match, 1)

	if err := Run(context.Background(), cfg, resultCh, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	matches := collect(t, resultCh)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	if !Matches(matches[0].Address, cfg.Target, cfg.Mask) {
		t.Fatalf("reported address %s does not satisfy the mask", matches[0].Address.Hex())
	}
}

func TestRun_ContractMatchRoundTrips(t *testing.T) {
	cfg := Config{
		Mode:    ModeContract,
		Params:  Params{Nonce: 0},
		Target:  common.Address{},
		Mask:    common.Address{},
		Workers: 1,
	}
	resultCh := make(chan Match, 1)

	if err := Run(context.Background(), cfg, resultCh, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	matches := collect(t, resultCh)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	m := matches[0]
	if got := crypto.PubkeyToAddress(m.PrivateKey.PublicKey); got != m.Deployer {
		t.Fatalf("deployer does not round-trip from the key")
	}
	if got := crypto.CreateAddress(m.Deployer, 0); got != m.Address {
		t.Fatalf("contract address does not round-trip: got %s want %s", got.Hex(), m.Address.Hex())
	}
}

func TestRun_Create2MatchHasSaltOnly(t *testing.T) {
	params := Params{
		Factory:      common.HexToAddress("0x9fBB3DF7C40Da2e5A0dE984fFE2CCB7C47cd0ABf"),
		InitCodeHash: common.HexToHash("0x21c35dbe1b344a2488cf3321d6ce542f8e9f305544ff09e4993a62319a497c1f"),
	}
	cfg := Config{
		Mode:    ModeCreate2,
		Params:  params,
		Target:  common.Address{},
		Mask:    common.Address{},
		Workers: 1,
	}
	resultCh := make(chan Match, 1)

	if err := Run(context.Background(), cfg, resultCh, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	matches := collect(t, resultCh)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	m := matches[0]
	if m.PrivateKey != nil {
		t.Fatalf("create2 match must never contain a private key")
	}
	if got := crypto.CreateAddress2(params.Factory, m.Salt, params.InitCodeHash.Bytes()); got != m.Address {
		t.Fatalf("salt does not reproduce the reported address: got %s want %s", got.Hex(), m.Address.Hex())
	}
}

func TestRun_ExternalCancelStopsWithoutMatch(t *testing.T) {
	// Full mask against a fixed target: a match is unreachable within
	// the lifetime of the test, so only cancellation can end the run.
	cfg := Config{
		Mode:    ModeEOA,
		Target:  common.HexToAddress("0xdeadbeef00112233445566778899aabbccddeeff"),
		Mask:    common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff"),
		Workers: 4,
	}
	resultCh := make(chan Match, 1)
	stats := &Stats{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, resultCh, stats) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancelled run must exit cleanly, got: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("workers did not stop after cancellation")
	}
	if matches := collect(t, resultCh); len(matches) != 0 {
		t.Fatalf("cancelled run must not report a match, got %d", len(matches))
	}
	if stats.Attempts.Load() == 0 {
		t.Fatalf("workers never iterated before cancellation")
	}
}

func TestRun_PreCancelledContextDoesNoWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{
		Mode:    ModeEOA,
		Target:  common.Address{},
		Mask:    common.Address{}, // would match immediately if a candidate were derived
		Workers: 4,
	}
	resultCh := make(chan Match, 1)

	if err := Run(ctx, cfg, resultCh, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if matches := collect(t, resultCh); len(matches) != 0 {
		t.Fatalf("pre-cancelled run must not report a match")
	}
}

func TestDefaultWorkers_AtLeastOne(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Fatalf("default worker count must be at least 1")
	}
}
