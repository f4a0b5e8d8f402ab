package search

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Mode
	}{
		{"eoa", ModeEOA},
		{"contract", ModeContract},
		{"create2", ModeCreate2},
	} {
		got, err := ParseMode(tc.in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q): got %v want %v", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Fatalf("Mode round-trip: got %q want %q", got.String(), tc.in)
		}
	}
	if _, err := ParseMode("gpu"); err == nil {
		t.Fatalf("unknown mode must be rejected")
	}
}

func TestAddressDerivation_Deterministic(t *testing.T) {
	key, err := crypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082799f7ed2a5abf85f7f4f")
	if err != nil {
		t.Fatalf("failed to parse key: %v", err)
	}
	a := crypto.PubkeyToAddress(key.PublicKey)
	b := crypto.PubkeyToAddress(key.PublicKey)
	if a != b {
		t.Fatalf("address derivation is not deterministic: %s vs %s", a.Hex(), b.Hex())
	}
}

func TestDeriveEOA_KeyReconstructsAddress(t *testing.T) {
	c, err := deriveCandidate(ModeEOA, Params{}, newSource())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if c.key == nil {
		t.Fatalf("eoa candidate must carry its private key")
	}
	if got := crypto.PubkeyToAddress(c.key.PublicKey); got != c.addr {
		t.Fatalf("re-derived address mismatch: got %s want %s", got.Hex(), c.addr.Hex())
	}
}

func TestDeriveContract_RoundTrip(t *testing.T) {
	params := Params{Nonce: 0}
	c, err := deriveCandidate(ModeContract, params, newSource())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if c.key == nil {
		t.Fatalf("contract candidate must carry the deployer key")
	}
	if got := crypto.PubkeyToAddress(c.key.PublicKey); got != c.deployer {
		t.Fatalf("deployer mismatch: got %s want %s", got.Hex(), c.deployer.Hex())
	}
	if got := crypto.CreateAddress(c.deployer, params.Nonce); got != c.addr {
		t.Fatalf("contract address does not round-trip: got %s want %s", got.Hex(), c.addr.Hex())
	}
}

func TestDeriveContract_NonceChangesAddress(t *testing.T) {
	key, err := crypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082799f7ed2a5abf85f7f4f")
	if err != nil {
		t.Fatalf("failed to parse key: %v", err)
	}
	deployer := crypto.PubkeyToAddress(key.PublicKey)
	if crypto.CreateAddress(deployer, 0) == crypto.CreateAddress(deployer, 1) {
		t.Fatalf("different nonces must derive different contract addresses")
	}
}

func TestDeriveCreate2_RoundTripAndNoKey(t *testing.T) {
	params := Params{
		Factory:      common.HexToAddress("0x9fBB3DF7C40Da2e5A0dE984fFE2CCB7C47cd0ABf"),
		InitCodeHash: common.HexToHash("0x21c35dbe1b344a2488cf3321d6ce542f8e9f305544ff09e4993a62319a497c1f"),
	}
	c, err := deriveCandidate(ModeCreate2, params, newSource())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if c.key != nil {
		t.Fatalf("create2 candidate must never carry a private key")
	}
	// Same factory, salt and init-code hash must reproduce the address.
	if got := crypto.CreateAddress2(params.Factory, c.salt, params.InitCodeHash.Bytes()); got != c.addr {
		t.Fatalf("create2 address does not round-trip: got %s want %s", got.Hex(), c.addr.Hex())
	}
}

func TestSource_SaltsAreIndependent(t *testing.T) {
	src := newSource()
	a, err := src.salt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	b, err := src.salt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	if a == b {
		t.Fatalf("two salt draws returned the same value")
	}
}
