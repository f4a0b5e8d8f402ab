package search

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Mode selects how a candidate address is derived from fresh randomness.
type Mode int

const (
	// ModeEOA derives the address of a random private key directly.
	ModeEOA Mode = iota
	// ModeContract derives the CREATE contract address a random key
	// would deploy at the configured nonce.
	ModeContract
	// ModeCreate2 derives the CREATE2 contract address for a random
	// salt under a fixed factory and init-code hash. No private key is
	// ever generated in this mode.
	ModeCreate2
)

func (m Mode) String() string {
	switch m {
	case ModeEOA:
		return "eoa"
	case ModeContract:
		return "contract"
	case ModeCreate2:
		return "create2"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses the CLI/TUI spelling of a derivation mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "eoa":
		return ModeEOA, nil
	case "contract":
		return ModeContract, nil
	case "create2":
		return ModeCreate2, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want eoa, contract or create2)", s)
	}
}

// Params holds the fixed derivation inputs for a run. Nonce applies to
// ModeContract; Factory and InitCodeHash apply to ModeCreate2. ModeEOA
// uses none of them.
type Params struct {
	Nonce        uint64
	Factory      common.Address
	InitCodeHash common.Hash
}

// source is a worker-private randomness stream. Each worker owns its
// own buffered reader over the system CSPRNG so the hot loop never
// contends on a shared reader.
type source struct {
	rng *bufio.Reader
}

func newSource() *source {
	return &source{rng: bufio.NewReaderSize(rand.Reader, 4096)}
}

func (s *source) key() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(crypto.S256(), s.rng)
}

func (s *source) salt() (common.Hash, error) {
	var h common.Hash
	if _, err := io.ReadFull(s.rng, h[:]); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}

// candidate is one derivation attempt: the address under test plus the
// material needed to reconstruct it if it wins.
type candidate struct {
	addr     common.Address
	key      *ecdsa.PrivateKey // eoa, contract
	deployer common.Address    // contract
	salt     common.Hash       // create2
}

// deriveCandidate consumes randomness from src and produces one
// candidate under mode. The switch is deliberately explicit: the hot
// loop takes the same branch every iteration.
func deriveCandidate(mode Mode, params Params, src *source) (candidate, error) {
	switch mode {
	case ModeEOA:
		key, err := src.key()
		if err != nil {
			return candidate{}, fmt.Errorf("generate key: %w", err)
		}
		return candidate{
			addr: crypto.PubkeyToAddress(key.PublicKey),
			key:  key,
		}, nil

	case ModeContract:
		key, err := src.key()
		if err != nil {
			return candidate{}, fmt.Errorf("generate key: %w", err)
		}
		deployer := crypto.PubkeyToAddress(key.PublicKey)
		return candidate{
			addr:     crypto.CreateAddress(deployer, params.Nonce),
			key:      key,
			deployer: deployer,
		}, nil

	case ModeCreate2:
		salt, err := src.salt()
		if err != nil {
			return candidate{}, fmt.Errorf("generate salt: %w", err)
		}
		return candidate{
			addr: crypto.CreateAddress2(params.Factory, salt, params.InitCodeHash.Bytes()),
			salt: salt,
		}, nil

	default:
		return candidate{}, fmt.Errorf("unknown mode %d", int(mode))
	}
}
