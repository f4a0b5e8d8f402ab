// Package search implements a parallel brute-force search for an
// address matching a caller-supplied target under a bitmask. Candidates
// are derived from fresh randomness by one of three strategies (direct
// EOA, CREATE contract, CREATE2 contract); the first worker to find a
// match wins and the whole pool drains within a bounded number of
// iterations.
package search

import (
	"context"
	"crypto/ecdsa"
	"runtime"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Config holds all search parameters for one run. Target and Mask share
// the fixed 160-bit address width; Params carries the mode-specific
// derivation inputs and is read-only for the run's duration.
type Config struct {
	Mode    Mode
	Params  Params
	Target  common.Address
	Mask    common.Address
	Workers int
}

// Match is the single result of a successful run: the matched address
// plus whatever material reconstructs it. PrivateKey is nil in
// ModeCreate2, Deployer is only set in ModeContract, Salt only in
// ModeCreate2.
type Match struct {
	Mode       Mode
	Address    common.Address
	PrivateKey *ecdsa.PrivateKey
	Deployer   common.Address
	Salt       common.Hash
}

// Stats holds live counters updated atomically during a search. May be
// nil, in which case workers skip counting.
type Stats struct {
	Attempts atomic.Int64
}

// DefaultWorkers is the default pool size: one goroutine per logical
// CPU, minus one left for the coordinator and reporter.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Run spawns cfg.Workers goroutines that search until one finds a
// candidate matching cfg.Target under cfg.Mask or ctx is cancelled. At
// most one Match is sent on resultCh (which must have capacity >= 1);
// the channel is closed once every worker has stopped. A non-nil error
// means a worker failed abnormally — the underlying cryptographic
// primitives refusing well-formed input — and the run is void.
func Run(ctx context.Context, cfg Config, resultCh chan<- Match, stats *Stats) error {
	workers := cfg.Workers
	if workers < 1 {
		workers = DefaultWorkers()
	}

	// Single-writer-wins shutdown gate: the first successful CAS owns
	// the Match; everyone else observes the flag and stops.
	var won atomic.Bool

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			src := newSource()
			for {
				// Shutdown is checked before deriving, so at most one
				// in-flight candidate per worker outlives a win.
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				if won.Load() {
					return nil
				}

				c, err := deriveCandidate(cfg.Mode, cfg.Params, src)
				if err != nil {
					return err
				}
				if stats != nil {
					stats.Attempts.Add(1)
				}

				if !Matches(c.addr, cfg.Target, cfg.Mask) {
					continue
				}
				if !won.CompareAndSwap(false, true) {
					return nil
				}
				select {
				case resultCh <- Match{
					Mode:       cfg.Mode,
					Address:    c.addr,
					PrivateKey: c.key,
					Deployer:   c.deployer,
					Salt:       c.salt,
				}:
				case <-gctx.Done():
				}
				cancel()
				return nil
			}
		})
	}

	err := g.Wait()
	close(resultCh)
	return err
}
