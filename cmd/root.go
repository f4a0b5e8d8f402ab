package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maksfourlife/address-utils/internal/search"
)

// version is set at build time via -ldflags "-X github.com/maksfourlife/address-utils/cmd.version=vX.Y.Z"
var version = "dev"

var (
	flagTarget      string
	flagMask        string
	flagMode        string
	flagNonce       uint64
	flagFactory     string
	flagInitCode    string
	flagWorkers     int
	flagReportEvery time.Duration
	flagTUI         bool
	flagOutput      string
	flagFormat      string
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

var rootCmd = &cobra.Command{
	Use:     "address-utils",
	Version: version,
	Short:   "Vanity address search under a bitmask",
	Long: `address-utils brute-forces key material until a derived address matches
the target on every bit position the mask selects. Three derivation
modes are supported: a plain EOA address, the CREATE contract address a
fresh key would deploy at a fixed nonce, and the CREATE2 address of a
random salt under a fixed factory and init-code hash.

Examples:
  address-utils --target 0x0000...0000 --mask 0xffff...0000
  address-utils --mode contract --nonce 0 --target 0xdead... --mask 0xffff...
  address-utils --mode create2 --factory 0x4e59... --init-code-hash 0x21c3... \
      --target 0x0000... --mask 0xff00...
  address-utils              (launch interactive TUI)`,
	RunE: runRoot,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagTarget, "target", "t", "", "target address (40 hex digits)")
	rootCmd.Flags().StringVarP(&flagMask, "mask", "m", "", "bitmask selecting which target bits must match (40 hex digits)")
	rootCmd.Flags().StringVar(&flagMode, "mode", "eoa", "derivation mode: eoa, contract or create2")
	rootCmd.Flags().Uint64Var(&flagNonce, "nonce", 0, "deployment nonce (contract mode)")
	rootCmd.Flags().StringVar(&flagFactory, "factory", "", "factory address (create2 mode)")
	rootCmd.Flags().StringVar(&flagInitCode, "init-code-hash", "", "init-code hash, 64 hex digits (create2 mode)")
	rootCmd.Flags().IntVarP(&flagWorkers, "workers", "w", search.DefaultWorkers(), "number of parallel workers")
	rootCmd.Flags().DurationVar(&flagReportEvery, "report-every", 3*time.Second, "progress report interval (0 disables)")
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "launch interactive TUI (default when no target is given)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "save the result to this file")
	rootCmd.Flags().StringVar(&flagFormat, "format", "text", "output format: text or json")
}

func runRoot(cmd *cobra.Command, args []string) error {
	if flagTUI || (flagTarget == "" && flagMask == "") {
		return runTUI()
	}
	return runCLI(cmd)
}

// buildConfig validates the flag set and assembles a search config.
func buildConfig() (search.Config, error) {
	var cfg search.Config

	mode, err := search.ParseMode(flagMode)
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode

	if cfg.Target, err = search.ParseAddress(flagTarget); err != nil {
		return cfg, fmt.Errorf("--target: %v", err)
	}
	if cfg.Mask, err = search.ParseAddress(flagMask); err != nil {
		return cfg, fmt.Errorf("--mask: %v", err)
	}

	switch mode {
	case search.ModeContract:
		cfg.Params.Nonce = flagNonce
	case search.ModeCreate2:
		if flagFactory == "" || flagInitCode == "" {
			return cfg, fmt.Errorf("create2 mode requires --factory and --init-code-hash")
		}
		if cfg.Params.Factory, err = search.ParseAddress(flagFactory); err != nil {
			return cfg, fmt.Errorf("--factory: %v", err)
		}
		if cfg.Params.InitCodeHash, err = search.ParseHash(flagInitCode); err != nil {
			return cfg, fmt.Errorf("--init-code-hash: %v", err)
		}
	}

	if flagWorkers < 1 {
		return cfg, fmt.Errorf("--workers must be at least 1")
	}
	cfg.Workers = flagWorkers
	return cfg, nil
}

func runCLI(cmd *cobra.Command) error {
	if flagFormat != "text" && flagFormat != "json" {
		return fmt.Errorf("--format must be text or json")
	}
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if flagFormat == "text" {
		bold.Printf("address-utils  •  mode: %s  •  workers: %d\n", cfg.Mode, cfg.Workers)
		yellow.Printf("target: %s  mask: %s\n", cfg.Target.Hex(), cfg.Mask.Hex())
		if d := search.MaskDifficulty(cfg.Mask); d != nil {
			cyan.Printf("%d significant bits  •  ~1 in %s candidates match\n",
				search.MaskBits(cfg.Mask), humanize.BigComma(d))
		}
		fmt.Println()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats := &search.Stats{}
	resultCh := make(chan search.Match, 1)
	runErr := make(chan error, 1)
	go func() { runErr <- search.Run(ctx, cfg, resultCh, stats) }()

	interval := flagReportEvery
	if interval <= 0 {
		interval = time.Hour // reporting disabled, keep the select shape
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()

	var match *search.Match
loop:
	for {
		select {
		case m, ok := <-resultCh:
			if !ok {
				break loop
			}
			match = &m
		case <-ticker.C:
			if flagFormat == "text" && flagReportEvery > 0 {
				printProgress(cfg, stats.Attempts.Load(), time.Since(start))
			}
		}
	}
	if err := <-runErr; err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	elapsed := time.Since(start)
	if match == nil {
		if flagFormat == "text" {
			fmt.Printf("\r\033[K%s  no match  •  %s tried  •  %s\n",
				bold.Sprint("cancelled"), humanize.Comma(stats.Attempts.Load()), elapsed.Round(time.Millisecond))
		}
		return nil
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonMatch(*match, stats.Attempts.Load(), elapsed))
	}

	printMatch(*match, stats.Attempts.Load(), elapsed)

	if flagOutput != "" {
		if err := SaveMatch(flagOutput, *match); err != nil {
			fmt.Fprintf(os.Stderr, "error saving file: %v\n", err)
		} else {
			green.Printf("saved to %s\n", flagOutput)
		}
	}
	return nil
}

func printProgress(cfg search.Config, attempts int64, elapsed time.Duration) {
	rate := float64(attempts) / elapsed.Seconds()
	etaStr := ""
	if eta := computeETA(cfg.Mask, rate); eta > 0 {
		etaStr = "  •  ETA " + fmtDuration(eta)
	}
	latStr := ""
	if attempts > 0 {
		per := time.Duration(float64(elapsed) * float64(cfg.Workers) / float64(attempts))
		latStr = fmt.Sprintf("  •  %s/candidate", per.Round(time.Nanosecond))
	}
	fmt.Printf("\r\033[K%s tried  •  %.0f addr/s%s  •  %s%s",
		humanize.Comma(attempts), rate, latStr, elapsed.Round(time.Second), etaStr)
}

// computeETA estimates remaining time from the mask difficulty and the
// current live rate.
func computeETA(mask common.Address, ratePerSec float64) time.Duration {
	if ratePerSec <= 0 {
		return 0
	}
	d := search.MaskDifficulty(mask)
	if d == nil {
		return 0
	}
	secs, _ := new(big.Float).Quo(new(big.Float).SetInt(d), big.NewFloat(ratePerSec)).Float64()
	return time.Duration(secs * float64(time.Second))
}

func printMatch(m search.Match, attempts int64, elapsed time.Duration) {
	rate := float64(attempts) / elapsed.Seconds()
	fmt.Printf("\r\033[K")
	fmt.Printf("\n%s  found after %s candidates (%.0f addr/s, %s)\n",
		green.Sprint("✓"), humanize.Comma(attempts), rate, elapsed.Round(time.Millisecond))

	bold.Printf("  Mode:        ")
	fmt.Println(m.Mode)
	bold.Printf("  Address:     ")
	cyan.Println(m.Address.Hex())

	switch m.Mode {
	case search.ModeEOA:
		bold.Printf("  Private key: ")
		red.Printf("0x%s\n", hex.EncodeToString(crypto.FromECDSA(m.PrivateKey)))
	case search.ModeContract:
		bold.Printf("  Deployer:    ")
		fmt.Println(m.Deployer.Hex())
		bold.Printf("  Private key: ")
		red.Printf("0x%s\n", hex.EncodeToString(crypto.FromECDSA(m.PrivateKey)))
	case search.ModeCreate2:
		bold.Printf("  Salt:        ")
		red.Println(m.Salt.Hex())
	}
	fmt.Println()
}

type matchJSON struct {
	Mode       string `json:"mode"`
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey,omitempty"`
	Deployer   string `json:"deployer,omitempty"`
	Salt       string `json:"salt,omitempty"`
	Attempts   int64  `json:"attempts"`
	ElapsedMS  int64  `json:"elapsedMs"`
}

func jsonMatch(m search.Match, attempts int64, elapsed time.Duration) matchJSON {
	out := matchJSON{
		Mode:      m.Mode.String(),
		Address:   m.Address.Hex(),
		Attempts:  attempts,
		ElapsedMS: elapsed.Milliseconds(),
	}
	if m.PrivateKey != nil {
		out.PrivateKey = "0x" + hex.EncodeToString(crypto.FromECDSA(m.PrivateKey))
	}
	if m.Mode == search.ModeContract {
		out.Deployer = m.Deployer.Hex()
	}
	if m.Mode == search.ModeCreate2 {
		out.Salt = m.Salt.Hex()
	}
	return out
}

// SaveMatch writes the match and its reconstruction material to path.
// Shared with the TUI's save action.
func SaveMatch(path string, m search.Match) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprintf(f, "Mode:        %s\n", m.Mode)
	fmt.Fprintf(f, "Address:     %s\n", m.Address.Hex())
	switch m.Mode {
	case search.ModeEOA:
		fmt.Fprintf(f, "Private Key: 0x%s\n", hex.EncodeToString(crypto.FromECDSA(m.PrivateKey)))
	case search.ModeContract:
		fmt.Fprintf(f, "Deployer:    %s\n", m.Deployer.Hex())
		fmt.Fprintf(f, "Private Key: 0x%s\n", hex.EncodeToString(crypto.FromECDSA(m.PrivateKey)))
	case search.ModeCreate2:
		fmt.Fprintf(f, "Salt:        %s\n", m.Salt.Hex())
	}
	return nil
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	days := h / 24
	h = h % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
