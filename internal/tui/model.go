package tui

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/maksfourlife/address-utils/internal/search"
)

// uiState is the current screen of the TUI.
type uiState int

const (
	stateForm    uiState = iota // search parameter form
	stateRunning                // search in progress
	stateResults                // search complete
)

// Internal messages.
type tickMsg time.Time
type resultMsg struct{ m search.Match }
type doneMsg struct{}
type failedMsg struct{ err error }
type savedMsg struct{ path string }
type saveErrMsg struct{ err error }

// Form focus indices.
const (
	fieldTarget   = 0
	fieldMask     = 1
	fieldMode     = 2
	fieldNonce    = 3
	fieldFactory  = 4
	fieldInitCode = 5
	fieldWorkers  = 6
	numFields     = 7
)

var modes = []search.Mode{search.ModeEOA, search.ModeContract, search.ModeCreate2}

// inputIndex maps a focusIdx to m.inputs slice index (-1 if not a text input).
func inputIndex(fi int) int {
	switch fi {
	case fieldTarget:
		return 0
	case fieldMask:
		return 1
	case fieldNonce:
		return 2
	case fieldFactory:
		return 3
	case fieldInitCode:
		return 4
	case fieldWorkers:
		return 5
	default:
		return -1
	}
}

// Model is the bubbletea application model.
type Model struct {
	state  uiState
	width  int
	height int

	// Form: target(0) mask(1) nonce(2) factory(3) init-code-hash(4) workers(5).
	inputs   []textinput.Model
	focusIdx int
	modeIdx  int

	// Running state.
	ctx       context.Context
	cancel    context.CancelFunc
	stats     *search.Stats
	resultCh  chan search.Match
	startTime time.Time
	spinner   spinner.Model

	// Shared.
	match *search.Match
	cfg   search.Config

	// Status messages.
	errMsg  string
	infoMsg string

	// Final stats (captured when done).
	finalAttempts int64
	finalElapsed  time.Duration
}

// New creates a fresh Model ready for the form state.
func New() Model {
	inputs := make([]textinput.Model, 6)

	newInput := func(placeholder string, width, limit int) textinput.Model {
		t := textinput.New()
		t.Placeholder = placeholder
		t.CharLimit = limit
		t.Width = width
		return t
	}

	inputs[0] = newInput("0x0000…  (40 hex digits)", 46, 42) // target
	inputs[1] = newInput("0xffff…  (40 hex digits)", 46, 42) // mask
	inputs[2] = newInput("0", 10, 20)                        // nonce
	inputs[2].SetValue("0")
	inputs[3] = newInput("0x…  (40 hex digits)", 46, 42) // factory
	inputs[4] = newInput("0x…  (64 hex digits)", 46, 66) // init-code hash
	inputs[5] = newInput(fmt.Sprintf("%d", search.DefaultWorkers()), 6, 4)
	inputs[5].SetValue(fmt.Sprintf("%d", search.DefaultWorkers()))

	inputs[0].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return Model{
		inputs:  inputs,
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// ---- Update ----------------------------------------------------------------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.state == stateRunning {
			return m, tick()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case resultMsg:
		if m.state == stateRunning {
			match := msg.m
			m.match = &match
			return m, waitForResult(m.resultCh)
		}
		return m, nil

	case doneMsg:
		m.finalAttempts = m.stats.Attempts.Load()
		m.finalElapsed = time.Since(m.startTime)
		if m.cancel != nil {
			m.cancel()
		}
		m.state = stateResults
		return m, nil

	case failedMsg:
		m.errMsg = "Search failed: " + msg.err.Error()
		return m, nil

	case savedMsg:
		m.infoMsg = "Saved to " + msg.path
		return m, nil

	case saveErrMsg:
		m.errMsg = "Save error: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Delegate unhandled msgs to focused text input when on form.
	if m.state == stateForm {
		return m.updateActiveInput(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {

	case stateForm:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			m.moveFocus(1)
			return m, nil

		case key.Matches(msg, keys.ShiftTab):
			m.moveFocus(-1)
			return m, nil

		case key.Matches(msg, keys.Left) && m.focusIdx == fieldMode:
			m.modeIdx = (m.modeIdx + len(modes) - 1) % len(modes)
			return m, nil

		case key.Matches(msg, keys.Right) && m.focusIdx == fieldMode:
			m.modeIdx = (m.modeIdx + 1) % len(modes)
			return m, nil

		case key.Matches(msg, keys.Enter):
			if err := m.prepareSearch(); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			return m, tea.Batch(
				m.runSearch(),
				waitForResult(m.resultCh),
				tick(),
				m.spinner.Tick,
			)

		default:
			return m.updateActiveInput(msg)
		}

	case stateRunning:
		if key.Matches(msg, keys.Stop) {
			if m.cancel != nil {
				m.cancel()
			}
		}

	case stateResults:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Save):
			m.infoMsg = ""
			m.errMsg = ""
			if m.match != nil {
				return m, saveMatch(*m.match)
			}
			return m, nil
		case key.Matches(msg, keys.New):
			next := New()
			next.width = m.width
			next.height = m.height
			return next, nil
		}
	}

	return m, nil
}

// updateActiveInput forwards the message to the focused text input and
// validates literal fields in real time.
func (m Model) updateActiveInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	idx := inputIndex(m.focusIdx)
	if idx < 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)

	switch m.focusIdx {
	case fieldTarget, fieldMask, fieldFactory:
		m.errMsg = addressValidationError(m.inputs[idx].Value(), fieldLabel(m.focusIdx))
	case fieldInitCode:
		m.errMsg = hashValidationError(m.inputs[idx].Value(), fieldLabel(m.focusIdx))
	}
	return m, cmd
}

func fieldLabel(fi int) string {
	switch fi {
	case fieldTarget:
		return "target"
	case fieldMask:
		return "mask"
	case fieldNonce:
		return "nonce"
	case fieldFactory:
		return "factory"
	case fieldInitCode:
		return "init-code hash"
	default:
		return ""
	}
}

func addressValidationError(val, label string) string {
	if strings.TrimSpace(val) == "" {
		return ""
	}
	if _, err := search.ParseAddress(val); err != nil {
		return fmt.Sprintf("%s: %v", label, err)
	}
	return ""
}

func hashValidationError(val, label string) string {
	if strings.TrimSpace(val) == "" {
		return ""
	}
	if _, err := search.ParseHash(val); err != nil {
		return fmt.Sprintf("%s: %v", label, err)
	}
	return ""
}

// fieldVisible reports whether a field applies to the selected mode.
func (m Model) fieldVisible(fi int) bool {
	switch fi {
	case fieldNonce:
		return modes[m.modeIdx] == search.ModeContract
	case fieldFactory, fieldInitCode:
		return modes[m.modeIdx] == search.ModeCreate2
	default:
		return true
	}
}

// moveFocus advances focus by delta, skipping fields the selected mode
// does not use.
func (m *Model) moveFocus(delta int) {
	for {
		m.focusIdx = (m.focusIdx + delta + numFields) % numFields
		if m.fieldVisible(m.focusIdx) {
			break
		}
	}
	m.syncFocus()
}

// syncFocus blurs all inputs and focuses the active one (if applicable).
func (m *Model) syncFocus() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	if idx := inputIndex(m.focusIdx); idx >= 0 {
		m.inputs[idx].Focus()
	}
}

// prepareSearch validates form values and transitions to stateRunning.
func (m *Model) prepareSearch() error {
	var cfg search.Config
	var err error
	cfg.Mode = modes[m.modeIdx]

	if cfg.Target, err = search.ParseAddress(m.inputs[0].Value()); err != nil {
		return fmt.Errorf("target: %v", err)
	}
	if cfg.Mask, err = search.ParseAddress(m.inputs[1].Value()); err != nil {
		return fmt.Errorf("mask: %v", err)
	}

	switch cfg.Mode {
	case search.ModeContract:
		nonce := strings.TrimSpace(m.inputs[2].Value())
		if nonce == "" {
			nonce = "0"
		}
		if cfg.Params.Nonce, err = strconv.ParseUint(nonce, 10, 64); err != nil {
			return fmt.Errorf("nonce must be an unsigned integer")
		}
	case search.ModeCreate2:
		if cfg.Params.Factory, err = search.ParseAddress(m.inputs[3].Value()); err != nil {
			return fmt.Errorf("factory: %v", err)
		}
		if cfg.Params.InitCodeHash, err = search.ParseHash(m.inputs[4].Value()); err != nil {
			return fmt.Errorf("init-code hash: %v", err)
		}
	}

	workers, err := strconv.Atoi(strings.TrimSpace(m.inputs[5].Value()))
	if err != nil || workers < 1 {
		return fmt.Errorf("workers must be a positive integer")
	}
	cfg.Workers = workers

	ctx, cancel := context.WithCancel(context.Background())
	m.cfg = cfg
	m.ctx = ctx
	m.cancel = cancel
	m.stats = &search.Stats{}
	m.resultCh = make(chan search.Match, 1)
	m.match = nil
	m.startTime = time.Now()
	m.errMsg = ""
	m.infoMsg = ""
	m.state = stateRunning
	return nil
}

// runSearch fires the worker pool as a background tea.Cmd.
func (m Model) runSearch() tea.Cmd {
	cfg := m.cfg
	ch := m.resultCh
	stats := m.stats
	ctx := m.ctx
	return func() tea.Msg {
		if err := search.Run(ctx, cfg, ch, stats); err != nil {
			return failedMsg{err}
		}
		return nil
	}
}

func waitForResult(ch <-chan search.Match) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return resultMsg{m: r}
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func saveMatch(match search.Match) tea.Cmd {
	return func() tea.Msg {
		path := fmt.Sprintf("address-utils-%s.txt", time.Now().Format("20060102-150405"))
		f, err := os.Create(path)
		if err != nil {
			return saveErrMsg{err}
		}
		defer f.Close()
		fmt.Fprintf(f, "Mode:        %s\n", match.Mode)
		fmt.Fprintf(f, "Address:     %s\n", match.Address.Hex())
		switch match.Mode {
		case search.ModeEOA:
			fmt.Fprintf(f, "Private Key: 0x%s\n", hex.EncodeToString(crypto.FromECDSA(match.PrivateKey)))
		case search.ModeContract:
			fmt.Fprintf(f, "Deployer:    %s\n", match.Deployer.Hex())
			fmt.Fprintf(f, "Private Key: 0x%s\n", hex.EncodeToString(crypto.FromECDSA(match.PrivateKey)))
		case search.ModeCreate2:
			fmt.Fprintf(f, "Salt:        %s\n", match.Salt.Hex())
		}
		return savedMsg{path: path}
	}
}

// ---- View ------------------------------------------------------------------

func (m Model) View() string {
	var body string
	switch m.state {
	case stateForm:
		body = m.viewForm()
	case stateRunning:
		body = m.viewRunning()
	case stateResults:
		body = m.viewResults()
	}

	box := styleBox.Render(body)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Center, box)
	}
	return box
}

// ---- Form view -------------------------------------------------------------

func (m Model) viewForm() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("address-utils") + "\n")
	b.WriteString(styleMuted.Render("Search for an address matching target & mask") + "\n\n")

	row := func(label string, fi int, field string) string {
		lbl := styleLabel
		if m.focusIdx == fi {
			lbl = styleSelected
		}
		return lbl.Width(11).Render(label) + "  " + field + "\n"
	}

	b.WriteString(row("Target", fieldTarget, m.inputs[0].View()))
	b.WriteString(row("Mask", fieldMask, m.inputs[1].View()))
	b.WriteString("\n")
	b.WriteString(row("Mode", fieldMode, m.viewModeSelector()))

	switch modes[m.modeIdx] {
	case search.ModeContract:
		b.WriteString(row("Nonce", fieldNonce, m.inputs[2].View()))
	case search.ModeCreate2:
		b.WriteString(row("Factory", fieldFactory, m.inputs[3].View()))
		b.WriteString(row("Init hash", fieldInitCode, m.inputs[4].View()))
	}

	b.WriteString(row("Workers", fieldWorkers, m.inputs[5].View()))
	b.WriteString("\n")

	// Difficulty hint once the mask parses.
	if mask, err := search.ParseAddress(m.inputs[1].Value()); err == nil {
		if d := search.MaskDifficulty(mask); d != nil {
			b.WriteString(styleMuted.Render(fmt.Sprintf("  %d significant bits  •  ~1 in %s",
				search.MaskBits(mask), formatBigInt(d))) + "\n")
		} else {
			b.WriteString(styleMuted.Render("  zero mask: the first candidate matches") + "\n")
		}
	}

	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(styleDanger.Render("  "+m.errMsg) + "\n\n")
	}

	help := styleHelp.PaddingLeft(13)
	b.WriteString(help.Render("tab/shift+tab move between fields") + "\n")
	b.WriteString(help.Render("←/→ change derivation mode") + "\n")
	b.WriteString(help.Render("enter starts search") + "\n")
	b.WriteString(help.Render("esc/ctrl+c/q quits"))
	return b.String()
}

func (m Model) viewModeSelector() string {
	parts := make([]string, len(modes))
	for i, mode := range modes {
		s := mode.String()
		if i == m.modeIdx {
			parts[i] = styleAccent.Render("[" + s + "]")
		} else {
			parts[i] = styleMuted.Render(s)
		}
	}
	return strings.Join(parts, "  ")
}

// ---- Running view ----------------------------------------------------------

func (m Model) viewRunning() string {
	var b strings.Builder

	elapsed := time.Since(m.startTime)
	attempts := m.stats.Attempts.Load()
	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(attempts) / elapsed.Seconds()
	}

	b.WriteString(styleTitle.Render("address-utils") + "  " + m.spinner.View() + "\n")
	b.WriteString(styleMuted.Render(fmt.Sprintf("Searching %s candidates for %s under %s",
		m.cfg.Mode, truncate(m.cfg.Target.Hex(), 14), truncate(m.cfg.Mask.Hex(), 14))) + "\n\n")

	eta := computeETA(m.cfg, rate)
	etaStr := "—"
	if eta > 0 {
		etaStr = fmtDuration(eta)
	}

	b.WriteString(statRow("Tried", formatBig(attempts)) + "  " + statRow("Rate", fmt.Sprintf("%.0f/s", rate)) + "\n")
	b.WriteString(statRow("Time", fmtDuration(elapsed)) + "  " + statRow("ETA", etaStr) + "\n\n")

	b.WriteString(styleHelp.Render("ctrl+c · q  stop search"))
	return b.String()
}

// ---- Results view ----------------------------------------------------------

func (m Model) viewResults() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("address-utils") + "\n")

	if m.match == nil {
		b.WriteString(styleMuted.Render("Search stopped, no match found") + "\n")
		b.WriteString(styleMuted.Render(fmt.Sprintf("%s tried  •  %s",
			formatBig(m.finalAttempts), fmtDuration(m.finalElapsed))) + "\n\n")
	} else {
		rate := float64(m.finalAttempts) / m.finalElapsed.Seconds()
		b.WriteString(styleSuccess.Render("Match found!") + "\n")
		b.WriteString(styleMuted.Render(fmt.Sprintf("%s tried  •  %s  •  %.0f addr/s",
			formatBig(m.finalAttempts), fmtDuration(m.finalElapsed), rate)) + "\n\n")

		match := *m.match
		b.WriteString(styleLabel.Render("mode") + "  " + styleStat.Render(match.Mode.String()) + "\n")
		b.WriteString(styleLabel.Render("address") + "  " + styleStat.Render(match.Address.Hex()) + "\n")
		switch match.Mode {
		case search.ModeEOA:
			b.WriteString(styleLabel.Render("key") + "  " +
				styleKey.Render("0x"+hex.EncodeToString(crypto.FromECDSA(match.PrivateKey))) + "\n")
		case search.ModeContract:
			b.WriteString(styleLabel.Render("deployer") + "  " + styleStat.Render(match.Deployer.Hex()) + "\n")
			b.WriteString(styleLabel.Render("key") + "  " +
				styleKey.Render("0x"+hex.EncodeToString(crypto.FromECDSA(match.PrivateKey))) + "\n")
		case search.ModeCreate2:
			b.WriteString(styleLabel.Render("salt") + "  " + styleKey.Render(match.Salt.Hex()) + "\n")
		}
		b.WriteString("\n")
	}

	if m.infoMsg != "" {
		b.WriteString(styleSuccess.Render("✓ "+m.infoMsg) + "\n\n")
	}
	if m.errMsg != "" {
		b.WriteString(styleDanger.Render("✗ "+m.errMsg) + "\n\n")
	}

	b.WriteString(styleHelp.Render("s save  n new search  q quit"))
	return b.String()
}

// ---- Helpers ---------------------------------------------------------------

func computeETA(cfg search.Config, ratePerSec float64) time.Duration {
	if ratePerSec <= 0 {
		return 0
	}
	d := search.MaskDifficulty(cfg.Mask)
	if d == nil {
		return 0
	}
	secs, _ := new(big.Float).Quo(new(big.Float).SetInt(d), big.NewFloat(ratePerSec)).Float64()
	return time.Duration(secs * float64(time.Second))
}

func statRow(label, value string) string {
	return styleLabel.Width(7).Render(label) + "  " + styleAccent.Render(value)
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

// formatBig formats a live counter (int64) in a human-readable way.
func formatBig(n int64) string {
	switch {
	case n < 1_000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	case n < 1_000_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1e6)
	default:
		return fmt.Sprintf("%.3fB", float64(n)/1e9)
	}
}

// formatBigInt formats a large difficulty number (e.g. 2^32) compactly.
func formatBigInt(n *big.Int) string {
	f, _ := new(big.Float).SetInt(n).Float64()
	switch {
	case f < 1_000:
		return fmt.Sprintf("%.0f", f)
	case f < 1_000_000:
		return fmt.Sprintf("%.1fK", f/1e3)
	case f < 1_000_000_000:
		return fmt.Sprintf("%.2fM", f/1e6)
	case f < 1_000_000_000_000:
		return fmt.Sprintf("%.2fB", f/1e9)
	default:
		return fmt.Sprintf("%.2fT", f/1e12)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
