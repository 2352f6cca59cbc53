package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

type progressSpinner interface {
	Stop() error
	Success(...any)
	Fail(...any)
	UpdateText(string)
}

type progressSpinnerFactory func(w io.Writer, text string) (progressSpinner, error)

var defaultSpinnerFactory progressSpinnerFactory = func(w io.Writer, text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(false).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// progress reports the stages of a command one spinner at a time. Only one stage runs at once;
// starting a stage settles the previous one as done.
type progress struct {
	mu             sync.Mutex
	w              io.Writer
	disabled       bool
	spinnerFactory progressSpinnerFactory
	current        progressSpinner
	stage          string
	started        time.Time
	now            func() time.Time
}

type progressOption func(*progress)

// withProgressOutput enables or disables terminal output.
func withProgressOutput(enabled bool) progressOption {
	return func(p *progress) {
		p.disabled = !enabled
	}
}

func withProgressSpinnerFactory(factory progressSpinnerFactory) progressOption {
	return func(p *progress) {
		p.spinnerFactory = factory
	}
}

func newProgress(w io.Writer, opts ...progressOption) *progress {
	pterm.Success.Prefix = pterm.Prefix{
		Text:  "✓",
		Style: pterm.NewStyle(pterm.FgGreen),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "✗",
		Style: pterm.NewStyle(pterm.FgRed),
	}
	pterm.DefaultSpinner.Style = pterm.NewStyle(pterm.FgCyan)

	p := &progress{
		w:              w,
		spinnerFactory: defaultSpinnerFactory,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins a stage, completing the running one first.
func (p *progress) Start(stage string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.succeedLocked("")
	p.stage = stage
	p.started = p.now()
	if p.disabled {
		return nil
	}
	spinner, err := p.spinnerFactory(p.w, stage)
	if err != nil {
		return fmt.Errorf("failed to start spinner: %w", err)
	}
	p.current = spinner
	return nil
}

// Update replaces the text of the running stage.
func (p *progress) Update(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.UpdateText(text)
	}
}

// Done completes the running stage, with message in place of the stage name if given.
func (p *progress) Done(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.succeedLocked(message)
}

// Fail ends the running stage with err.
func (p *progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stage == "" {
		return
	}
	msg := fmt.Sprintf("%s: %v", p.stage, err)
	p.stage = ""
	if p.disabled {
		return
	}
	if p.current != nil {
		p.current.Fail(msg)
		p.current = nil
		return
	}
	pterm.Error.WithWriter(p.w).Println(msg)
}

// Stop drops any running spinner without reporting an outcome.
func (p *progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = ""
	if p.current != nil {
		_ = p.current.Stop() //nolint:errcheck
		p.current = nil
	}
}

func (p *progress) succeedLocked(message string) {
	if p.stage == "" {
		return
	}
	if message == "" {
		message = p.stage
	}
	message += fmt.Sprintf(" (%s)", p.now().Sub(p.started).Round(time.Millisecond))
	p.stage = ""
	if p.disabled {
		return
	}
	if p.current != nil {
		p.current.Success(message)
		p.current = nil
		return
	}
	pterm.Success.WithWriter(p.w).Println(message)
}
