package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// logHeight is the number of outcome lines visible at once.
const logHeight = 10

// App is the sync progress view following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports
	job   Job

	// ctx is cancelled when the user stops the run.
	ctx    context.Context
	cancel context.CancelFunc

	// events carries progress and the final result from the run goroutine.
	events chan tea.Msg

	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	status  *status.Bar

	// index and total describe the latest progress event.
	index    int
	total    int
	platform domain.Platform

	outcomes []domain.DeviceOutcome
	offset   int

	result *messages.RunFinished

	width int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a progress view for job.
func NewApp(ctx context.Context, ports *Ports, job Job) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	runCtx, cancel := context.WithCancel(ctx)

	return &App{
		ports:   ports,
		job:     job,
		ctx:     runCtx,
		cancel:  cancel,
		events:  make(chan tea.Msg),
		styles:  s,
		keymap:  km,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Title)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		status:  status.NewBar(s, km),
		width:   80,
	}, nil
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("intunesync - "+a.job.Title()),
		a.spinner.Tick,
		a.start(),
		a.waitForEvent(),
	)
}

// start runs the job and forwards its events. The final message is always
// a RunFinished, after which the channel is closed.
func (a *App) start() tea.Cmd {
	return func() tea.Msg {
		opts := driving.SyncOptions{
			Progress: func(ev domain.ProgressEvent) {
				a.events <- messages.ProgressReceived{Event: ev}
			},
		}
		result := a.job.Run(a.ctx, a.ports.Sync, opts)
		a.events <- result
		close(a.events)
		return nil
	}
}

// waitForEvent reads the next run message.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-a.events
		if !ok {
			return nil
		}
		return msg
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.status.SetWidth(msg.Width)
		a.help.Width = msg.Width
		a.bar.Width = min(max(msg.Width-20, 10), 60)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.CancelRequested:
		a.requestCancel()
		return a, nil

	case messages.ProgressReceived:
		a.applyProgress(msg.Event)
		return a, tea.Batch(a.bar.SetPercent(a.percent()), a.waitForEvent())

	case messages.RunFinished:
		a.finish(msg)
		return a, nil

	case spinner.TickMsg:
		if a.Done() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case progress.FrameMsg:
		model, cmd := a.bar.Update(msg)
		if bar, ok := model.(progress.Model); ok {
			a.bar = bar
		}
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		if a.Done() {
			return a, tea.Quit
		}
		a.requestCancel()
	case key.Matches(msg, a.keymap.Cancel):
		if !a.Done() {
			a.requestCancel()
		}
	case key.Matches(msg, a.keymap.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keymap.Up):
		if a.offset > 0 {
			a.offset--
		}
	case key.Matches(msg, a.keymap.Down):
		if a.offset < a.maxOffset() {
			a.offset++
		}
	}
	return a, nil
}

func (a *App) requestCancel() {
	if a.Done() {
		return
	}
	a.cancel()
	a.status.SetState(status.StateCancelling)
}

func (a *App) applyProgress(ev domain.ProgressEvent) {
	a.index = ev.Index
	a.total = ev.Total
	a.platform = ev.Platform
	a.outcomes = append(a.outcomes, ev.Outcome)
	a.offset = a.maxOffset()

	a.status.SetCounts(a.counts(ev.Counts))
	if a.status.State() != status.StateCancelling {
		a.status.SetState(status.StateSyncing)
	}
}

// counts returns the run-wide tally. Multi-platform runs restart the
// per-report counts for each platform, so those are summed from the log.
func (a *App) counts(latest domain.Counts) domain.Counts {
	if a.job.Kind != JobAllPlatforms {
		return latest
	}
	var c domain.Counts
	for _, o := range a.outcomes {
		switch o.Kind {
		case domain.OutcomeSynced:
			c.Synced++
		case domain.OutcomeFailed:
			c.Failed++
		case domain.OutcomeNotFound:
			c.NotFound++
		}
	}
	return c
}

func (a *App) finish(msg messages.RunFinished) {
	a.result = &msg
	a.cancel()

	switch {
	case msg.Report != nil:
		a.status.SetCounts(msg.Report.Counts)
	case msg.Aggregate != nil:
		a.status.SetCounts(msg.Aggregate.Total)
	}

	if msg.Err != nil && !msg.Cancelled() {
		a.status.SetState(status.StateError)
		a.status.SetMessage(msg.Err.Error())
		return
	}
	a.status.SetState(status.StateDone)
}

func (a *App) percent() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.index) / float64(a.total)
}

func (a *App) maxOffset() int {
	return max(len(a.outcomes)-logHeight, 0)
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render(a.job.Title()))
	b.WriteString("\n\n")

	b.WriteString(a.renderProgress())
	b.WriteString("\n\n")

	if log := a.renderLog(); log != "" {
		b.WriteString(log)
		b.WriteString("\n")
	}

	if a.result != nil {
		b.WriteString(a.renderSummary())
		b.WriteString("\n")
	}

	b.WriteString(a.status.View())
	if a.help.ShowAll {
		b.WriteString("\n")
		b.WriteString(a.help.View(a.keymap))
	}
	return b.String()
}

func (a *App) renderProgress() string {
	if a.total == 0 && !a.Done() {
		return a.spinner.View() + " " + a.styles.Muted.Render("Fetching devices...")
	}

	label := fmt.Sprintf(" %d/%d", a.index, a.total)
	if a.platform != "" && a.job.Kind == JobAllPlatforms {
		label += " " + a.styles.Subtitle.Render(a.platform.String())
	}
	prefix := a.spinner.View() + " "
	if a.Done() {
		prefix = "  "
	}
	return prefix + a.bar.View() + a.styles.Muted.Render(label)
}

func (a *App) renderLog() string {
	if len(a.outcomes) == 0 {
		return ""
	}

	end := min(a.offset+logHeight, len(a.outcomes))
	lines := make([]string, 0, end-a.offset)
	for _, o := range a.outcomes[a.offset:end] {
		line := fmt.Sprintf("%s %-24s %-10s %s",
			styles.OutcomeSymbol(o.Kind), o.Name, o.Platform, o.Kind.Description())
		if o.Reason != "" {
			line += ": " + o.Reason
		}
		lines = append(lines, a.styles.Outcome(o.Kind).Render(line))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderSummary() string {
	r := a.result
	switch {
	case r.Err != nil && r.Cancelled():
		return a.styles.Warning.Render("Cancelled. Partial results above.")
	case r.Err != nil:
		return a.styles.Error.Render("Sync failed: " + r.Err.Error())
	case r.Aggregate != nil && r.Aggregate.HasProblems():
		return a.styles.Warning.Render("Finished with problems.")
	case r.Report != nil && r.Report.HasProblems():
		return a.styles.Warning.Render("Finished with problems.")
	}
	return a.styles.Success.Render("All devices synced.")
}

// Done returns true once the run has reported back.
func (a *App) Done() bool {
	return a.result != nil
}

// Result returns the run outcome, or nil while it is still running.
func (a *App) Result() *messages.RunFinished {
	return a.result
}

// Outcomes returns the outcomes received so far.
func (a *App) Outcomes() []domain.DeviceOutcome {
	return a.outcomes
}

// Status returns the status bar state.
func (a *App) Status() status.State {
	return a.status.State()
}

// Run shows the progress view until the user quits after the run finishes.
func Run(ctx context.Context, ports *Ports, job Job, opts ...tea.ProgramOption) (*messages.RunFinished, error) {
	app, err := NewApp(ctx, ports, job)
	if err != nil {
		return nil, err
	}
	defer app.cancel()

	final, err := tea.NewProgram(app, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("running tui: %w", err)
	}

	done, ok := final.(*App)
	if !ok || done.Result() == nil {
		return nil, ErrInterrupted
	}
	return done.Result(), nil
}
