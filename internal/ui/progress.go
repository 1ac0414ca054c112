package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rhai-examples/qgate/internal/pipeline"
)

// Progress shows live gate and pipeline activity on stderr, leaving stdout
// to reports and tool output.
type Progress interface {
	// Check shows name running over files files until Stop is called.
	Check(name string, files int) Activity
	// Jobs tracks a pipeline run of total jobs.
	Jobs(total int) JobBoard
}

// Activity is the indicator of one running check.
type Activity interface {
	Stop()
}

// JobBoard counts finished pipeline jobs and shows their verdicts.
type JobBoard interface {
	Record(res pipeline.JobResult)
	Done()
}

type liveProgress struct {
	theme    *Theme
	headless *HeadlessManager
	out      io.Writer
}

// NewProgress creates a Progress. It animates on a terminal and falls back to
// one plain line per event when headless or colorless.
func NewProgress(theme *Theme, hm *HeadlessManager) Progress {
	return &liveProgress{theme: theme, headless: hm, out: os.Stderr}
}

func (p *liveProgress) plain() bool {
	return p.headless.IsHeadless() || p.theme.NoColor
}

func (p *liveProgress) Check(name string, files int) Activity {
	if p.plain() {
		_, _ = fmt.Fprintf(p.out, "%s %s\n", symbolRunning, checkLabel(name, files))
		return plainActivity{}
	}
	return startProgram(newCheckModel(p.theme, name, files, time.Now), p.out)
}

func (p *liveProgress) Jobs(total int) JobBoard {
	if p.plain() {
		return &plainBoard{total: total, out: p.out}
	}
	return &liveBoard{program: startProgram(newBoardModel(p.theme, total), p.out)}
}

// checkLabel renders "ruff on 3 files"; a check without a file list shows
// only its name.
func checkLabel(name string, files int) string {
	switch files {
	case 0:
		return name
	case 1:
		return name + " on 1 file"
	default:
		return fmt.Sprintf("%s on %d files", name, files)
	}
}

// jobVerdict renders "quality PASS" or "tests FAIL at mypy".
func jobVerdict(res pipeline.JobResult) string {
	if res.Passed {
		return res.Name + " PASS"
	}
	if res.Failed != "" {
		return res.Name + " FAIL at " + res.Failed
	}
	return res.Name + " FAIL"
}

// stopMsg ends a running indicator.
type stopMsg struct{}

// program runs a bubbletea model in the background until stopped.
type program struct {
	p    *tea.Program
	once sync.Once
}

func startProgram(m tea.Model, out io.Writer) *program {
	// The program must not read stdin: git hooks and piped input own it.
	p := tea.NewProgram(m, tea.WithInput(nil), tea.WithOutput(out))
	go func() { _, _ = p.Run() }()
	return &program{p: p}
}

// Stop ends the program and waits until its last frame is cleared.
func (pr *program) Stop() {
	pr.once.Do(func() {
		pr.p.Send(stopMsg{})
		pr.p.Wait()
	})
}

// checkModel animates a spinner next to the running check and its elapsed
// time.
type checkModel struct {
	spinner spinner.Model
	label   string
	started time.Time
	now     func() time.Time
	done    bool
}

func newCheckModel(theme *Theme, name string, files int, now func() time.Time) checkModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	if !theme.NoColor {
		s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Colors.Primary))
	}
	return checkModel{spinner: s, label: checkLabel(name, files), started: now(), now: now}
}

func (m checkModel) Init() tea.Cmd { return m.spinner.Tick }

func (m checkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m checkModel) View() string {
	if m.done {
		return ""
	}
	elapsed := m.now().Sub(m.started).Truncate(100 * time.Millisecond)
	return fmt.Sprintf("%s %s (%s)\n", m.spinner.View(), m.label, elapsed)
}

// jobMsg reports one finished pipeline job.
type jobMsg pipeline.JobResult

// boardModel draws a bar of finished jobs with their verdicts underneath.
type boardModel struct {
	bar      progress.Model
	total    int
	verdicts []string
	failed   int
	done     bool
}

func newBoardModel(theme *Theme, total int) boardModel {
	opt := progress.WithDefaultGradient()
	if !theme.NoColor {
		opt = progress.WithGradient(theme.Colors.Primary, theme.Colors.Secondary)
	}
	return boardModel{bar: progress.New(opt, progress.WithWidth(40)), total: total}
}

func (m boardModel) Init() tea.Cmd { return nil }

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case jobMsg:
		res := pipeline.JobResult(msg)
		m.verdicts = append(m.verdicts, jobVerdict(res))
		if !res.Passed {
			m.failed++
		}
		return m, nil
	case stopMsg:
		m.done = true
		return m, tea.Quit
	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m boardModel) View() string {
	if m.done {
		return ""
	}
	finished := len(m.verdicts)
	pct := 0.0
	if m.total > 0 {
		pct = float64(min(finished, m.total)) / float64(m.total)
	}
	head := fmt.Sprintf("%s %d/%d jobs", m.bar.ViewAs(pct), finished, m.total)
	if m.failed > 0 {
		head += fmt.Sprintf(", %d failed", m.failed)
	}
	if finished == 0 {
		return head + "\n"
	}
	return head + "\n  " + strings.Join(m.verdicts, "  ") + "\n"
}

type liveBoard struct {
	program *program
}

func (b *liveBoard) Record(res pipeline.JobResult) { b.program.p.Send(jobMsg(res)) }
func (b *liveBoard) Done()                         { b.program.Stop() }

type plainActivity struct{}

func (plainActivity) Stop() {}

// plainBoard prints one line per finished job. Jobs finish concurrently.
type plainBoard struct {
	mu       sync.Mutex
	total    int
	finished int
	failed   int
	out      io.Writer
}

func (b *plainBoard) Record(res pipeline.JobResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished++
	if !res.Passed {
		b.failed++
	}
	_, _ = fmt.Fprintf(b.out, "[%d/%d] %s (%s)\n", b.finished, b.total, jobVerdict(res), res.Duration.Round(10*time.Millisecond))
}

func (b *plainBoard) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = fmt.Fprintf(b.out, "%d/%d jobs finished, %d failed\n", b.finished, b.total, b.failed)
}
