package runner

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ScanProgress draws a spinner and progress bar while a workspace index scan
// runs. Use it only when w is a terminal.
type ScanProgress struct {
	program *tea.Program
}

// NewScanProgress creates a progress view for a scan of root.
func NewScanProgress(w io.Writer, root string) *ScanProgress {
	p := tea.NewProgram(newScanModel(root),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	return &ScanProgress{program: p}
}

// Start runs the event loop in the background.
func (p *ScanProgress) Start() {
	go func() {
		_, _ = p.program.Run()
	}()
}

// Update reports done of total files read. It is safe for concurrent use.
func (p *ScanProgress) Update(done, total int) {
	p.program.Send(scanProgressMsg{done: done, total: total})
}

// Stop clears the view and waits for the event loop to exit.
func (p *ScanProgress) Stop() {
	p.program.Send(scanDoneMsg{})
	p.program.Wait()
}

type (
	scanProgressMsg struct{ done, total int }
	scanDoneMsg     struct{}
)

type scanModel struct {
	styles  *Styles
	spinner spinner.Model
	bar     progress.Model
	root    string
	done    int
	total   int
	stopped bool
}

func newScanModel(root string) *scanModel {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 10,
	}
	s.Style = DefaultStyles().Path

	return &scanModel{
		styles:  DefaultStyles(),
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(string(colorAccent)),
			progress.WithFillCharacters('█', '░'),
			progress.WithoutPercentage(),
			progress.WithWidth(30),
		),
		root: root,
	}
}

func (m *scanModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *scanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // bubbletea.Model interface required by tea.Program
	switch msg := msg.(type) {
	case scanProgressMsg:
		// Workers report out of order.
		if msg.done >= m.done {
			m.done = msg.done
		}

		m.total = msg.total

	case scanDoneMsg:
		m.stopped = true

		return m, tea.Quit

	case spinner.TickMsg:
		if m.stopped {
			return m, nil
		}

		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

// ratio is the completed share of the scan in [0, 1].
func (m *scanModel) ratio() float64 {
	if m.total == 0 {
		return 0
	}

	return min(float64(m.done)/float64(m.total), 1)
}

func (m *scanModel) View() string {
	if m.stopped {
		return ""
	}

	if m.total == 0 {
		return fmt.Sprintf("%s %s %s\n", m.spinner.View(), m.styles.Dim.Render("discovering"), m.styles.Path.Render(m.root))
	}

	return fmt.Sprintf("%s %s %s %s\n",
		m.spinner.View(),
		m.styles.Path.Render(m.root),
		m.bar.ViewAs(m.ratio()),
		m.styles.Dim.Render(fmt.Sprintf("%d/%d", m.done, m.total)),
	)
}
