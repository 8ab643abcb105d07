package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/coldmail/internal/model"
	"github.com/amishk599/coldmail/internal/pipeline"
)

// Runner executes one generate request. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, url string, observe pipeline.Observer) (*pipeline.Result, error)
}

const (
	title    = "Cold Email Generator"
	subtitle = "Enter a job page URL and get a custom cold email generated using AI."

	// Lines above the viewport: title (2) + subtitle (2) + input box (3) +
	// button (2) + status line (2).
	headerHeight = 11
	footerHeight = 1
)

type focusTarget int

const (
	focusInput focusTarget = iota
	focusButton
)

// stageMsg reports a pipeline stage of run id.
type stageMsg struct {
	id     int
	stage  pipeline.Stage
	events <-chan stageMsg
}

// runDoneMsg is sent when the pipeline of run id returns.
type runDoneMsg struct {
	id     int
	result *pipeline.Result
	err    error
}

type shellModel struct {
	runner Runner

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	focus    focusTarget

	width  int
	height int
	ready  bool

	busy   bool
	runID  int
	stage  pipeline.Stage
	result *pipeline.Result
	errMsg string
}

func newModel(runner Runner) shellModel {
	ti := textinput.New()
	ti.Placeholder = "https://company.example/careers/backend-engineer"
	ti.Prompt = "URL › "
	ti.CharLimit = 2048
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = stageStyle

	return shellModel{
		runner:  runner,
		input:   ti,
		spinner: sp,
		stage:   pipeline.StageIdle,
	}
}

func (m shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case stageMsg:
		if msg.id == m.runID && m.busy && !msg.stage.Terminal() {
			m.stage = msg.stage
		}
		return m, listen(msg.events)

	case runDoneMsg:
		if msg.id != m.runID || !m.busy {
			return m, nil
		}
		m.busy = false
		m.result = msg.result
		if msg.err != nil {
			m.stage = pipeline.StageError
			m.errMsg = model.UserMessage(msg.err)
		} else {
			m.stage = pipeline.StageDone
			m.errMsg = ""
		}
		m.refreshContent()
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m shellModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "shift+tab":
		if m.focus == focusInput {
			m.focus = focusButton
			m.input.Blur()
			return m, nil
		}
		m.focus = focusInput
		return m, m.input.Focus()
	case "enter":
		return m.trigger()
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusButton {
		// arrows and j/k scroll the output while the button has focus
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// trigger starts a run for the current URL. A blank URL or a trigger while a
// run is in flight is ignored.
func (m shellModel) trigger() (tea.Model, tea.Cmd) {
	url := strings.TrimSpace(m.input.Value())
	if url == "" || m.busy {
		return m, nil
	}

	m.runID++
	m.busy = true
	m.stage = pipeline.StageFetching
	m.result = nil
	m.errMsg = ""
	m.refreshContent()

	events := make(chan stageMsg, 8)
	return m, tea.Batch(
		m.runCmd(m.runID, url, events),
		listen(events),
		m.spinner.Tick,
	)
}

// runCmd runs the pipeline off the UI goroutine. Stage transitions are
// forwarded on events, which is closed when the run returns.
func (m shellModel) runCmd(id int, url string, events chan stageMsg) tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		defer close(events)
		res, err := runner.Run(context.Background(), url, func(s pipeline.Stage) {
			select {
			case events <- stageMsg{id: id, stage: s, events: events}:
			default:
			}
		})
		return runDoneMsg{id: id, result: res, err: err}
	}
}

// listen waits for the next stage notification.
func listen(events <-chan stageMsg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *shellModel) recalcLayout() {
	w := max(m.width-4, 20)
	h := max(m.height-headerHeight-footerHeight, 3)
	if !m.ready {
		m.viewport = viewport.New(w, h)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
	m.input.Width = max(m.width-14, 10)
	m.refreshContent()
}

func (m *shellModel) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderOutput())
}

// renderOutput is the scrollable area: the error banner, the scraped preview
// and the email.
func (m shellModel) renderOutput() string {
	boxWidth := max(m.viewport.Width-2, 10)

	var b strings.Builder
	if m.errMsg != "" {
		b.WriteString(errorBannerStyle.Width(boxWidth).Render("✗ " + m.errMsg))
		b.WriteString("\n\n")
	}
	if m.result == nil {
		return b.String()
	}
	if m.result.Preview != "" {
		b.WriteString(sectionHeaderStyle.Render("Scraped Page Preview"))
		b.WriteByte('\n')
		b.WriteString(previewBoxStyle.Width(boxWidth).Render(m.result.Preview))
		b.WriteString("\n\n")
	}
	if m.result.Email != "" {
		b.WriteString(sectionHeaderStyle.Render("Cold Email"))
		b.WriteByte('\n')
		b.WriteString(emailBoxStyle.Width(boxWidth).Render(m.result.Email))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m shellModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	b.WriteString(subtitleStyle.Render(subtitle))
	b.WriteByte('\n')

	box := inputBoxStyle
	if m.focus == focusInput {
		box = focusedInputBoxStyle
	}
	b.WriteString(lipgloss.NewStyle().PaddingLeft(1).Render(box.Width(max(m.width-6, 20)).Render(m.input.View())))
	b.WriteByte('\n')

	btn := buttonStyle
	switch {
	case m.busy:
		btn = busyButtonStyle
	case m.focus == focusButton:
		btn = focusedButtonStyle
	}
	b.WriteString(lipgloss.NewStyle().Padding(0, 0, 1, 2).Render(btn.Render("Generate Email")))
	b.WriteByte('\n')

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.statusLine()))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.viewport.View()))
	b.WriteByte('\n')

	help := " enter generate  tab switch focus  pgup/pgdn scroll  esc quit"
	b.WriteString(statusBarStyle.Width(m.width).Render(help))
	return b.String()
}

func (m shellModel) statusLine() string {
	switch {
	case m.busy:
		return fmt.Sprintf("%s %s...", m.spinner.View(), stageStyle.Render(m.stage.Label()))
	case m.errMsg != "":
		return errorTextStyle.Render("✗ " + pipeline.StageError.Label())
	case m.stage == pipeline.StageDone:
		return stageStyle.Render("✓ Email ready")
	default:
		return ""
	}
}

// Run launches the interactive shell on the alternate screen and blocks
// until the user quits.
func Run(runner Runner) error {
	p := tea.NewProgram(newModel(runner), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
