package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
)

// maxHistory bounds the exchanges kept on screen.
const maxHistory = 20

// Answerer resolves a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (qa.Response, error)
}

// exchange is one question and its result.
type exchange struct {
	question string
	resp     qa.Response
	err      error
	latency  time.Duration
}

type answerMsg exchange

// chatModel is the bubbletea model for `persoqa chat`.
type chatModel struct {
	ctx      context.Context
	answerer Answerer
	title    string
	styles   Styles
	input    textinput.Model
	spinner  spinner.Model
	history  []exchange
	pending  string
	width    int
	quitting bool
}

func newChatModel(ctx context.Context, a Answerer, title string, st Styles) *chatModel {
	in := textinput.New()
	in.Placeholder = "Perso.ai에 대해 물어보세요"
	in.Prompt = st.Prompt.Render("› ")
	in.CharLimit = 1000
	in.Width = 72
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.Prompt

	return &chatModel{
		ctx:      ctx,
		answerer: a,
		title:    title,
		styles:   st,
		input:    in,
		spinner:  sp,
		width:    80,
	}
}

func (m *chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) ask(question string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		resp, err := m.answerer.Answer(m.ctx, question)
		return answerMsg{question: question, resp: resp, err: err, latency: time.Since(start)}
	}
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending != "" {
				return m, nil
			}
			if q == "/quit" || q == "/exit" {
				m.quitting = true
				return m, tea.Quit
			}
			m.pending = q
			m.input.SetValue("")
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-6)

	case answerMsg:
		m.pending = ""
		m.history = append(m.history, exchange(msg))
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		return m, nil

	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render(m.title))
	sb.WriteString("\n\n")

	for _, ex := range m.history {
		sb.WriteString(m.styles.Question.Render("Q. " + ex.question))
		sb.WriteString("\n")
		if ex.err != nil {
			sb.WriteString(m.styles.Error.Render(errorLine(ex.err)))
		} else {
			sb.WriteString(RenderResponse(m.styles, ex.resp))
			sb.WriteString(m.styles.Dim.Render(fmt.Sprintf(" · %dms", ex.latency.Milliseconds())))
		}
		sb.WriteString("\n\n")
	}

	if m.pending != "" {
		sb.WriteString(m.styles.Question.Render("Q. " + m.pending))
		sb.WriteString("\n")
		sb.WriteString(m.spinner.View() + m.styles.Label.Render(" 답변을 찾는 중..."))
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Dim.Render("enter: ask · esc: quit"))
	sb.WriteString("\n")
	return sb.String()
}

func errorLine(err error) string {
	if qe, ok := qaerrors.As(err); ok {
		return fmt.Sprintf("error: %s (%s)", qe.Message, qe.Code)
	}
	return "error: " + err.Error()
}

// ChatOptions configures RunChat.
type ChatOptions struct {
	Title   string
	Input   io.Reader
	Output  io.Writer
	NoColor bool
}

// RunChat runs the interactive chat until the user quits or ctx ends.
func RunChat(ctx context.Context, a Answerer, opts ChatOptions) error {
	title := opts.Title
	if title == "" {
		title = "Perso.ai Q&A"
	}
	st := GetStyles(opts.NoColor || DetectNoColor())

	var popts []tea.ProgramOption
	popts = append(popts, tea.WithContext(ctx))
	if opts.Input != nil {
		popts = append(popts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		popts = append(popts, tea.WithOutput(opts.Output))
	}

	_, err := tea.NewProgram(newChatModel(ctx, a, title, st), popts...).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
