// Package tui provides an interactive query view over the retrieval
// engine with per-signal score breakdowns.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// QueryPort is the TUI-facing subset of the query service.
type QueryPort interface {
	Query(ctx context.Context, tenantID, queryText string, k int, weights domain.RerankWeights) ([]domain.RankedResult, error)
	RecordFeedback(ctx context.Context, tenantID, chunkID string, delta float64) error
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	breakdownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Model is the Bubble Tea model for the interactive query view.
type Model struct {
	service  QueryPort
	tenantID string
	input    textinput.Model
	viewport viewport.Model
	results  []domain.RankedResult
	status   string
	cursor   int
	ready    bool
}

// New creates the query view for a tenant.
func New(service QueryPort, tenantID string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		service:  service,
		tenantID: tenantID,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   fmt.Sprintf("Tenant %s. Type to search; +/- records feedback.", tenantID),
	}
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		vh := msg.Height - qh - rh - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			return m.runQuery(), nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "+", "-":
			if len(m.results) > 0 {
				return m.recordFeedback(msg.String() == "+"), nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) runQuery() Model {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m
	}

	results, err := m.service.Query(context.Background(), m.tenantID, query, 10, domain.RerankWeights{})
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
	} else if len(results) == 0 {
		m.status = fmt.Sprintf("No results for %q", query)
		m.results = nil
	} else {
		m.status = fmt.Sprintf("%d result(s) for %q", len(results), query)
		m.results = results
		m.cursor = 0
	}
	m.viewport.SetContent(m.renderCurrentResult())
	return m
}

func (m Model) recordFeedback(positive bool) Model {
	if len(m.results) == 0 {
		return m
	}
	delta := 1.0
	if !positive {
		delta = -1.0
	}
	chunkID := m.results[m.cursor].Chunk.ID
	if err := m.service.RecordFeedback(context.Background(), m.tenantID, chunkID, delta); err != nil {
		m.status = "Feedback error: " + err.Error()
	} else {
		m.status = fmt.Sprintf("Recorded %+.0f on %s", delta, chunkID)
	}
	return m
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Recall")
	hint := subtleStyle.Render("enter: search  up/down: browse  +/-: feedback  esc: quit")
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "  " + hint + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}

	res := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f", m.cursor+1, len(m.results), res.Score)

	body := res.Chunk.Content
	if res.Chunk.Modality == domain.ModalityImage {
		body = res.Chunk.ImageURI
		if res.Chunk.Caption != "" {
			body += "\n" + res.Chunk.Caption
		}
	}

	b := res.Breakdown
	breakdown := breakdownStyle.Render(fmt.Sprintf(
		"vector=%.3f  diversity=%.3f  recency=%.3f  graph=%.3f  feedback=%.3f",
		b.Vector, b.Diversity, b.Recency, b.Graph, b.Feedback))

	return title + "\n" + breakdown + "\n\n" + body
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
