package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

type stubQueryPort struct {
	results  []domain.RankedResult
	queryErr error
	feedback []string
}

func (s *stubQueryPort) Query(_ context.Context, _, _ string, _ int, _ domain.RerankWeights) ([]domain.RankedResult, error) {
	return s.results, s.queryErr
}

func (s *stubQueryPort) RecordFeedback(_ context.Context, _, chunkID string, _ float64) error {
	s.feedback = append(s.feedback, chunkID)
	return nil
}

func typeAndEnter(m Model, text string) Model {
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestModel_QueryRendersResults(t *testing.T) {
	service := &stubQueryPort{results: []domain.RankedResult{
		{Chunk: domain.Chunk{ID: "c1", Content: "first match"}, Score: 0.9},
		{Chunk: domain.Chunk{ID: "c2", Content: "second match"}, Score: 0.5},
	}}
	m := sized(New(service, "t1"))

	m = typeAndEnter(m, "match")
	assert.Contains(t, m.status, "2 result(s)")
	assert.Contains(t, m.View(), "first match")

	// Down moves the cursor to the second result.
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.View(), "second match")
}

func TestModel_QueryError(t *testing.T) {
	service := &stubQueryPort{queryErr: errors.New("index offline")}
	m := sized(New(service, "t1"))

	m = typeAndEnter(m, "anything")
	assert.Contains(t, m.status, "index offline")
	assert.Empty(t, m.results)
}

func TestModel_FeedbackOnSelection(t *testing.T) {
	service := &stubQueryPort{results: []domain.RankedResult{
		{Chunk: domain.Chunk{ID: "c1", Content: "match"}},
	}}
	m := sized(New(service, "t1"))
	m = typeAndEnter(m, "match")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	m = next.(Model)
	require.Equal(t, []string{"c1"}, service.feedback)
	assert.Contains(t, m.status, "c1")
}

func TestModel_QuitKeys(t *testing.T) {
	m := sized(New(&stubQueryPort{}, "t1"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
