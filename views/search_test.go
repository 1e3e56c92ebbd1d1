package views

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nourish/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSearch struct {
	mu      sync.Mutex
	queries []string
}

func (f *fakeSearch) search(ctx context.Context, q string) ([]models.Food, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return []models.Food{
		{ID: "1", Name: "Apple", Macros: models.Macros{Calories: 52}},
		{ID: "spoon_9003", Name: "Apple Pie", Type: "spoonacular", Macros: models.Macros{Calories: 237}},
	}, nil
}

func typeText(m *SearchModel, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func waitMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no results message")
		return nil
	}
}

func TestSearchModelDebouncesAndSelects(t *testing.T) {
	fake := &fakeSearch{}
	m := NewSearchModel(fake.search, 20*time.Millisecond, 2)
	defer m.Close()

	typeText(m, "a")
	assert.Contains(t, m.View(), "Type at least 2 characters")

	typeText(m, "pple")
	assert.Contains(t, m.View(), "Searching")

	msg := waitMsg(t, m.waitForResults())
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "Apple Pie")
	assert.Contains(t, view, "[external]")

	fake.mu.Lock()
	assert.Equal(t, []string{"apple"}, fake.queries, "one request for the settled query")
	fake.mu.Unlock()

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.NotNil(t, m.Selected())
	assert.Equal(t, "Apple Pie", m.Selected().Name)
}

func TestSearchModelQuit(t *testing.T) {
	fake := &fakeSearch{}
	m := NewSearchModel(fake.search, time.Hour, 2)
	typeText(m, "egg")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, m.Selected())
	assert.Nil(t, m.waitForResults()(), "closed model stops waiting")
	fake.mu.Lock()
	assert.Empty(t, fake.queries)
	fake.mu.Unlock()
	assert.True(t, strings.Contains(m.View(), "Find a food"))
}
