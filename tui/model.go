package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"exposure/client"
	"exposure/types"
)

// State represents the console state machine
type State string

const (
	StateInput     State = "input"     // typing a merchant URL
	StateAnalyzing State = "analyzing" // poll loop running
	StateResult    State = "result"    // analysis done, draft not yet created
	StateArticles  State = "articles"  // browsing and driving the lifecycle
	StateError     State = "error"
)

// Model is the console state (thin client over the exposure API)
type Model struct {
	Client *client.Client

	State State
	Input string

	TaskID   string
	Progress int
	Stage    string
	Result   *types.AnalysisResult

	Articles []*types.Article
	Selected int

	Logs []string
	Err  error

	pollCh     chan pollEvent
	pollCancel context.CancelFunc
}

// NewModel creates the console model
func NewModel(apiURL, userID string) Model {
	return Model{
		Client: client.New(apiURL, userID),
		State:  StateInput,
		Logs:   make([]string, 0),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return loadArticles(m.Client)
}

// AddLog appends a timestamped log line, keeping the last 15
func (m Model) AddLog(message string) Model {
	entry := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	m.Logs = append(m.Logs, entry)
	if len(m.Logs) > 15 {
		m.Logs = m.Logs[len(m.Logs)-15:]
	}
	return m
}

// abandonPoll cancels a running poll loop, if any
func (m *Model) abandonPoll() {
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
	m.pollCh = nil
}
