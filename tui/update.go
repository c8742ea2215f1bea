package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TaskCreatedMsg:
		return m.handleTaskCreated(msg)
	case ProgressMsg:
		m.Progress = msg.Progress
		m.Stage = msg.Stage
		return m, waitPoll(m.pollCh)
	case AnalysisDoneMsg:
		return m.handleAnalysisDone(msg)
	case DraftCreatedMsg:
		return m.handleDraftCreated(msg)
	case ArticlesLoadedMsg:
		if msg.Err == nil {
			m.Articles = msg.Articles
		}
		return m, nil
	case ActionDoneMsg:
		return m.handleActionDone(msg)
	case PublishDoneMsg:
		return m.handlePublishDone(msg)
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.abandonPoll()
		return m, tea.Quit
	}

	switch m.State {
	case StateInput:
		return m.handleInputKey(msg)
	case StateResult:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "g", "G":
			m = m.AddLog("Generating draft from analysis...")
			return m, generateDraft(m.Client, m.Result)
		case "n", "N":
			m.State = StateInput
			m.Input = ""
			return m, nil
		}
	case StateArticles:
		return m.handleArticlesKey(msg)
	case StateError:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "n", "N":
			m.State = StateInput
			m.Input = ""
			m.Err = nil
			return m, nil
		}
	case StateAnalyzing:
		if msg.String() == "q" {
			// Abandon the poll; the server-side task keeps running
			m.abandonPoll()
			m = m.AddLog("Poll abandoned")
			m.State = StateInput
			return m, nil
		}
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if m.Input == "" {
			return m, nil
		}
		m.State = StateAnalyzing
		m.Progress = 0
		m.Stage = "submitting"
		m = m.AddLog(fmt.Sprintf("Analyzing %s", m.Input))
		return m, submitURL(m.Client, m.Input)
	case tea.KeyBackspace:
		if len(m.Input) > 0 {
			m.Input = m.Input[:len(m.Input)-1]
		}
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		m.Input += string(msg.Runes)
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.State = StateArticles
		return m, loadArticles(m.Client)
	}
	return m, nil
}

func (m Model) handleArticlesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected := ""
	if m.Selected >= 0 && m.Selected < len(m.Articles) {
		selected = m.Articles[m.Selected].ID
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "n", "N":
		m.State = StateInput
		m.Input = ""
		return m, nil
	case "j", "down":
		if m.Selected < len(m.Articles)-1 {
			m.Selected++
		}
		return m, nil
	case "k", "up":
		if m.Selected > 0 {
			m.Selected--
		}
		return m, nil
	case "r":
		return m, loadArticles(m.Client)
	case "s":
		if selected != "" {
			return m, runAction(m.Client, selected, "submit")
		}
	case "c":
		if selected != "" {
			return m, runAction(m.Client, selected, "self-check")
		}
	case "a":
		if selected != "" {
			return m, runAction(m.Client, selected, "approve")
		}
	case "x":
		if selected != "" {
			return m, runReject(m.Client, selected, "rejected from console")
		}
	case "p":
		if selected != "" {
			m = m.AddLog("Publishing...")
			return m, runPublish(m.Client, selected)
		}
	}
	return m, nil
}

func (m Model) handleTaskCreated(msg TaskCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}

	m.TaskID = msg.TaskID
	m = m.AddLog(fmt.Sprintf("Task %s created", msg.TaskID))

	ctx, cancel := context.WithCancel(context.Background())
	m.pollCancel = cancel
	ch, cmd := startPoll(m.Client, msg.TaskID, ctx)
	m.pollCh = ch
	return m, cmd
}

func (m Model) handleAnalysisDone(msg AnalysisDoneMsg) (tea.Model, tea.Cmd) {
	m.pollCh = nil
	m.pollCancel = nil

	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}

	m.Result = msg.Result
	m.State = StateResult
	m = m.AddLog(fmt.Sprintf("Analysis complete: %s", msg.Result.BrandName))
	return m, nil
}

func (m Model) handleDraftCreated(msg DraftCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}

	m.State = StateArticles
	m = m.AddLog(fmt.Sprintf("Draft created: %q (version %d)", msg.Article.Title, msg.Article.Version))
	return m, loadArticles(m.Client)
}

func (m Model) handleActionDone(msg ActionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m = m.AddLog(fmt.Sprintf("%s failed: %v", msg.Action, msg.Err))
	} else {
		m = m.AddLog(fmt.Sprintf("%s ok", msg.Action))
	}
	return m, loadArticles(m.Client)
}

func (m Model) handlePublishDone(msg PublishDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m = m.AddLog(fmt.Sprintf("publish failed: %v", msg.Err))
	} else {
		m = m.AddLog(fmt.Sprintf("published: %s (%s)", msg.Result.CommitSHA[:8], msg.Result.ArticleURL))
	}
	return m, loadArticles(m.Client)
}
