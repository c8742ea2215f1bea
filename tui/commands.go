package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"exposure/article"
	"exposure/client"
	"exposure/config"
	"exposure/poll"
	"exposure/types"
)

// pollEvent flows from the poll goroutine into the tea program
type pollEvent struct {
	progress int
	stage    string
	done     bool
	result   *types.AnalysisResult
	err      error
}

// submitURL creates the analysis task
func submitURL(c *client.Client, url string) tea.Cmd {
	return func() tea.Msg {
		taskID, _, err := c.CreateTask(context.Background(), url)
		return TaskCreatedMsg{TaskID: taskID, Err: err}
	}
}

// startPoll launches the polling protocol in a goroutine and returns the
// channel carrying its observations. Quitting the console just abandons the
// loop; the server-side task is unaffected.
func startPoll(c *client.Client, taskID string, ctx context.Context) (chan pollEvent, tea.Cmd) {
	ch := make(chan pollEvent, 16)

	go func() {
		poller := poll.NewPoller(c, config.PollInterval, config.PollTimeout)
		result, err := poller.Poll(ctx, taskID, func(progress int, stage string) {
			ch <- pollEvent{progress: progress, stage: stage}
		})
		ch <- pollEvent{done: true, result: result, err: err}
		close(ch)
	}()

	return ch, waitPoll(ch)
}

// waitPoll blocks for the next poll observation
func waitPoll(ch chan pollEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		if ev.done {
			return AnalysisDoneMsg{Result: ev.result, Err: ev.err}
		}
		return ProgressMsg{Progress: ev.progress, Stage: ev.stage}
	}
}

// generateDraft composes a draft from the analysis and persists it
func generateDraft(c *client.Client, result *types.AnalysisResult) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		cfg := article.GenerationConfig{HeroImage: 0}
		for i := 1; i < len(result.Images) && i < 4; i++ {
			cfg.ContentImages = append(cfg.ContentImages, i)
		}
		if len(result.Images) == 0 {
			cfg.HeroImage = -1
		}

		draft, err := c.Generate(ctx, result, cfg)
		if err != nil {
			return DraftCreatedMsg{Err: err}
		}
		created, err := c.CreateArticle(ctx, draft)
		return DraftCreatedMsg{Article: created, Err: err}
	}
}

// loadArticles refreshes the article list
func loadArticles(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		articles, err := c.ListArticles(context.Background())
		return ArticlesLoadedMsg{Articles: articles, Err: err}
	}
}

// runAction performs submit/self-check/approve on the selected article
func runAction(c *client.Client, articleID, action string) tea.Cmd {
	return func() tea.Msg {
		err := c.Transition(context.Background(), articleID, action)
		return ActionDoneMsg{Action: action, Err: err}
	}
}

// runReject rejects with a canned console reason
func runReject(c *client.Client, articleID, reason string) tea.Cmd {
	return func() tea.Msg {
		err := c.Reject(context.Background(), articleID, reason)
		return ActionDoneMsg{Action: "reject", Err: err}
	}
}

// runPublish runs the publish pipeline
func runPublish(c *client.Client, articleID string) tea.Cmd {
	return func() tea.Msg {
		result, err := c.Publish(context.Background(), articleID)
		return PublishDoneMsg{Result: result, Err: err}
	}
}
