package tui

import (
	"exposure/publish"
	"exposure/types"
)

// TaskCreatedMsg is sent when the analysis task was accepted
type TaskCreatedMsg struct {
	TaskID string
	Err    error
}

// ProgressMsg carries one poll observation
type ProgressMsg struct {
	Progress int
	Stage    string
}

// AnalysisDoneMsg is sent when the poll loop settles
type AnalysisDoneMsg struct {
	Result *types.AnalysisResult
	Err    error
}

// DraftCreatedMsg is sent after generate+create completes
type DraftCreatedMsg struct {
	Article *types.Article
	Err     error
}

// ArticlesLoadedMsg refreshes the article list
type ArticlesLoadedMsg struct {
	Articles []*types.Article
	Err      error
}

// ActionDoneMsg is sent after a lifecycle action (submit/approve/reject)
type ActionDoneMsg struct {
	Action string
	Err    error
}

// PublishDoneMsg is sent after a publish attempt
type PublishDoneMsg struct {
	Result *publish.Result
	Err    error
}
