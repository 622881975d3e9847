package workflow

import (
	"beatmatcher/internal/queue"
	"beatmatcher/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager drives.
type StageSet struct {
	Searcher   stage.Handler
	Scorer     stage.Handler
	Downloader stage.Handler
	Analyzer   stage.Handler
	Organizer  stage.Handler
}

type pipelineStage struct {
	name    string
	status  queue.Status
	handler stage.Handler
}

func (s StageSet) pipeline() []pipelineStage {
	return []pipelineStage{
		{name: "searching", status: queue.StatusSearching, handler: s.Searcher},
		{name: "scoring", status: queue.StatusScoring, handler: s.Scorer},
		{name: "downloading", status: queue.StatusDownloading, handler: s.Downloader},
		{name: "analyzing", status: queue.StatusAnalyzing, handler: s.Analyzer},
		{name: "placing", status: queue.StatusPlacing, handler: s.Organizer},
	}
}

// Observer receives progress callbacks during a run. Implementations must
// be safe for concurrent use; callbacks arrive from worker goroutines.
type Observer interface {
	TaskStarted(task *queue.Task)
	TaskFinished(task *queue.Task)
}

type nopObserver struct{}

func (nopObserver) TaskStarted(*queue.Task)  {}
func (nopObserver) TaskFinished(*queue.Task) {}
