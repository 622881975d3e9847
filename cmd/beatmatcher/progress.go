package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"beatmatcher/internal/queue"
	"beatmatcher/internal/workflow"
)

// progressObserver renders a terminal progress bar over the run. It is
// nil when stdout is not a terminal; callers must handle that.
type progressObserver struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

var _ workflow.Observer = (*progressObserver)(nil)

func newProgressObserver(out io.Writer, total int) *progressObserver {
	if total <= 0 || !stdoutIsTerminal(out) {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Matching tracks"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) TaskStarted(task *queue.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Describe(fmt.Sprintf("Matching %s", task.Label()))
}

func (p *progressObserver) TaskFinished(task *queue.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Add(1)
}

func (p *progressObserver) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
}

func stdoutIsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
