package output

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/syncwarden/pkg/models"
)

const countdownTemplate = `{{string . "prefix"}}{{bar . "[" "=" ">" " " "]"}} {{counters . }}s`

// ProgressFormatter prints like HumanFormatter and shows a countdown bar
// while waiting between attempts
type ProgressFormatter struct {
	*HumanFormatter

	mu       sync.Mutex
	writer   io.Writer
	terminal bool
	bar      *pb.ProgressBar
	stop     chan struct{}
	done     chan struct{}
}

// NewProgressFormatter creates a new progress formatter
func NewProgressFormatter(errWriter io.Writer) *ProgressFormatter {
	return &ProgressFormatter{HumanFormatter: NewHumanFormatter(errWriter)}
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer, session *models.SessionConfig) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	if file, ok := writer.(*os.File); ok {
		f.terminal = term.IsTerminal(int(file.Fd()))
	}
	return f.HumanFormatter.Start(writer, session)
}

// Progress reports a step of the run
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.stopCountdown()
	if err := f.HumanFormatter.Progress(update); err != nil {
		return err
	}
	if update.Type == EventBackoff && f.terminal && update.Wait >= time.Second {
		f.startCountdown(update.Wait)
	}
	return nil
}

// Complete displays the outcome
func (f *ProgressFormatter) Complete(report *models.SyncReport) error {
	f.stopCountdown()
	return f.HumanFormatter.Complete(report)
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.stopCountdown()
	return f.HumanFormatter.Error(err)
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

func (f *ProgressFormatter) startCountdown(wait time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := int64(wait / time.Second)
	bar := pb.New64(total)
	bar.SetTemplateString(countdownTemplate)
	bar.SetWriter(f.writer)
	bar.Set("prefix", "      waiting ")
	bar.Start()

	f.bar = bar
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	go tick(bar, total, f.stop, f.done)
}

func tick(bar *pb.ProgressBar, total int64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for elapsed := int64(0); elapsed < total; {
		select {
		case <-stop:
			return
		case <-ticker.C:
			elapsed++
			bar.SetCurrent(elapsed)
		}
	}
}

func (f *ProgressFormatter) stopCountdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bar == nil {
		return
	}
	close(f.stop)
	<-f.done
	f.bar.Finish()
	f.bar = nil
}
