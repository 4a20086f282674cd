// Package notify delivers action failures and user-facing notices.
package notify

import (
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"
)

// Sink is the error and notification collaborator of the engine.
type Sink interface {
	Report(err error)
	Notify(message string)
}

// Logger writes reports and notices to a structured logger.
type Logger struct {
	log *slog.Logger
}

// NewLogger creates a Logger. A nil logger falls back to slog.Default.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l}
}

func (l *Logger) Report(err error) {
	if err == nil {
		return
	}
	l.log.Error("timer action failed", "error", err)
}

func (l *Logger) Notify(message string) {
	l.log.Info("notice", "message", message)
}

// Desktop shows notices as desktop notifications. Errors are shown too so a
// failed start/stop is visible outside the terminal.
type Desktop struct {
	Title string
	Icon  string
	log   *slog.Logger
	// notify is swapped in tests.
	notify func(title, message, icon string) error
}

// NewDesktop creates a desktop sink with the given notification title.
func NewDesktop(title, icon string, l *slog.Logger) *Desktop {
	if l == nil {
		l = slog.Default()
	}
	return &Desktop{
		Title: title,
		Icon:  icon,
		log:   l,
		notify: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

func (d *Desktop) Report(err error) {
	if err == nil {
		return
	}
	d.show(d.Title+": action failed", err.Error())
}

func (d *Desktop) Notify(message string) {
	d.show(d.Title, message)
}

func (d *Desktop) show(title, message string) {
	if err := d.notify(title, message, d.Icon); err != nil {
		d.log.Warn("unable to display notification", "error", err)
	}
}

// Multi fans out to several sinks in order.
type Multi []Sink

func (m Multi) Report(err error) {
	for _, s := range m {
		s.Report(err)
	}
}

func (m Multi) Notify(message string) {
	for _, s := range m {
		s.Notify(message)
	}
}

// Recorder keeps every report and notice in memory.
type Recorder struct {
	mu       sync.Mutex
	errs     []error
	messages []string
}

func (r *Recorder) Report(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *Recorder) Notify(message string) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

// Errors returns the recorded reports.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Messages returns the recorded notices.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
