// Package session owns the application state of one viewer: the current
// report, the submission phase and the single error slot.
//
// A session moves Idle -> Submitting -> Idle. Begin gates re-entry, so a
// second submission cannot start while one is in flight; Succeed and Fail
// both return the session to Idle no matter how they exit.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kraitsura/tdv/pkg/client"
	"github.com/kraitsura/tdv/pkg/model"
	"github.com/kraitsura/tdv/pkg/report"
)

// Phase is the submission state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
)

// String returns the phase name
func (p Phase) String() string {
	if p == PhaseSubmitting {
		return "submitting"
	}
	return "idle"
}

// ErrBusy is returned by Begin while a submission is in flight.
var ErrBusy = errors.New("a submission is already in progress")

// Session is the explicitly owned application state.
type Session struct {
	phase   Phase
	report  *report.Report
	errMsg  string
	source  string // dump behind the current report
	pending string // dump being submitted
	started time.Time
	opts    report.RenderOptions
	logger  *slog.Logger
}

// New creates an idle session with no report.
func New(opts report.RenderOptions, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{opts: opts, logger: logger}
}

// Begin starts a submission of the dump at path. An empty path is a
// validation error that leaves the session idle; a call while busy
// returns ErrBusy. Neither clears the current report.
func (s *Session) Begin(path string) error {
	if s.phase != PhaseIdle {
		return ErrBusy
	}
	if path == "" {
		err := &client.ValidationError{Msg: "Please select a file."}
		s.errMsg = err.Error()
		return err
	}
	s.phase = PhaseSubmitting
	s.errMsg = ""
	s.pending = path
	s.started = time.Now()
	s.logger.Info("submission started", "file", path)
	return nil
}

// Succeed completes the in-flight submission with a thread collection. The
// previous report is replaced wholesale; filters and detail toggles start
// fresh. If the collection violates the record contract, the error is
// surfaced and the previous report is kept.
func (s *Session) Succeed(ctx context.Context, threads []model.ThreadRecord) error {
	defer s.finish()

	r, err := report.Build(ctx, threads, s.opts)
	if err != nil {
		s.errMsg = "Invalid analyzer data: " + err.Error()
		s.logger.Error("rendering contract violated", "file", s.pending, "error", err)
		return err
	}
	s.report = r
	s.source = s.pending
	s.errMsg = ""
	s.logger.Info("submission finished", "file", s.pending, "threads", len(threads), "elapsed", time.Since(s.started))
	return nil
}

// Fail completes the in-flight submission with an error. The previous
// report stays exactly as it was.
func (s *Session) Fail(err error) {
	defer s.finish()
	s.errMsg = client.UserMessage(err)
	s.logger.Warn("submission failed", "file", s.pending, "error", err)
}

func (s *Session) finish() {
	s.phase = PhaseIdle
	s.pending = ""
}

// Load installs an already-analyzed collection without a network round
// trip, going through the same path as a successful submission.
func (s *Session) Load(ctx context.Context, source string, threads []model.ThreadRecord) error {
	if err := s.Begin(source); err != nil {
		return err
	}
	return s.Succeed(ctx, threads)
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// Busy reports whether a submission is in flight.
func (s *Session) Busy() bool {
	return s.phase == PhaseSubmitting
}

// Report returns the current report, or nil before the first success.
func (s *Session) Report() *report.Report {
	return s.report
}

// HasReport reports whether the summary, filter and table sections should
// be shown.
func (s *Session) HasReport() bool {
	return s.report != nil
}

// ErrorMessage returns the user-facing error, empty when there is none.
func (s *Session) ErrorMessage() string {
	return s.errMsg
}

// ClearError dismisses the error message.
func (s *Session) ClearError() {
	s.errMsg = ""
}

// Source returns the path of the dump the current report was built from.
// A failed submission does not change it.
func (s *Session) Source() string {
	return s.source
}

// Pending returns the path being submitted, or "" when idle.
func (s *Session) Pending() string {
	return s.pending
}
