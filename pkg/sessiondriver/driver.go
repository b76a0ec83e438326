// Package sessiondriver is the client-side counterpart of a session: it owns
// the local answer buffer, the countdown/overdue timer and periodic autosave,
// and talks to the server through an API.
package sessiondriver

import (
	"context"
	"sync"
	"time"

	"assessment_backend/pkg/apiclient"
	"assessment_backend/pkg/scoring"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrNoSession            = errors.New("no session started")
	ErrSubmitted            = errors.New("session already submitted")
	ErrUnsavedProgress      = errors.New("leaving will discard answers that were not submitted")
	ErrConfirmationRequired = errors.New("switching mode discards the current answers; confirmation required")
	ErrQuestionIndex        = errors.New("question index out of range")
	ErrNoFeedback           = errors.New("live feedback is only available in Practice mode")
	// ErrSessionEnded means the server no longer has the session active
	// (submitted or abandoned elsewhere); call Start again.
	ErrSessionEnded = errors.New("session ended elsewhere")
)

// API is the subset of the server the driver needs.
type API interface {
	StartSession(ctx context.Context, testID string, mode apiclient.Mode) (*apiclient.StartResult, error)
	PatchSession(ctx context.Context, sessionID string, patch apiclient.PatchRequest) (*apiclient.PatchResult, error)
	SubmitSession(ctx context.Context, sessionID string, overdueSeconds int) (*apiclient.SubmitResult, error)
	AbandonSession(ctx context.Context, sessionID string) error
}

type Options struct {
	AutosaveInterval time.Duration
	TickInterval     time.Duration
	// RequestTimeout bounds autosaves fired by the scheduler.
	RequestTimeout time.Duration
	Scheduler      Scheduler
	Logger         *zap.Logger
}

func (o *Options) setDefaults() {
	if o.AutosaveInterval <= 0 {
		o.AutosaveInterval = 30 * time.Second
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.Scheduler == nil {
		o.Scheduler = TickerScheduler{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type Outcome int

const (
	// Skipped: nothing to save (no session yet, or already submitted).
	Skipped Outcome = iota
	Saved
	// Recovered: the save failed and was swallowed; the next cycle resends
	// the full state.
	Recovered
	// Ended: the server reported the session gone. Timers are stopped and
	// the caller is expected to Start again.
	Ended
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Recovered:
		return "recovered"
	case Ended:
		return "ended"
	}
	return "skipped"
}

type AutosaveResult struct {
	Outcome Outcome
	// Stale is set when the server reported a newer version than ours.
	Stale bool
	Err   error
}

// State is a snapshot of the driver for rendering.
type State struct {
	SessionID       string
	Mode            apiclient.Mode
	CurrentQuestion int
	RemainingTime   int
	OverdueSeconds  int
	Answers         []scoring.QuestionAnswer
	Submitted       bool
	// EndedElsewhere is set after the server answered 404 for the session.
	EndedElsewhere bool
	Version        int64
	// Dirty is set when local edits have not reached the server yet.
	Dirty bool
}

type Driver struct {
	api       API
	testID    string
	questions []scoring.Question
	opts      Options

	mu        sync.Mutex
	sessionID string
	mode      apiclient.Mode
	version   int64
	answers   map[int]scoring.QuestionAnswer
	current   int
	timer     Timer
	submitted bool
	lost      bool
	edits     uint64
	saved     uint64
	result    *apiclient.SubmitResult
	cancels   []func()
}

func New(api API, testID string, questions []scoring.Question, opts Options) *Driver {
	opts.setDefaults()
	return &Driver{
		api:       api,
		testID:    testID,
		questions: questions,
		opts:      opts,
		answers:   make(map[int]scoring.QuestionAnswer),
	}
}

// Start starts or resumes the server session and begins ticking. On resume
// the answer buffer, question pointer and remaining time are restored exactly
// as stored on the server.
func (d *Driver) Start(ctx context.Context, mode apiclient.Mode) (resumed bool, err error) {
	res, err := d.api.StartSession(ctx, d.testID, mode)
	if err != nil {
		return false, errors.Wrap(err, "start session")
	}

	d.mu.Lock()
	d.stopLocked()
	s := res.Session
	d.sessionID = s.ID
	d.mode = s.Mode
	d.version = s.Version
	d.current = s.CurrentQuestion
	d.timer = Timer{Remaining: s.RemainingTime}
	d.submitted = false
	d.lost = false
	d.result = nil
	d.answers = make(map[int]scoring.QuestionAnswer)
	if res.Resumed && len(s.Answers) > 0 {
		d.answers = scoring.ToMap(s.Answers)
	}
	d.edits, d.saved = 0, 0
	d.cancels = append(d.cancels,
		d.opts.Scheduler.Every(d.opts.TickInterval, d.tick),
		d.opts.Scheduler.Every(d.opts.AutosaveInterval, d.autosaveTick),
	)
	d.mu.Unlock()

	d.opts.Logger.Debug("session ready",
		zap.String("sessionId", s.ID),
		zap.Bool("resumed", res.Resumed),
		zap.Int("answers", len(s.Answers)),
	)
	return res.Resumed, nil
}

func (d *Driver) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitted || d.sessionID == "" {
		return
	}
	d.timer.Tick()
}

func (d *Driver) autosaveTick() {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.RequestTimeout)
	defer cancel()
	d.Autosave(ctx)
}

// SetAnswer records the answer for a question. Answers given after the
// budget ran out are flagged overdue.
func (d *Driver) SetAnswer(index int, answer scoring.Answer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return ErrSessionEnded
	}
	if d.sessionID == "" {
		return ErrNoSession
	}
	if d.submitted {
		return ErrSubmitted
	}
	if index < 0 || index >= len(d.questions) {
		return ErrQuestionIndex
	}
	d.answers[index] = scoring.QuestionAnswer{
		QuestionIndex: index,
		IsOverdue:     d.timer.IsOverdue(),
		Answer:        answer,
	}
	d.edits++
	return nil
}

func (d *Driver) Answer(index int) (scoring.Answer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.answers[index]
	return a.Answer, ok
}

// Navigate moves the question pointer.
func (d *Driver) Navigate(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitted {
		return ErrSubmitted
	}
	if index < 0 || index >= len(d.questions) {
		return ErrQuestionIndex
	}
	if d.current != index {
		d.current = index
		d.edits++
	}
	return nil
}

// Feedback scores the current answer of a question with the shared oracle.
func (d *Driver) Feedback(index int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode != apiclient.ModePractice {
		return false, ErrNoFeedback
	}
	if index < 0 || index >= len(d.questions) {
		return false, ErrQuestionIndex
	}
	return scoring.Score(d.questions[index], d.answers[index].Answer), nil
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		SessionID:       d.sessionID,
		Mode:            d.mode,
		CurrentQuestion: d.current,
		RemainingTime:   d.timer.Remaining,
		OverdueSeconds:  d.timer.Overdue,
		Answers:         scoring.FromMap(d.answers),
		Submitted:       d.submitted,
		EndedElsewhere:  d.lost,
		Version:         d.version,
		Dirty:           d.edits != d.saved,
	}
}

// Result returns the submit result once the session was submitted.
func (d *Driver) Result() *apiclient.SubmitResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// patchLocked builds a full-state patch. Caller holds d.mu.
func (d *Driver) patchLocked() (apiclient.PatchRequest, uint64) {
	answers := scoring.FromMap(d.answers)
	current := d.current
	remaining := d.timer.Remaining
	version := d.version
	return apiclient.PatchRequest{
		Answers:         &answers,
		CurrentQuestion: &current,
		RemainingTime:   &remaining,
		BaseVersion:     &version,
	}, d.edits
}

// Autosave sends the complete local state as a patch. Failures are logged and
// reported as Recovered, never returned.
func (d *Driver) Autosave(ctx context.Context) AutosaveResult {
	d.mu.Lock()
	if d.sessionID == "" || d.submitted {
		d.mu.Unlock()
		return AutosaveResult{Outcome: Skipped}
	}
	id := d.sessionID
	patch, edits := d.patchLocked()
	d.mu.Unlock()

	res, err := d.api.PatchSession(ctx, id, patch)
	if err != nil {
		if apiclient.IsNotFound(err) {
			d.markEnded(id)
			return AutosaveResult{Outcome: Ended, Err: ErrSessionEnded}
		}
		d.opts.Logger.Warn("autosave failed", zap.String("sessionId", id), zap.Error(err))
		return AutosaveResult{Outcome: Recovered, Err: err}
	}

	d.mu.Lock()
	if d.sessionID == id {
		d.version = res.Session.Version
		if edits > d.saved {
			d.saved = edits
		}
	}
	d.mu.Unlock()

	if res.Stale {
		d.opts.Logger.Warn("progress may be stale: session was saved from elsewhere", zap.String("sessionId", id))
	}
	return AutosaveResult{Outcome: Saved, Stale: res.Stale}
}

// Submit sends a final full-state patch and then submits. There is no local
// scoring fallback: errors are returned and the session stays open.
func (d *Driver) Submit(ctx context.Context) (*apiclient.SubmitResult, error) {
	d.mu.Lock()
	if d.lost {
		d.mu.Unlock()
		return nil, ErrSessionEnded
	}
	if d.sessionID == "" {
		d.mu.Unlock()
		return nil, ErrNoSession
	}
	if d.submitted {
		d.mu.Unlock()
		return nil, ErrSubmitted
	}
	id := d.sessionID
	patch, edits := d.patchLocked()
	d.mu.Unlock()

	patched, err := d.api.PatchSession(ctx, id, patch)
	if err != nil {
		if apiclient.IsNotFound(err) {
			d.markEnded(id)
			return nil, ErrSessionEnded
		}
		return nil, errors.Wrap(err, "final save")
	}

	d.mu.Lock()
	overdue := d.timer.Overdue
	d.version = patched.Session.Version
	d.mu.Unlock()

	res, err := d.api.SubmitSession(ctx, id, overdue)
	if err != nil {
		if apiclient.IsNotFound(err) {
			d.markEnded(id)
			return nil, ErrSessionEnded
		}
		return nil, errors.Wrap(err, "submit session")
	}

	d.mu.Lock()
	d.submitted = true
	d.result = res
	d.saved = edits
	d.stopLocked()
	d.mu.Unlock()

	d.opts.Logger.Info("session submitted",
		zap.String("sessionId", id),
		zap.Int("score", res.Score),
		zap.Int("total", res.Total),
	)
	return res, nil
}

// markEnded drops a session the server no longer has active. The local
// answers stay readable until the next Start.
func (d *Driver) markEnded(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sessionID != id {
		return
	}
	d.stopLocked()
	d.sessionID = ""
	d.lost = true
	d.opts.Logger.Info("session ended elsewhere", zap.String("sessionId", id))
}

// ConfirmLeave returns ErrUnsavedProgress while answers exist that were not
// submitted.
func (d *Driver) ConfirmLeave() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.submitted && len(d.answers) > 0 {
		return ErrUnsavedProgress
	}
	return nil
}

// Exit abandons the server session. Without confirmation it refuses to drop
// unsubmitted answers.
func (d *Driver) Exit(ctx context.Context, confirmed bool) error {
	if !confirmed {
		if err := d.ConfirmLeave(); err != nil {
			return err
		}
	}
	if err := d.abandon(ctx); err != nil {
		return err
	}
	d.Close()
	return nil
}

func (d *Driver) abandon(ctx context.Context) error {
	d.mu.Lock()
	id := d.sessionID
	done := d.submitted
	d.mu.Unlock()
	if id == "" || done {
		return nil
	}

	// 会话可能已在其他标签页结束
	if err := d.api.AbandonSession(ctx, id); err != nil && !apiclient.IsNotFound(err) {
		return errors.Wrap(err, "abandon session")
	}
	d.mu.Lock()
	d.stopLocked()
	d.sessionID = ""
	d.mu.Unlock()
	return nil
}

// SwitchMode abandons the current session and starts a new one in mode.
// With answers present it requires confirmed.
func (d *Driver) SwitchMode(ctx context.Context, mode apiclient.Mode, confirmed bool) error {
	d.mu.Lock()
	hasAnswers := len(d.answers) > 0 && !d.submitted
	d.mu.Unlock()
	if hasAnswers && !confirmed {
		return ErrConfirmationRequired
	}

	if err := d.abandon(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	d.answers = make(map[int]scoring.QuestionAnswer)
	d.current = 0
	d.timer = Timer{}
	d.mu.Unlock()

	_, err := d.Start(ctx, mode)
	return err
}

// Close stops the timer and autosave.
func (d *Driver) Close() {
	d.mu.Lock()
	d.stopLocked()
	d.mu.Unlock()
}

func (d *Driver) stopLocked() {
	for _, cancel := range d.cancels {
		cancel()
	}
	d.cancels = nil
}
