// Package endless drives sessionless practice runs: it pulls question batches
// from the pool, gives live feedback and records each run as one Attempt.
package endless

import (
	"context"
	"sync"
	"time"

	"assessment_backend/pkg/apiclient"
	"assessment_backend/pkg/scoring"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize  = 10
	DefaultWindowSize = 30
)

var (
	ErrEnded         = errors.New("endless run has ended")
	ErrNotStarted    = errors.New("endless run not started")
	ErrQuestionIndex = errors.New("question index out of range")
	ErrRecording     = errors.New("endless run is being recorded")
)

type API interface {
	FetchEndlessBatch(ctx context.Context, size int, exclude []string) ([]apiclient.EndlessQuestion, error)
	RecordAttempt(ctx context.Context, req apiclient.RecordAttemptRequest) (*apiclient.SubmitResult, error)
}

type Options struct {
	BatchSize  int
	WindowSize int
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Feedback is returned for every answer.
type Feedback struct {
	Correct bool
	// Result is set when this answer exhausted the batch and the run was
	// recorded.
	Result *apiclient.SubmitResult
}

type Driver struct {
	api    API
	opts   Options
	window *Window

	mu      sync.Mutex
	batch   []apiclient.EndlessQuestion
	answers map[int]scoring.QuestionAnswer
	started time.Time
	ending  bool
	ended   bool
	result  *apiclient.SubmitResult
}

func New(api API, opts Options) *Driver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Driver{api: api, opts: opts, window: NewWindow(opts.WindowSize)}
}

// Start fetches a new batch excluding the recently seen keys and begins a run.
func (d *Driver) Start(ctx context.Context) ([]apiclient.EndlessQuestion, error) {
	d.mu.Lock()
	if d.ending {
		d.mu.Unlock()
		return nil, ErrRecording
	}
	exclude := d.window.Keys()
	d.mu.Unlock()

	batch, err := d.api.FetchEndlessBatch(ctx, d.opts.BatchSize, exclude)
	if err != nil {
		return nil, errors.Wrap(err, "fetch endless batch")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ending {
		return nil, ErrRecording
	}
	d.batch = batch
	d.answers = make(map[int]scoring.QuestionAnswer, len(batch))
	d.started = d.opts.Now()
	d.ended = false
	d.result = nil
	for _, q := range batch {
		d.window.Add(q.Key)
	}
	d.opts.Logger.Debug("endless batch loaded", zap.Int("size", len(batch)), zap.Int("excluded", len(exclude)))
	return batch, nil
}

// Answer scores the answer to the i-th question of the batch. Answering the
// last open question records the run.
func (d *Driver) Answer(ctx context.Context, i int, answer scoring.Answer) (Feedback, error) {
	d.mu.Lock()
	if d.batch == nil {
		d.mu.Unlock()
		return Feedback{}, ErrNotStarted
	}
	if d.ended || d.ending {
		d.mu.Unlock()
		return Feedback{}, ErrEnded
	}
	if i < 0 || i >= len(d.batch) {
		d.mu.Unlock()
		return Feedback{}, ErrQuestionIndex
	}
	d.answers[i] = scoring.QuestionAnswer{QuestionIndex: i, Answer: answer}
	fb := Feedback{Correct: scoring.Score(d.batch[i].Question, answer)}
	if len(d.answers) < len(d.batch) {
		d.mu.Unlock()
		return fb, nil
	}
	req := d.beginEndLocked()
	d.mu.Unlock()

	res, err := d.record(ctx, req)
	if err != nil {
		return fb, err
	}
	fb.Result = res
	return fb, nil
}

// End records the run as an Endless attempt. Questions without an answer are
// scored as empty answers. It is final: later and concurrent calls return
// ErrEnded.
func (d *Driver) End(ctx context.Context) (*apiclient.SubmitResult, error) {
	d.mu.Lock()
	if d.batch == nil {
		d.mu.Unlock()
		return nil, ErrNotStarted
	}
	if d.ended || d.ending {
		d.mu.Unlock()
		return nil, ErrEnded
	}
	req := d.beginEndLocked()
	d.mu.Unlock()

	return d.record(ctx, req)
}

// beginEndLocked claims the run for recording and snapshots it. Caller holds
// d.mu.
func (d *Driver) beginEndLocked() apiclient.RecordAttemptRequest {
	d.ending = true
	req := apiclient.RecordAttemptRequest{
		Mode:            apiclient.ModeEndless,
		Answers:         scoring.FromMap(d.answers),
		Duration:        int(d.opts.Now().Sub(d.started).Seconds()),
		SourceQuestions: make([]apiclient.SourceQuestion, len(d.batch)),
	}
	for i, q := range d.batch {
		req.SourceQuestions[i] = apiclient.SourceQuestion{TestID: q.TestID, QuestionIndex: q.QuestionIndex}
	}
	return req
}

// record sends the snapshot. On failure the claim is released so the run can
// be ended again.
func (d *Driver) record(ctx context.Context, req apiclient.RecordAttemptRequest) (*apiclient.SubmitResult, error) {
	res, err := d.api.RecordAttempt(ctx, req)

	d.mu.Lock()
	d.ending = false
	if err != nil {
		d.mu.Unlock()
		return nil, errors.Wrap(err, "record endless attempt")
	}
	d.ended = true
	d.result = res
	d.mu.Unlock()

	d.opts.Logger.Info("endless run recorded",
		zap.String("attemptId", res.Attempt.ID),
		zap.Int("score", res.Score),
		zap.Int("total", res.Total),
	)
	return res, nil
}

func (d *Driver) Ended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ended
}

// Recent returns the recently seen keys, oldest first.
func (d *Driver) Recent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window.Keys()
}
