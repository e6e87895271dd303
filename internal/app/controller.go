package app

import (
	"context"
	"sync"
	"time"

	"elearning-quiz/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultQuestionDuration is the time a player gets for each question.
	DefaultQuestionDuration = 300 * time.Second
	// DefaultPoints is awarded for every correct answer.
	DefaultPoints = 50

	tickInterval     = time.Second
	asyncCallTimeout = 30 * time.Second
	flagWriteTimeout = 5 * time.Second
)

// QuestionSource supplies the ordered question list of a quiz.
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// ScoreSink records the final score of the authenticated player.
type ScoreSink interface {
	SubmitScore(ctx context.Context, score int) error
}

// SessionFlagStore holds the process-wide "quiz in progress" flag read by navigation guards.
type SessionFlagStore interface {
	Set(ctx context.Context, inProgress bool) error
	Get(ctx context.Context) (bool, error)
}

// Option configures a Controller.
type Option func(*Controller)

func WithQuestionDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d >= time.Second {
			c.duration = int(d / time.Second)
		}
	}
}

func WithPoints(points int) Option {
	return func(c *Controller) {
		if points > 0 {
			c.points = points
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller drives one timed, single-pass quiz from question loading to score submission.
//
// Every transition happens under mu, so timer ticks, answers and network responses are applied
// one at a time. Asynchronous work is tagged with the generation current when it was issued;
// a result whose generation is no longer current is dropped.
type Controller struct {
	id        string
	questions QuestionSource
	scores    ScoreSink
	flag      SessionFlagStore
	scheduler Scheduler
	log       logrus.FieldLogger
	duration  int
	points    int

	mu          sync.Mutex
	started     bool
	closed      bool
	generation  uint64
	phase       domain.Phase
	index       int
	score       int
	remaining   int
	loaded      []domain.Question
	lastErr     error
	stopTimer   func()
	cancelFetch context.CancelFunc
	subscribers map[chan domain.SessionState]struct{}

	inflight sync.WaitGroup
}

func NewController(questions QuestionSource, scores ScoreSink, flag SessionFlagStore, opts ...Option) *Controller {
	c := &Controller{
		id:          uuid.NewString(),
		questions:   questions,
		scores:      scores,
		flag:        flag,
		scheduler:   TickerScheduler{},
		log:         logrus.StandardLogger(),
		duration:    int(DefaultQuestionDuration / time.Second),
		points:      DefaultPoints,
		phase:       domain.PhaseLoading,
		subscribers: make(map[chan domain.SessionState]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("session", c.id)
	return c
}

// ID identifies the controller in logs and on the wire.
func (c *Controller) ID() string {
	return c.id
}

// Start raises the session flag and requests the question list. It returns immediately;
// the session stays in the loading phase until the questions arrive.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.started {
		return errors.Wrap(domain.ErrInvalidTransition, "session already started")
	}
	c.started = true
	c.setFlagLocked(true)
	c.fetchLocked(ctx)
	c.broadcastLocked()
	return nil
}

// Retry re-issues the question request after a failed load.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.phase != domain.PhaseFailed {
		return errors.Wrapf(domain.ErrInvalidTransition, "retry in phase %s", c.phase)
	}
	c.setFlagLocked(true)
	c.fetchLocked(ctx)
	c.broadcastLocked()
	return nil
}

// SubmitAnswer scores the current question and advances to the next one.
func (c *Controller) SubmitAnswer(isCorrect bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.phase != domain.PhaseActive {
		return errors.Wrapf(domain.ErrInvalidTransition, "submit answer in phase %s", c.phase)
	}
	c.answerLocked(isCorrect)
	c.broadcastLocked()
	return nil
}

// SubmitOption answers the current question with the option at index (0-based) and reports
// whether it was the correct one.
func (c *Controller) SubmitOption(index int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.phase != domain.PhaseActive {
		return false, errors.Wrapf(domain.ErrInvalidTransition, "submit answer in phase %s", c.phase)
	}
	options := c.loaded[c.index].Options
	if index < 0 || index >= len(options) {
		return false, errors.Wrapf(domain.ErrOptionNotFound, "option %d of %d", index+1, len(options))
	}
	correct := options[index].Correct
	c.answerLocked(correct)
	c.broadcastLocked()
	return correct, nil
}

// Restart begins a new run over the already loaded questions.
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.phase != domain.PhaseFinished {
		return errors.Wrapf(domain.ErrInvalidTransition, "restart in phase %s", c.phase)
	}
	c.generation++
	c.setFlagLocked(true)
	c.activateLocked()
	c.broadcastLocked()
	return nil
}

// Close tears the session down in any phase: the timer and any pending load are cancelled and
// the session flag is cleared. A score submission already in flight is left to complete.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.stopTimerLocked()
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.setFlagLocked(false)
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

// Wait blocks until the question request and score submissions issued so far have returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// State returns a snapshot of the session.
func (c *Controller) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// CurrentQuestion returns the question being answered while the session is active.
func (c *Controller) CurrentQuestion() (domain.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseActive || c.index >= len(c.loaded) {
		return domain.Question{}, false
	}
	return c.loaded[c.index], true
}

// QuestionAt returns the loaded question at index, in any phase.
func (c *Controller) QuestionAt(index int) (domain.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.loaded) {
		return domain.Question{}, false
	}
	return c.loaded[index], true
}

// Err returns the last boundary failure (question load or score submission) of the current run.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe returns a channel of state snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) fetchLocked(ctx context.Context) {
	c.generation++
	generation := c.generation
	c.phase = domain.PhaseLoading
	c.lastErr = nil
	c.stopTimerLocked()

	fetchCtx, cancel := context.WithTimeout(ctx, asyncCallTimeout)
	c.cancelFetch = cancel

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()
		questions, err := c.questions.FetchQuestions(fetchCtx)
		c.onQuestions(generation, questions, err)
	}()
}

func (c *Controller) onQuestions(generation uint64, questions []domain.Question, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.WithField("generation", generation)
	if generation != c.generation || c.closed || c.phase != domain.PhaseLoading {
		log.Debug("discarding stale question list")
		return
	}
	c.cancelFetch = nil

	if err == nil && len(questions) == 0 {
		err = domain.ErrNoQuestions
	}
	if err != nil {
		c.lastErr = &domain.SessionError{Kind: domain.ErrFetchQuestions, Err: err}
		c.phase = domain.PhaseFailed
		log.WithError(err).Error("failed to fetch quiz questions")
		c.broadcastLocked()
		return
	}

	c.loaded = questions
	c.activateLocked()
	log.WithField("questions", len(questions)).Info("quiz session started")
	c.broadcastLocked()
}

func (c *Controller) activateLocked() {
	c.phase = domain.PhaseActive
	c.index = 0
	c.score = 0
	c.remaining = c.duration
	c.lastErr = nil

	c.stopTimerLocked()
	generation := c.generation
	c.stopTimer = c.scheduler.Every(tickInterval, func() {
		c.onTick(generation)
	})
}

func (c *Controller) onTick(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation || c.closed || c.phase != domain.PhaseActive {
		return
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.log.WithField("question", c.index+1).Info("time is up")
		// Running out of time ends the whole session, not just the current question.
		c.finishLocked()
	}
	c.broadcastLocked()
}

func (c *Controller) answerLocked(isCorrect bool) {
	if isCorrect {
		c.score += c.points
	}
	c.index++
	if c.index < len(c.loaded) {
		c.remaining = c.duration
		return
	}
	c.finishLocked()
}

func (c *Controller) finishLocked() {
	c.phase = domain.PhaseFinished
	c.stopTimerLocked()
	c.setFlagLocked(false)

	score, generation := c.score, c.generation
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncCallTimeout)
		defer cancel()
		err := c.scores.SubmitScore(ctx, score)
		c.onScoreSubmitted(generation, score, err)
	}()
}

func (c *Controller) onScoreSubmitted(generation uint64, score int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.WithFields(logrus.Fields{"generation": generation, "score": score})
	if err != nil {
		log.WithError(err).Error("failed to save score")
	} else {
		log.Info("score saved")
	}
	if generation != c.generation || c.closed {
		return
	}
	if err != nil {
		c.lastErr = &domain.SessionError{Kind: domain.ErrSubmitScore, Err: err}
	}
}

func (c *Controller) stopTimerLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
}

// setFlagLocked writes the session flag on a detached context: teardown must clear it even when
// the caller's context is already done.
func (c *Controller) setFlagLocked(inProgress bool) {
	ctx, cancel := context.WithTimeout(context.Background(), flagWriteTimeout)
	defer cancel()
	if err := c.flag.Set(ctx, inProgress); err != nil {
		c.log.WithError(err).WithField("inProgress", inProgress).Error("failed to write session flag")
	}
}

func (c *Controller) snapshotLocked() domain.SessionState {
	return domain.SessionState{
		SessionID:        c.id,
		Generation:       c.generation,
		Phase:            c.phase,
		QuestionIndex:    c.index,
		QuestionCount:    len(c.loaded),
		Score:            c.score,
		RemainingSeconds: c.remaining,
	}
}

func (c *Controller) broadcastLocked() {
	state := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- state:
		default:
			// drop the oldest snapshot so a slow reader never blocks a transition
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
