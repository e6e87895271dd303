package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
	"elearning-quiz/internal/infra/memory"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestAllCorrectAnswersScoreFiftyEach(t *testing.T) {
	h := newHarness(t, sampleQuestions(3))

	for i := 0; i < 3; i++ {
		if err := h.ctrl.SubmitAnswer(true); err != nil {
			t.Fatalf("answer %d: %v", i+1, err)
		}
	}
	h.ctrl.Wait()

	st := h.ctrl.State()
	if st.Phase != domain.PhaseFinished || st.Score != 150 {
		t.Fatalf("expected finished with 150, got %+v", st)
	}
	if got := h.sink.submitted(); len(got) != 1 || got[0] != 150 {
		t.Fatalf("expected one submission of 150, got %v", got)
	}
	if h.flagSet() {
		t.Fatalf("expected session flag cleared after finish")
	}
}

func TestAllWrongAnswersScoreZero(t *testing.T) {
	h := newHarness(t, sampleQuestions(4))

	for i := 0; i < 4; i++ {
		if err := h.ctrl.SubmitAnswer(false); err != nil {
			t.Fatalf("answer %d: %v", i+1, err)
		}
	}
	h.ctrl.Wait()

	if st := h.ctrl.State(); st.Phase != domain.PhaseFinished || st.Score != 0 {
		t.Fatalf("expected finished with 0, got %+v", st)
	}
	if got := h.sink.submitted(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected one submission of 0, got %v", got)
	}
}

func TestCorrectThenWrongOnTwoQuestions(t *testing.T) {
	h := newHarness(t, sampleQuestions(2))

	_ = h.ctrl.SubmitAnswer(true)
	_ = h.ctrl.SubmitAnswer(false)
	h.ctrl.Wait()

	st := h.ctrl.State()
	if st.Phase != domain.PhaseFinished || st.Score != 50 {
		t.Fatalf("expected finished with 50, got %+v", st)
	}
	if h.flagSet() {
		t.Fatalf("expected session flag cleared")
	}
}

func TestSubmitAfterFinishHasNoEffect(t *testing.T) {
	h := newHarness(t, sampleQuestions(1))

	_ = h.ctrl.SubmitAnswer(true)
	before := h.ctrl.State()

	err := h.ctrl.SubmitAnswer(true)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := h.ctrl.SubmitOption(0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for option, got %v", err)
	}
	h.ctrl.Wait()

	after := h.ctrl.State()
	if after.Score != before.Score || after.QuestionIndex != before.QuestionIndex {
		t.Fatalf("state changed after finish: before %+v after %+v", before, after)
	}
	if got := h.sink.submitted(); len(got) != 1 {
		t.Fatalf("expected exactly one score submission, got %v", got)
	}
}

func TestAnswerResetsQuestionTimer(t *testing.T) {
	h := newHarness(t, sampleQuestions(2))

	h.sched.tick(40)
	if st := h.ctrl.State(); st.RemainingSeconds != 260 {
		t.Fatalf("expected 260s left, got %d", st.RemainingSeconds)
	}
	_ = h.ctrl.SubmitAnswer(true)
	if st := h.ctrl.State(); st.RemainingSeconds != 300 || st.QuestionIndex != 1 {
		t.Fatalf("expected timer reset on question 2, got %+v", st)
	}
}

func TestTimeoutOnLastQuestionFinishesWithAccumulatedScore(t *testing.T) {
	h := newHarness(t, sampleQuestions(2))

	_ = h.ctrl.SubmitAnswer(true)
	h.sched.tick(300)
	h.ctrl.Wait()

	st := h.ctrl.State()
	if st.Phase != domain.PhaseFinished || st.Score != 50 || st.RemainingSeconds != 0 {
		t.Fatalf("expected finished with 50 and no time left, got %+v", st)
	}
	if got := h.sink.submitted(); len(got) != 1 || got[0] != 50 {
		t.Fatalf("expected one submission of 50, got %v", got)
	}
}

func TestTimeoutWithoutAnswersOnSingleQuestion(t *testing.T) {
	h := newHarness(t, sampleQuestions(1))

	h.sched.tick(299)
	if st := h.ctrl.State(); st.Phase != domain.PhaseActive || st.RemainingSeconds != 1 {
		t.Fatalf("expected active with 1s left, got %+v", st)
	}
	h.sched.tick(1)
	h.ctrl.Wait()

	if st := h.ctrl.State(); st.Phase != domain.PhaseFinished || st.Score != 0 {
		t.Fatalf("expected finished with 0, got %+v", st)
	}
	if h.flagSet() {
		t.Fatalf("expected session flag cleared")
	}
}

func TestTimeoutEndsWholeSessionBeforeLastQuestion(t *testing.T) {
	h := newHarness(t, sampleQuestions(3))

	h.sched.tick(300)
	h.ctrl.Wait()

	st := h.ctrl.State()
	if st.Phase != domain.PhaseFinished || st.QuestionIndex != 0 {
		t.Fatalf("expected session finished on question 1, got %+v", st)
	}
}

func TestTimerInertOnceFinished(t *testing.T) {
	h := newHarness(t, sampleQuestions(1))

	stale := h.sched.current()
	_ = h.ctrl.SubmitAnswer(false)
	if h.sched.armed() {
		t.Fatalf("expected timer cancelled on finish")
	}

	before := h.ctrl.State()
	stale()
	if after := h.ctrl.State(); after != before {
		t.Fatalf("stale tick mutated state: before %+v after %+v", before, after)
	}
}

func TestRestartFromFinished(t *testing.T) {
	h := newHarness(t, sampleQuestions(2))

	_ = h.ctrl.SubmitAnswer(true)
	staleTick := h.sched.current()
	_ = h.ctrl.SubmitAnswer(true)
	h.ctrl.Wait()

	if err := h.ctrl.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	st := h.ctrl.State()
	if st.Phase != domain.PhaseActive || st.QuestionIndex != 0 || st.Score != 0 || st.RemainingSeconds != 300 {
		t.Fatalf("unexpected state after restart: %+v", st)
	}
	if !h.flagSet() {
		t.Fatalf("expected session flag raised on restart")
	}
	if h.source.calls() != 1 {
		t.Fatalf("expected questions reused, fetched %d times", h.source.calls())
	}
	staleTick()
	if got := h.ctrl.State().RemainingSeconds; got != 300 {
		t.Fatalf("stale tick leaked into restarted session: %d", got)
	}
	h.sched.tick(1)
	if got := h.ctrl.State().RemainingSeconds; got != 299 {
		t.Fatalf("expected new timer running, got %d", got)
	}
}

func TestRestartWhileActiveIsIgnored(t *testing.T) {
	h := newHarness(t, sampleQuestions(3))

	_ = h.ctrl.SubmitAnswer(true)
	h.sched.tick(5)
	before := h.ctrl.State()

	if err := h.ctrl.Restart(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if after := h.ctrl.State(); after != before {
		t.Fatalf("restart changed state: before %+v after %+v", before, after)
	}
}

func TestCloseClearsFlagInEveryPhase(t *testing.T) {
	t.Run("loading", func(t *testing.T) {
		source := newGatedSource(sampleQuestions(1))
		flag := app.NewSessionFlag(memory.NewKVStore(), "")
		ctrl := app.NewController(source, &recordingSink{}, flag, app.WithScheduler(&manualScheduler{}), app.WithLogger(quietLogger()))
		if err := ctrl.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		if !mustGet(t, flag) {
			t.Fatalf("expected flag raised while loading")
		}
		ctrl.Close()
		ctrl.Wait()
		if mustGet(t, flag) {
			t.Fatalf("expected flag cleared")
		}
	})

	t.Run("active", func(t *testing.T) {
		h := newHarness(t, sampleQuestions(2))
		h.sched.tick(3)
		h.ctrl.Close()
		if h.flagSet() {
			t.Fatalf("expected flag cleared")
		}
		if h.sched.armed() {
			t.Fatalf("expected timer cancelled")
		}
		if len(h.sink.submitted()) != 0 {
			t.Fatalf("teardown must not submit a score")
		}
	})

	t.Run("finished", func(t *testing.T) {
		h := newHarness(t, sampleQuestions(1))
		_ = h.ctrl.SubmitAnswer(true)
		h.ctrl.Close()
		h.ctrl.Wait()
		if h.flagSet() {
			t.Fatalf("expected flag cleared")
		}
	})
}

func TestLateQuestionListIsDiscardedAfterClose(t *testing.T) {
	source := newGatedSource(sampleQuestions(2))
	sched := &manualScheduler{}
	ctrl := app.NewController(source, &recordingSink{}, app.NewSessionFlag(memory.NewKVStore(), ""),
		app.WithScheduler(sched), app.WithLogger(quietLogger()))

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.Close()
	source.open()
	ctrl.Wait()

	if st := ctrl.State(); st.Phase == domain.PhaseActive {
		t.Fatalf("closed session became active: %+v", st)
	}
	if sched.armed() {
		t.Fatalf("timer armed for a closed session")
	}
}

func TestFetchFailureEntersFailedAndRetryRecovers(t *testing.T) {
	source := &staticSource{err: errors.New("connection refused")}
	flag := app.NewSessionFlag(memory.NewKVStore(), "")
	sched := &manualScheduler{}
	ctrl := app.NewController(source, &recordingSink{}, flag, app.WithScheduler(sched), app.WithLogger(quietLogger()))

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.Wait()

	if st := ctrl.State(); st.Phase != domain.PhaseFailed {
		t.Fatalf("expected failed phase, got %+v", st)
	}
	if !errors.Is(ctrl.Err(), domain.ErrFetchQuestions) {
		t.Fatalf("expected fetch error, got %v", ctrl.Err())
	}
	if sched.armed() {
		t.Fatalf("timer must not run without questions")
	}
	if err := ctrl.SubmitAnswer(true); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	source.set(sampleQuestions(2), nil)
	if err := ctrl.Retry(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	ctrl.Wait()

	if st := ctrl.State(); st.Phase != domain.PhaseActive || st.QuestionCount != 2 {
		t.Fatalf("expected active after retry, got %+v", st)
	}
	if ctrl.Err() != nil {
		t.Fatalf("expected error cleared, got %v", ctrl.Err())
	}
	ctrl.Close()
}

func TestEmptyQuestionListIsAFetchFailure(t *testing.T) {
	source := &staticSource{}
	ctrl := app.NewController(source, &recordingSink{}, app.NewSessionFlag(memory.NewKVStore(), ""),
		app.WithScheduler(&manualScheduler{}), app.WithLogger(quietLogger()))
	_ = ctrl.Start(context.Background())
	ctrl.Wait()

	if !errors.Is(ctrl.Err(), domain.ErrNoQuestions) {
		t.Fatalf("expected no questions error, got %v", ctrl.Err())
	}
	if err := ctrl.Retry(context.Background()); err != nil {
		t.Fatalf("retry from failed: %v", err)
	}
	ctrl.Wait()
	ctrl.Close()
}

func TestScoreSubmitFailureDoesNotBlockFinish(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := newHarnessWith(t, sampleQuestions(1), &recordingSink{err: errors.New("503 service unavailable")}, logger)

	_ = h.ctrl.SubmitAnswer(true)
	if st := h.ctrl.State(); st.Phase != domain.PhaseFinished {
		t.Fatalf("expected finished before submission returns, got %+v", st)
	}
	h.ctrl.Wait()

	if !errors.Is(h.ctrl.Err(), domain.ErrSubmitScore) {
		t.Fatalf("expected score submit error, got %v", h.ctrl.Err())
	}
	if len(h.sink.submitted()) != 1 {
		t.Fatalf("expected exactly one attempt, got %v", h.sink.submitted())
	}
	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Message == "failed to save score" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected score failure to be logged")
	}
}

func TestSubmitOption(t *testing.T) {
	h := newHarness(t, sampleQuestions(2))

	correct, err := h.ctrl.SubmitOption(1)
	if err != nil || !correct {
		t.Fatalf("expected option 2 correct, got %v %v", correct, err)
	}
	if _, err := h.ctrl.SubmitOption(4); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option not found, got %v", err)
	}
	correct, err = h.ctrl.SubmitOption(0)
	if err != nil || correct {
		t.Fatalf("expected option 1 wrong, got %v %v", correct, err)
	}
	h.ctrl.Wait()
	if st := h.ctrl.State(); st.Score != 50 || st.Phase != domain.PhaseFinished {
		t.Fatalf("unexpected final state %+v", st)
	}
}

func TestStartTwiceIsRejected(t *testing.T) {
	h := newHarness(t, sampleQuestions(1))
	if err := h.ctrl.Start(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSubscribeReceivesStateUpdates(t *testing.T) {
	h := newHarness(t, sampleQuestions(2))

	updates, cancel := h.ctrl.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.Phase != domain.PhaseActive {
		t.Fatalf("expected active snapshot, got %+v", initial)
	}

	_ = h.ctrl.SubmitAnswer(true)
	update := <-updates
	if update.Score != 50 || update.QuestionIndex != 1 {
		t.Fatalf("expected score 50 on question 2, got %+v", update)
	}

	h.ctrl.Close()
	for range updates {
	}
}

func TestTickerSchedulerStops(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	stop := app.TickerScheduler{}.Every(5*time.Millisecond, func() {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := ticks
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ticker never fired")
		}
		time.Sleep(time.Millisecond)
	}
	stop()
	stop()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	settled := ticks
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if ticks != settled {
		t.Fatalf("ticker kept firing after stop: %d -> %d", settled, ticks)
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{300: "5:00", 61: "1:01", 9: "0:09", 0: "0:00", -3: "0:00"}
	for in, want := range cases {
		if got := app.FormatClock(in); got != want {
			t.Fatalf("FormatClock(%d) = %q, want %q", in, got, want)
		}
	}
}

type harness struct {
	t      *testing.T
	ctrl   *app.Controller
	source *staticSource
	sink   *recordingSink
	sched  *manualScheduler
	flag   *app.SessionFlag
}

func newHarness(t *testing.T, questions []domain.Question) *harness {
	return newHarnessWith(t, questions, &recordingSink{}, quietLogger())
}

func newHarnessWith(t *testing.T, questions []domain.Question, sink *recordingSink, logger logrus.FieldLogger) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		source: &staticSource{questions: questions},
		sink:   sink,
		sched:  &manualScheduler{},
		flag:   app.NewSessionFlag(memory.NewKVStore(), ""),
	}
	h.ctrl = app.NewController(h.source, h.sink, h.flag, app.WithScheduler(h.sched), app.WithLogger(logger))
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.ctrl.Wait()
	if st := h.ctrl.State(); st.Phase != domain.PhaseActive {
		t.Fatalf("expected active session, got %+v", st)
	}
	if !h.flagSet() {
		t.Fatalf("expected session flag raised")
	}
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) flagSet() bool {
	h.t.Helper()
	return mustGet(h.t, h.flag)
}

func mustGet(t *testing.T, flag *app.SessionFlag) bool {
	t.Helper()
	v, err := flag.Get(context.Background())
	if err != nil {
		t.Fatalf("read flag: %v", err)
	}
	return v
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

// manualScheduler fires ticks on the test goroutine.
type manualScheduler struct {
	mu    sync.Mutex
	fn    func()
	armID int
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	s.armID++
	id := s.armID
	s.fn = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.armID == id {
			s.fn = nil
		}
		s.mu.Unlock()
	}
}

func (s *manualScheduler) tick(n int) {
	for i := 0; i < n; i++ {
		fn := s.current()
		if fn == nil {
			return
		}
		fn()
	}
}

func (s *manualScheduler) current() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn
}

func (s *manualScheduler) armed() bool {
	return s.current() != nil
}

type staticSource struct {
	mu        sync.Mutex
	questions []domain.Question
	err       error
	n         int
}

func (s *staticSource) FetchQuestions(context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.questions, s.err
}

func (s *staticSource) set(questions []domain.Question, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions, s.err = questions, err
}

func (s *staticSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

type gatedSource struct {
	questions []domain.Question
	release   chan struct{}
	once      sync.Once
}

func newGatedSource(questions []domain.Question) *gatedSource {
	return &gatedSource{questions: questions, release: make(chan struct{})}
}

func (s *gatedSource) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	select {
	case <-s.release:
		return s.questions, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *gatedSource) open() {
	s.once.Do(func() { close(s.release) })
}

type recordingSink struct {
	mu     sync.Mutex
	scores []int
	err    error
}

func (s *recordingSink) SubmitScore(_ context.Context, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, score)
	return s.err
}

func (s *recordingSink) submitted() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.scores...)
}

func sampleQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:   int64(i + 1),
			Text: "What is 2 + 2?",
			Options: []domain.Option{
				{Label: "3"},
				{Label: "4", Correct: true},
				{Label: "5"},
				{Label: "22"},
			},
		})
	}
	return questions
}
