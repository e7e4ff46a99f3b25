package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/logger"
	"github.com/google/uuid"
)

const (
	adminPhone = "000"
	adminRank  = "COMANDO"
)

// EngineDeps wires an Engine to its collaborators. Only Users is required.
type EngineDeps struct {
	Users     UserStore
	Auth      *Authenticator
	Sync      ScoreSyncer
	Hints     HintProvider
	Scheduler Scheduler
	Rand      *rand.Rand
	Now       func() time.Time
}

// Engine is the session state machine for one player on one device.
// Every transition holds mu, so transitions never interleave; the only
// deferred work is the settle-delay advance, which is tied to a generation
// number and becomes a no-op once the session it belonged to is gone.
type Engine struct {
	policy Policy
	users  UserStore
	auth   *Authenticator
	sync   ScoreSyncer
	hints  HintProvider
	sched  Scheduler
	now    func() time.Time

	mu          sync.Mutex
	rnd         *rand.Rand
	user        *domain.User
	pool        []domain.Question
	sess        session
	generation  uint64
	pending     Timer
	subscribers map[chan domain.Event]struct{}
}

type session struct {
	id          string
	state       domain.State
	questions   []domain.Question
	index       int
	consecutive int
	score       int
	banked      int // prize already earned, including one still settling
	lifelines   domain.Lifelines
	hidden      []int
	selected    *int
	locked      bool
	hint        string
	promotion   string
	wrong       *domain.Question
	wrongPick   int
}

func NewEngine(policy Policy, deps EngineDeps) *Engine {
	if deps.Scheduler == nil {
		deps.Scheduler = SystemScheduler
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sync == nil {
		deps.Sync = noopSync{}
	}
	if deps.Auth == nil {
		deps.Auth, _ = NewAuthenticator("", "")
	}
	return &Engine{
		policy:      policy.withDefaults(),
		users:       deps.Users,
		auth:        deps.Auth,
		sync:        deps.Sync,
		hints:       deps.Hints,
		sched:       deps.Scheduler,
		now:         deps.Now,
		rnd:         deps.Rand,
		sess:        session{state: domain.StateIdle},
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

type noopSync struct{}

func (noopSync) SyncScore(string, int, string, string) {}

// Login validates credentials, loads or creates the profile and makes it the
// device's current user. Any running session is discarded.
func (e *Engine) Login(ctx context.Context, nickname, phone, passphrase string) (domain.User, error) {
	ident, err := e.auth.Verify(nickname, phone, passphrase)
	if err != nil {
		return domain.User{}, err
	}

	var user domain.User
	if ident.Admin {
		user = domain.User{
			Nickname:        ident.Nickname,
			Phone:           adminPhone,
			Rank:            adminRank,
			LastPlayed:      e.now(),
			IsAdmin:         true,
			SeenQuestionIDs: domain.NewIDSet(),
		}
	} else {
		user = e.findOrCreate(ctx, ident)
		if err := e.users.SaveAllUsers(ctx, []domain.User{user}); err != nil {
			logger.Error("save users: %v", err)
		}
	}
	if err := e.users.SaveCurrentUser(ctx, user); err != nil {
		logger.Error("save current user: %v", err)
	}

	e.mu.Lock()
	e.attachLocked(user)
	e.mu.Unlock()

	if !user.IsAdmin {
		e.sync.SyncScore(user.Nickname, user.Score, user.Rank, user.Phone)
	}
	return user.Clone(), nil
}

func (e *Engine) findOrCreate(ctx context.Context, ident Identity) domain.User {
	all, err := e.users.LoadAllUsers(ctx)
	if err != nil {
		logger.Error("load users: %v", err)
	}
	for _, u := range all {
		if domain.NormalizeNickname(u.Nickname) == ident.Nickname {
			user := u.Clone()
			user.Phone = ident.Phone
			return user
		}
	}
	return domain.User{
		Nickname:        ident.Nickname,
		Phone:           ident.Phone,
		Rank:            e.policy.Ladder.First(),
		LastPlayed:      e.now(),
		SeenQuestionIDs: domain.NewIDSet(),
	}
}

// Resume restores the device's current user, if any. The device copy may be
// older than the shared profile (another device played since), so score,
// rank and seen set come from the profile table.
func (e *Engine) Resume(ctx context.Context) (domain.User, bool, error) {
	user, ok, err := e.users.LoadCurrentUser(ctx)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	user = e.reconcile(ctx, user)
	if err := e.users.SaveCurrentUser(ctx, user); err != nil {
		logger.Error("save current user: %v", err)
	}
	e.mu.Lock()
	e.attachLocked(user)
	e.mu.Unlock()
	return user.Clone(), true, nil
}

// Reload refreshes an idle user from the profile table. A running session
// keeps its copy so queued questions stay consistent with the seen set.
func (e *Engine) Reload(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil || e.sess.state == domain.StateRunning {
		return
	}
	u := e.reconcile(ctx, *e.user)
	e.user = &u
	if err := e.users.SaveCurrentUser(ctx, u); err != nil {
		logger.Error("save current user: %v", err)
	}
}

func (e *Engine) reconcile(ctx context.Context, user domain.User) domain.User {
	if user.IsAdmin {
		return user
	}
	all, err := e.users.LoadAllUsers(ctx)
	if err != nil {
		logger.Error("load users: %v", err)
		return user
	}
	nick := domain.NormalizeNickname(user.Nickname)
	for _, stored := range all {
		if domain.NormalizeNickname(stored.Nickname) != nick {
			continue
		}
		merged := stored.Clone()
		merged.Score = max(stored.Score, user.Score)
		if merged.Phone == "" {
			merged.Phone = user.Phone
		}
		return merged
	}
	return user
}

// Evict detaches the user from a session taken over by another connection.
// A running session banks its score first. The device slot is kept so the
// device can resume later.
func (e *Engine) Evict(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil {
		return
	}
	if e.sess.state == domain.StateRunning {
		e.bankScoreLocked(ctx)
	}
	e.invalidateLocked()
	e.sess = session{state: domain.StateIdle}
	e.user = nil
	e.broadcastLocked(domain.EventSuperseded, e.snapshotLocked())
}

// Logout discards the session and clears the device's current user.
func (e *Engine) Logout(ctx context.Context) error {
	e.mu.Lock()
	e.invalidateLocked()
	e.sess = session{state: domain.StateIdle}
	e.user = nil
	e.mu.Unlock()
	return e.users.ClearCurrentUser(ctx)
}

// User returns a copy of the active user.
func (e *Engine) User() (domain.User, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil {
		return domain.User{}, false
	}
	return e.user.Clone(), true
}

func (e *Engine) attachLocked(user domain.User) {
	e.invalidateLocked()
	e.sess = session{state: domain.StateIdle}
	u := user.Clone()
	e.user = &u
}

// invalidateLocked ends the current generation so any scheduled advance
// belonging to it is ignored.
func (e *Engine) invalidateLocked() {
	e.generation++
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

// StartGame begins a new session over pool. Questions the user has already
// seen are skipped; if none remain the seen set is reset and the whole pool
// is played again.
func (e *Engine) StartGame(ctx context.Context, pool []domain.Question) (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.user == nil {
		return domain.Snapshot{}, domain.ErrNoActiveUser
	}
	if len(pool) == 0 {
		return domain.Snapshot{}, domain.ErrEmptyPool
	}

	e.invalidateLocked()
	e.pool = append([]domain.Question(nil), pool...)

	questions := ShuffledCandidates(e.rnd, e.pool, e.user.SeenQuestionIDs)
	if len(questions) == 0 {
		e.resetCycleLocked(ctx)
		questions = ShuffledCandidates(e.rnd, e.pool, e.user.SeenQuestionIDs)
	}

	e.sess = session{
		id:        uuid.NewString(),
		state:     domain.StateRunning,
		questions: questions,
		lifelines: e.policy.Lifelines,
	}
	e.user.LastPlayed = e.now()

	snap := e.snapshotLocked()
	e.broadcastLocked(domain.EventStarted, snap)
	return snap, nil
}

func (e *Engine) resetCycleLocked(ctx context.Context) {
	logger.Info("%s has seen all %d questions, starting a new cycle", e.user.Nickname, len(e.pool))
	e.user.SeenQuestionIDs = domain.NewIDSet()
	e.persistLocked(ctx)
	e.broadcastLocked(domain.EventReset, e.snapshotLocked())
}

// SubmitAnswer evaluates option index for the current question.
// A correct answer schedules the advance after the settle delay; a wrong one
// ends the session with a correction.
func (e *Engine) SubmitAnswer(ctx context.Context, index int) (domain.AnswerResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guardLocked(); err != nil {
		return domain.AnswerResult{}, err
	}
	q := e.sess.questions[e.sess.index]
	if index < 0 || index >= len(q.Options) {
		return domain.AnswerResult{}, domain.ErrOptionOutOfRange
	}

	e.sess.locked = true
	pick := index
	e.sess.selected = &pick

	result := domain.AnswerResult{
		QuestionID:    q.ID,
		Selected:      index,
		CorrectAnswer: q.CorrectAnswer,
	}

	if index != q.CorrectAnswer {
		e.endLocked(ctx, q, index)
		result.Ended = true
		return result, nil
	}

	e.sess.consecutive++
	e.user.SeenQuestionIDs.Add(q.ID)
	e.user.LastPlayed = e.now()
	if e.policy.Promotes(e.sess.consecutive) {
		next := e.policy.Ladder.Next(e.user.Rank)
		if next != e.user.Rank {
			e.user.Rank = next
			e.sess.promotion = next
			result.Promoted = next
		}
	}
	e.persistLocked(ctx)

	prize := domain.PrizeLevel(e.sess.index)
	e.sess.banked = prize
	result.Correct = true
	result.Prize = prize
	e.sync.SyncScore(e.user.Nickname, max(e.user.Score, prize), e.user.Rank, e.user.Phone)

	gen, from := e.generation, e.sess.index
	detached := context.WithoutCancel(ctx)
	e.pending = e.sched.AfterFunc(e.policy.SettleDelay, func() {
		e.advance(detached, gen, from)
	})

	if result.Promoted != "" {
		e.broadcastLocked(domain.EventPromoted, e.snapshotLocked())
	}
	return result, nil
}

func (e *Engine) endLocked(ctx context.Context, q domain.Question, pick int) {
	missed := q
	e.sess.state = domain.StateEnded
	e.sess.wrong = &missed
	e.sess.wrongPick = pick
	e.bankScoreLocked(ctx)
	e.invalidateLocked()
	e.broadcastLocked(domain.EventEnded, e.snapshotLocked())
}

// bankScoreLocked raises the user's best score to the session's earnings.
func (e *Engine) bankScoreLocked(ctx context.Context) {
	if e.sess.banked > e.user.Score {
		e.user.Score = e.sess.banked
	}
	e.user.LastPlayed = e.now()
	e.persistLocked(ctx)
	e.sync.SyncScore(e.user.Nickname, e.user.Score, e.user.Rank, e.user.Phone)
}

// advance is the settle-delay continuation for a correct answer at index from.
func (e *Engine) advance(ctx context.Context, gen uint64, from int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || e.sess.state != domain.StateRunning || e.sess.index != from || !e.sess.locked {
		logger.Debug("stale advance for generation %d ignored", gen)
		return
	}
	e.pending = nil
	e.sess.score = domain.PrizeLevel(from)
	e.stepLocked(ctx)
	e.broadcastLocked(domain.EventAdvanced, e.snapshotLocked())
}

// stepLocked moves to the next question, extending the queue first so the
// index never runs past it.
func (e *Engine) stepLocked(ctx context.Context) {
	e.extendLocked(ctx)
	e.sess.index++
	e.sess.hint = ""
	e.sess.hidden = nil
	e.sess.selected = nil
	e.sess.locked = false
	e.sess.promotion = ""
}

func (e *Engine) extendLocked(ctx context.Context) {
	if e.sess.index+1 < len(e.sess.questions) {
		return
	}
	current := e.sess.questions[e.sess.index].ID

	more := withoutID(ShuffledCandidates(e.rnd, e.pool, e.user.SeenQuestionIDs), current)
	if len(more) == 0 {
		e.resetCycleLocked(ctx)
		more = withoutID(ShuffledCandidates(e.rnd, e.pool, e.user.SeenQuestionIDs), current)
	}
	if len(more) == 0 {
		// single-question pool
		more = []domain.Question{e.sess.questions[e.sess.index]}
	}
	e.sess.questions = append(e.sess.questions, more...)
}

func withoutID(qs []domain.Question, id string) []domain.Question {
	out := qs[:0]
	for _, q := range qs {
		if q.ID != id {
			out = append(out, q)
		}
	}
	return out
}

// ReturnToMenu leaves the session. A running session banks its score first;
// questions answered correctly stay seen.
func (e *Engine) ReturnToMenu(ctx context.Context) domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.user != nil && e.sess.state == domain.StateRunning {
		e.bankScoreLocked(ctx)
	}
	e.invalidateLocked()
	e.sess = session{state: domain.StateIdle}
	return e.snapshotLocked()
}

func (e *Engine) guardLocked() error {
	if e.user == nil {
		return domain.ErrNoActiveUser
	}
	if e.sess.state != domain.StateRunning {
		return domain.ErrNotRunning
	}
	if e.sess.locked {
		return domain.ErrAnswerLocked
	}
	return nil
}

func (e *Engine) persistLocked(ctx context.Context) {
	u := e.user.Clone()
	if err := e.users.SaveCurrentUser(ctx, u); err != nil {
		logger.Error("save current user %s: %v", u.Nickname, err)
	}
	if u.IsAdmin {
		return
	}
	if err := e.users.SaveAllUsers(ctx, []domain.User{u}); err != nil {
		logger.Error("save user %s: %v", u.Nickname, err)
	}
}

// Snapshot returns a copy of the session state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	s := e.sess
	snap := domain.Snapshot{
		SessionID:          s.id,
		State:              s.state,
		Index:              s.index,
		Score:              s.score,
		Target:             domain.PrizeLevel(s.index),
		ConsecutiveCorrect: s.consecutive,
		Lifelines:          s.lifelines,
		HiddenOptions:      append([]int{}, s.hidden...),
		Locked:             s.locked,
		Hint:               s.hint,
		Promotion:          s.promotion,
		PoolSize:           len(e.pool),
	}
	if e.user != nil {
		snap.Nickname = e.user.Nickname
		snap.Rank = e.user.Rank
		snap.BestScore = e.user.Score
		snap.SeenCount = len(e.user.SeenQuestionIDs)
	}
	if s.state == domain.StateRunning && s.index < len(s.questions) {
		view := s.questions[s.index].View()
		snap.Question = &view
	}
	if s.selected != nil {
		pick := *s.selected
		snap.SelectedAnswer = &pick
	}
	if s.wrong != nil {
		snap.Correction = &domain.Correction{
			QuestionID:    s.wrong.ID,
			Text:          s.wrong.Text,
			CorrectOption: s.wrong.CorrectOption(),
			Reference:     s.wrong.Reference,
			Selected:      s.wrongPick,
		}
	}
	return snap
}

// Subscribe returns a channel of session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) broadcastLocked(typ domain.EventType, snap domain.Snapshot) {
	ev := domain.Event{Type: typ, Snapshot: snap}
	for ch := range e.subscribers {
		select {
		case ch <- ev:
		default:
			// slow reader: drop its oldest event
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
