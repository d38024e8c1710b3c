package service

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres repositories. A single
// mutex plays the role of the row locks the real queries take.
type memDB struct {
	mu sync.Mutex

	participants map[int]*model.Participant
	exams        map[int]*model.Exam
	codes        map[string]*model.AccessCode
	attempts     map[int]*model.Attempt
	locks        map[int]*model.SessionLock
	events       []model.SecurityEvent
	admins       map[int]*model.Admin

	nextID int
}

func newMemDB() *memDB {
	return &memDB{
		participants: map[int]*model.Participant{},
		exams:        map[int]*model.Exam{},
		codes:        map[string]*model.AccessCode{},
		attempts:     map[int]*model.Attempt{},
		locks:        map[int]*model.SessionLock{},
		admins:       map[int]*model.Admin{},
		nextID:       1000,
	}
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// ── seeding helpers ─────────────────────────────────────────────

func (db *memDB) addParticipant(id int, name string) *model.Participant {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := &model.Participant{ID: id, Name: name, CreatedAt: time.Now()}
	db.participants[id] = p
	return p
}

func (db *memDB) addExam(id int, pin string, active bool) *model.Exam {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := &model.Exam{ID: id, Name: "Ujian " + pin, PIN: pin, TargetURL: "https://forms.example/" + pin, StartsAt: time.Now(), DurationMinutes: 90, Active: active}
	db.exams[id] = e
	return e
}

func (db *memDB) addCode(code string, examID int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.codes[code] = &model.AccessCode{ID: db.id(), Code: code, ExamID: examID}
}

func (db *memDB) addAttempt(id, participantID, examID int, status model.AttemptStatus) *model.Attempt {
	db.mu.Lock()
	defer db.mu.Unlock()
	a := &model.Attempt{ID: id, ParticipantID: participantID, ExamID: examID, Status: status, Answers: json.RawMessage(`{}`), StartedAt: time.Now()}
	db.attempts[id] = a
	return a
}

func (db *memDB) addLock(id, attemptID int, token string) *model.SessionLock {
	db.mu.Lock()
	defer db.mu.Unlock()
	l := &model.SessionLock{ID: id, AttemptID: attemptID, SessionToken: token, UnlockToken: "unlock-" + token}
	db.locks[id] = l
	return l
}

func (db *memDB) code(code string) model.AccessCode {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.codes[code]
}

func (db *memDB) attempt(id int) model.Attempt {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.attempts[id]
}

func (db *memDB) attemptCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.attempts)
}

func (db *memDB) eventsOfType(t model.SecurityEventType) []model.SecurityEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.SecurityEvent
	for _, e := range db.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// ── participants ────────────────────────────────────────────────

type participantStore struct{ db *memDB }

func (s participantStore) GetByID(_ context.Context, id int) (*model.Participant, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.participants[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (s participantStore) GetByName(_ context.Context, name string) (*model.Participant, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if p := s.db.findByNameLocked(name); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (db *memDB) findByNameLocked(name string) *model.Participant {
	for _, p := range db.participants {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (s participantStore) Create(_ context.Context, p *model.Participant) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.findByNameLocked(p.Name) != nil {
		return repository.ErrDuplicateParticipant
	}
	p.ID = s.db.id()
	p.CreatedAt = time.Now()
	cp := *p
	s.db.participants[p.ID] = &cp
	return nil
}

func (s participantStore) GetOrCreate(_ context.Context, p *model.Participant) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if existing := s.db.findByNameLocked(p.Name); existing != nil {
		*p = *existing
		return false, nil
	}
	p.ID = s.db.id()
	p.CreatedAt = time.Now()
	cp := *p
	s.db.participants[p.ID] = &cp
	return true, nil
}

func (s participantStore) ListWithAttemptCounts(_ context.Context, search string, limit, offset int) ([]model.ParticipantSummary, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []model.ParticipantSummary
	for _, p := range s.db.participants {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		sum := model.ParticipantSummary{Participant: *p}
		for _, a := range s.db.attempts {
			if a.ParticipantID == p.ID {
				sum.AttemptCount++
			}
		}
		all = append(all, sum)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s participantStore) ListAll(_ context.Context) ([]model.Participant, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Participant
	for _, p := range s.db.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── exams ───────────────────────────────────────────────────────

type examStore struct {
	db      *memDB
	pinHits int
}

func (s *examStore) GetByID(_ context.Context, id int) (*model.Exam, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s *examStore) ListActiveByPIN(_ context.Context, pin string) ([]model.Exam, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.pinHits++
	var out []model.Exam
	for _, e := range s.db.exams {
		if e.PIN == pin && e.Active {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *examStore) List(_ context.Context) ([]model.Exam, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Exam
	for _, e := range s.db.exams {
		out = append(out, *e)
	}
	return out, nil
}

func (s *examStore) activePINTakenLocked(pin string, except int) bool {
	for _, e := range s.db.exams {
		if e.ID != except && e.Active && e.PIN == pin {
			return true
		}
	}
	return false
}

func (s *examStore) Create(_ context.Context, e *model.Exam) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if e.Active && s.activePINTakenLocked(e.PIN, 0) {
		return repository.ErrDuplicateActivePIN
	}
	e.ID = s.db.id()
	cp := *e
	s.db.exams[e.ID] = &cp
	return nil
}

func (s *examStore) SetActive(_ context.Context, id int, active bool) (*model.Exam, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if active && s.activePINTakenLocked(e.PIN, id) {
		return nil, repository.ErrDuplicateActivePIN
	}
	e.Active = active
	cp := *e
	return &cp, nil
}

// ── access codes ────────────────────────────────────────────────

type codeStore struct{ db *memDB }

// Redeem mirrors the repository transaction: every check and write happens
// under one lock, and nothing is written when a check fails.
func (s codeStore) Redeem(_ context.Context, p repository.RedeemParams) (*repository.RedeemOutcome, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.codes[p.Code]
	if !ok || (p.ExamID != 0 && c.ExamID != p.ExamID) {
		return nil, repository.ErrCodeNotFound
	}
	out := &repository.RedeemOutcome{}
	if c.Used {
		if c.RedeemedBy == nil || *c.RedeemedBy != p.ParticipantID {
			return nil, repository.ErrCodeUsed
		}
		out.Replayed = true
	}
	out.Exam = *db.exams[c.ExamID]

	var attempt *model.Attempt
	for _, a := range db.attempts {
		if a.ParticipantID == p.ParticipantID && a.ExamID == c.ExamID {
			attempt = a
		}
	}
	if attempt != nil && attempt.Status.Terminal() {
		return nil, repository.ErrAttemptClosed
	}
	if attempt == nil {
		attempt = &model.Attempt{ID: db.id(), ParticipantID: p.ParticipantID, ExamID: c.ExamID, Status: model.AttemptStarted, Answers: json.RawMessage(`{}`), StartedAt: time.Now()}
		db.attempts[attempt.ID] = attempt
		out.AttemptCreated = true
	}
	out.Attempt = *attempt

	if !out.Replayed {
		now := time.Now()
		pid := p.ParticipantID
		c.Used, c.RedeemedBy, c.RedeemedAt = true, &pid, &now
	}

	var lock *model.SessionLock
	for _, l := range db.locks {
		if l.AttemptID == attempt.ID {
			lock = l
		}
	}
	if lock == nil {
		lock = &model.SessionLock{ID: db.id(), AttemptID: attempt.ID, SessionToken: p.SessionToken, UnlockToken: p.UnlockToken, IPAddress: p.IPAddress, UserAgent: p.UserAgent}
		db.locks[lock.ID] = lock
		out.LockCreated = true
	}
	out.Lock = *lock
	return out, nil
}

func (s codeStore) InsertBatch(_ context.Context, examID int, codes []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range codes {
		if _, dup := s.db.codes[c]; dup {
			return repository.ErrDuplicateCode
		}
	}
	for _, c := range codes {
		s.db.codes[c] = &model.AccessCode{ID: s.db.id(), Code: c, ExamID: examID}
	}
	return nil
}

func (s codeStore) ListByExam(_ context.Context, examID int, used *bool) ([]model.AccessCode, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.AccessCode
	for _, c := range s.db.codes {
		if c.ExamID == examID && (used == nil || c.Used == *used) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// ── attempts ────────────────────────────────────────────────────

type attemptStore struct{ db *memDB }

func (s attemptStore) GetByID(_ context.Context, id int) (*model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s attemptStore) Finish(_ context.Context, id, participantID int, answers json.RawMessage) (*model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[id]
	if !ok || a.ParticipantID != participantID || a.Status != model.AttemptStarted {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	a.Answers, a.Status, a.FinishedAt = answers, model.AttemptFinished, &now
	cp := *a
	return &cp, nil
}

func (s attemptStore) RecordViolation(_ context.Context, id, participantID int, note string) (*model.Attempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[id]
	if !ok || a.ParticipantID != participantID || a.Status != model.AttemptStarted {
		return nil, pgx.ErrNoRows
	}
	a.ViolationNote = note
	a.ExitAttempts++
	cp := *a
	return &cp, nil
}

func (s attemptStore) Disqualify(_ context.Context, ids []int) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	now := time.Now()
	for _, id := range ids {
		if a, ok := s.db.attempts[id]; ok && a.Status == model.AttemptStarted {
			a.Status, a.FinishedAt = model.AttemptDisqualified, &now
			n++
		}
	}
	return n, nil
}

func (s attemptStore) Reset(_ context.Context, ids []int) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if a, ok := s.db.attempts[id]; ok {
			a.Status, a.Answers, a.ExitAttempts, a.ViolationNote, a.FinishedAt = model.AttemptStarted, json.RawMessage(`{}`), 0, "", nil
			n++
		}
	}
	return n, nil
}

func (s attemptStore) ListByExam(_ context.Context, examID int, status string, limit, offset int) ([]model.AttemptResult, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.AttemptResult
	for _, a := range s.db.attempts {
		if a.ExamID == examID && (status == "" || string(a.Status) == status) {
			out = append(out, model.AttemptResult{Attempt: *a})
		}
	}
	return out, len(out), nil
}

// ── session locks ───────────────────────────────────────────────

type lockStore struct{ db *memDB }

func (s lockStore) viewLocked(l *model.SessionLock) *repository.LockView {
	a := s.db.attempts[l.AttemptID]
	return &repository.LockView{Lock: *l, AttemptStatus: a.Status, ParticipantID: a.ParticipantID, ExamID: a.ExamID}
}

func (s lockStore) find(match func(*model.SessionLock) bool) (*repository.LockView, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, l := range s.db.locks {
		if match(l) {
			return s.viewLocked(l), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s lockStore) GetBySessionToken(_ context.Context, token string) (*repository.LockView, error) {
	return s.find(func(l *model.SessionLock) bool { return l.SessionToken == token })
}

func (s lockStore) GetByID(_ context.Context, id int) (*repository.LockView, error) {
	return s.find(func(l *model.SessionLock) bool { return l.ID == id })
}

func (s lockStore) GetByAttemptID(_ context.Context, attemptID int) (*repository.LockView, error) {
	return s.find(func(l *model.SessionLock) bool { return l.AttemptID == attemptID })
}

func (s lockStore) Consent(_ context.Context, id int, fingerprint, screen string) (*model.SessionLock, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.locks[id]
	if !ok || s.db.attempts[l.AttemptID].Status != model.AttemptStarted {
		return nil, pgx.ErrNoRows
	}
	if !l.Consented {
		now := time.Now()
		l.Consented, l.ConsentedAt = true, &now
	}
	if fingerprint != "" {
		l.BrowserFingerprint = fingerprint
	}
	if screen != "" {
		l.ScreenResolution = screen
	}
	cp := *l
	return &cp, nil
}

func (s lockStore) Engage(_ context.Context, id int) (*model.SessionLock, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.locks[id]
	if !ok || !l.Consented || s.db.attempts[l.AttemptID].Status != model.AttemptStarted {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	l.Locked, l.LockStartedAt, l.LockEndedAt = true, &now, nil
	cp := *l
	return &cp, nil
}

func (s lockStore) Unlock(_ context.Context, id int, matches func(string) bool) (*model.SessionLock, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.locks[id]
	if !ok {
		return nil, false, pgx.ErrNoRows
	}
	now := time.Now()
	l.UnlockAttempts++
	l.LastUnlockAttempt = &now
	if !matches(l.UnlockToken) {
		cp := *l
		return &cp, false, nil
	}
	l.Locked, l.LockEndedAt = false, &now
	cp := *l
	return &cp, true, nil
}

func (s lockStore) RotateTokens(_ context.Context, id int, sessionToken, unlockToken string) (*model.SessionLock, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.locks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	l.SessionToken, l.UnlockToken = sessionToken, unlockToken
	cp := *l
	return &cp, nil
}

func (s lockStore) ListActive(_ context.Context, examID *int) ([]model.ActiveLock, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.ActiveLock
	for _, l := range s.db.locks {
		a := s.db.attempts[l.AttemptID]
		if !l.ValidFor(a.Status) || (examID != nil && a.ExamID != *examID) {
			continue
		}
		out = append(out, model.ActiveLock{LockID: l.ID, AttemptID: a.ID, ExamID: a.ExamID})
	}
	return out, nil
}

// ── security events ─────────────────────────────────────────────

type eventStore struct{ db *memDB }

func (s eventStore) Append(_ context.Context, e *model.SecurityEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = int64(len(s.db.events) + 1)
	e.CreatedAt = time.Now()
	s.db.events = append(s.db.events, *e)
	return nil
}

func (s eventStore) ListRecent(_ context.Context, f model.SecurityEventFilter) ([]model.SecurityEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.SecurityEvent
	for i := len(s.db.events) - 1; i >= 0 && len(out) < f.Limit; i-- {
		e := s.db.events[i]
		if f.SessionLockID != nil && (e.SessionLockID == nil || *e.SessionLockID != *f.SessionLockID) {
			continue
		}
		if f.BeforeID != nil && e.ID >= *f.BeforeID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ── admins ──────────────────────────────────────────────────────

type adminStore struct{ db *memDB }

func (s adminStore) GetByID(_ context.Context, id int) (*model.Admin, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.admins[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s adminStore) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s adminStore) Create(_ context.Context, a *model.Admin) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a.ID = s.db.id()
	cp := *a
	s.db.admins[a.ID] = &cp
	return nil
}

func (s adminStore) CountByRole(_ context.Context, role model.Role) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for _, a := range s.db.admins {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

// ── sinks ───────────────────────────────────────────────────────

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) kinds() []model.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.NotificationKind, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Kind
	}
	return out
}

type memSessions struct {
	mu  sync.Mutex
	ids map[int]string
}

func newMemSessions() *memSessions { return &memSessions{ids: map[int]string{}} }

func (m *memSessions) Register(_ context.Context, participantID int, jti string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[participantID] = jti
	return nil
}

func (m *memSessions) Current(_ context.Context, participantID int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[participantID], nil
}

func (m *memSessions) Reset(_ context.Context, participantID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, participantID)
	return nil
}

type memExamCache struct {
	mu    sync.Mutex
	byPIN map[string]model.Exam
}

func newMemExamCache() *memExamCache { return &memExamCache{byPIN: map[string]model.Exam{}} }

func (c *memExamCache) Get(_ context.Context, pin string) (*model.Exam, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byPIN[pin]
	return &e, ok
}

func (c *memExamCache) Set(_ context.Context, pin string, e *model.Exam) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPIN[pin] = *e
}

func (c *memExamCache) Invalidate(_ context.Context, pin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byPIN, pin)
}

// ── fixture ─────────────────────────────────────────────────────

type fixture struct {
	db       *memDB
	exams    *examStore
	notifier *recordingNotifier

	events       *SecurityEventService
	participants *ParticipantService
	examSvc      *ExamService
	redemption   *RedemptionService
	attemptSvc   *AttemptService
	lockSvc      *SessionLockService
}

func newFixture() *fixture {
	db := newMemDB()
	log := testLogger()
	exams := &examStore{db: db}
	notifier := &recordingNotifier{}
	events := NewSecurityEventService(eventStore{db}, nil, log)

	return &fixture{
		db:           db,
		exams:        exams,
		notifier:     notifier,
		events:       events,
		participants: NewParticipantService(participantStore{db}, nil, log),
		examSvc:      NewExamService(exams, codeStore{db}, nil, log),
		redemption:   NewRedemptionService(codeStore{db}, nil, log),
		attemptSvc:   NewAttemptService(attemptStore{db}, lockStore{db}, participantStore{db}, exams, events, notifier, log),
		lockSvc:      NewSessionLockService(lockStore{db}, events, log),
	}
}
