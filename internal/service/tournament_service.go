package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-tournament/internal/pkg/errors"
	"github.com/yourusername/quiz-tournament/internal/service/tournament"
)

// ErrTooManyTournaments возвращается, когда в памяти уже MaxActive турниров
var ErrTooManyTournaments = fmt.Errorf("%w: too many active tournaments", apperrors.ErrUnavailable)

// QuestionSource отдаёт снимок банка вопросов для нового турнира
type QuestionSource interface {
	Snapshot() []entity.Question
}

// PresenterFactory создает слой отображения для турнира
type PresenterFactory func(tournamentID uuid.UUID) tournament.Presenter

// ActiveGauge принимает количество турниров в памяти
type ActiveGauge interface {
	SetActiveTournaments(n int)
}

// TicketIssuer выдаёт тикеты доступа к турниру
type TicketIssuer interface {
	Issue(tournamentID string) (string, error)
}

// TournamentServiceConfig содержит настройки реестра турниров
type TournamentServiceConfig struct {
	Tournament *tournament.Config
	Seed       uint64 // 0 - случайный seed для каждого турнира
	SessionTTL time.Duration
	MaxActive  int
}

// Session - турнир в памяти сервиса
type Session struct {
	ID         uuid.UUID
	Seed       uint64
	CreatedAt  time.Time
	Controller *tournament.Controller

	mu         sync.Mutex
	lastActive time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// LastActive возвращает время последнего обращения к турниру
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// CreateResult - результат создания турнира
type CreateResult struct {
	Session *Session
	Ticket  string
	Outcome *tournament.MatchOutcome
}

// TournamentService хранит турниры в памяти и управляет их жизненным циклом
type TournamentService struct {
	config     TournamentServiceConfig
	questions  QuestionSource
	presenters PresenterFactory
	recorder   tournament.Recorder
	gauge      ActiveGauge
	tickets    TicketIssuer
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewTournamentService создает сервис турниров
func NewTournamentService(
	config TournamentServiceConfig,
	questions QuestionSource,
	presenters PresenterFactory,
	recorder tournament.Recorder,
	gauge ActiveGauge,
	tickets TicketIssuer,
) *TournamentService {
	if config.Tournament == nil {
		config.Tournament = tournament.DefaultConfig()
	}
	return &TournamentService{
		config:     config,
		questions:  questions,
		presenters: presenters,
		recorder:   recorder,
		gauge:      gauge,
		tickets:    tickets,
		now:        time.Now,
		sessions:   make(map[uuid.UUID]*Session),
	}
}

// Create создает турнир, выдаёт тикет и запускает первый матч.
// seed == 0 означает seed из конфигурации или случайный.
func (s *TournamentService) Create(ctx context.Context, playerCount int, seed uint64) (*CreateResult, error) {
	if s.config.MaxActive > 0 && s.Count() >= s.config.MaxActive {
		return nil, ErrTooManyTournaments
	}

	if seed == 0 {
		seed = s.config.Seed
	}
	seed = tournament.NewSeed(seed)

	id := uuid.New()
	var presenter tournament.Presenter
	if s.presenters != nil {
		presenter = s.presenters(id)
	}

	cfg := *s.config.Tournament
	controller := tournament.NewController(&cfg, tournament.Dependencies{
		Presenter: presenter,
		Recorder:  s.recorder,
	}, s.questions.Snapshot(), tournament.NewRand(seed))

	ticket := ""
	if s.tickets != nil {
		var err error
		if ticket, err = s.tickets.Issue(id.String()); err != nil {
			return nil, fmt.Errorf("failed to issue ticket: %w", err)
		}
	}

	now := s.now()
	session := &Session{
		ID:         id,
		Seed:       seed,
		CreatedAt:  now,
		Controller: controller,
		lastActive: now,
	}

	// Турнир регистрируется до первого матча, чтобы слой отображения мог подключиться
	s.mu.Lock()
	s.sessions[id] = session
	count := len(s.sessions)
	s.mu.Unlock()

	outcome, err := controller.Start(ctx, playerCount)
	if err != nil {
		s.remove(id)
		return nil, err
	}
	s.updateGauge(count)

	log.Printf("[TournamentService] Турнир %s создан (seed=%d)", id, seed)
	return &CreateResult{Session: session, Ticket: ticket, Outcome: outcome}, nil
}

// Get возвращает турнир по ID
func (s *TournamentService) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tournament %s", apperrors.ErrNotFound, id)
	}
	session.touch(s.now())
	return session, nil
}

// RunNextMatch запускает следующий матч турнира
func (s *TournamentService) RunNextMatch(ctx context.Context, id uuid.UUID) (*tournament.MatchOutcome, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	outcome, err := session.Controller.RunNextMatch(ctx)
	session.touch(s.now())
	return outcome, err
}

// SubmitAnswer передаёт ответ человека в текущий матч
func (s *TournamentService) SubmitAnswer(ctx context.Context, id uuid.UUID, choice int) (*tournament.AnswerOutcome, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return session.Controller.SubmitAnswer(ctx, choice)
}

// Snapshot возвращает состояние турнира
func (s *TournamentService) Snapshot(id uuid.UUID) (tournament.StateSnapshot, error) {
	session, err := s.Get(id)
	if err != nil {
		return tournament.StateSnapshot{}, err
	}
	return session.Controller.Snapshot(), nil
}

// History возвращает историю турнира
func (s *TournamentService) History(id uuid.UUID) ([]entity.HistoryEntry, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return session.Controller.History(), nil
}

// Delete удаляет турнир из памяти
func (s *TournamentService) Delete(id uuid.UUID) error {
	if !s.remove(id) {
		return fmt.Errorf("%w: tournament %s", apperrors.ErrNotFound, id)
	}
	log.Printf("[TournamentService] Турнир %s удалён", id)
	return nil
}

// Count возвращает количество турниров в памяти
func (s *TournamentService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupExpired удаляет турниры, к которым не обращались дольше SessionTTL
func (s *TournamentService) CleanupExpired() int {
	if s.config.SessionTTL <= 0 {
		return 0
	}
	deadline := s.now().Add(-s.config.SessionTTL)

	s.mu.Lock()
	removed := 0
	for id, session := range s.sessions {
		if session.LastActive().Before(deadline) {
			delete(s.sessions, id)
			removed++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		log.Printf("[TournamentService] Удалено %d неактивных турниров, осталось %d", removed, count)
	}
	s.updateGauge(count)
	return removed
}

// RunCleanup периодически удаляет неактивные турниры до отмены контекста
func (s *TournamentService) RunCleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[TournamentService] Очистка турниров остановлена")
			return nil
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}

func (s *TournamentService) remove(id uuid.UUID) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	if ok {
		s.updateGauge(count)
	}
	return ok
}

func (s *TournamentService) updateGauge(count int) {
	if s.gauge != nil {
		s.gauge.SetActiveTournaments(count)
	}
}
