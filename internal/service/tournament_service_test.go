package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-tournament/internal/pkg/errors"
	"github.com/yourusername/quiz-tournament/internal/service/tournament"
)

type staticQuestions []entity.Question

func (s staticQuestions) Snapshot() []entity.Question { return s }

type gaugeSpy struct {
	mu    sync.Mutex
	value int
}

func (g *gaugeSpy) SetActiveTournaments(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = n
}

func (g *gaugeSpy) get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

type ticketStub struct {
	err error
}

func (s ticketStub) Issue(id string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "ticket-" + id, nil
}

func easyBank() staticQuestions {
	questions := make(staticQuestions, 0, 30)
	for d := 1; d <= 3; d++ {
		for i := 0; i < 10; i++ {
			questions = append(questions, entity.Question{
				ID:         uint(d*100 + i),
				Difficulty: d,
				Question:   "Q",
				Choices:    entity.StringArray{"right", "wrong"},
				Answer:     0,
			})
		}
	}
	return questions
}

func newTestTournamentService(cfg TournamentServiceConfig, gauge ActiveGauge) *TournamentService {
	if cfg.Tournament == nil {
		cfg.Tournament = tournament.DefaultConfig()
		cfg.Tournament.CPUDelay = 0
	}
	return NewTournamentService(cfg, easyBank(), nil, nil, gauge, ticketStub{})
}

func TestTournamentService_CreateAndPlay(t *testing.T) {
	ctx := context.Background()
	gauge := &gaugeSpy{}
	svc := newTestTournamentService(TournamentServiceConfig{}, gauge)

	res, err := svc.Create(ctx, 4, 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.Session.Seed)
	assert.Equal(t, "ticket-"+res.Session.ID.String(), res.Ticket)
	require.NotNil(t, res.Outcome.Prompt, "первый матч всегда с человеком")
	assert.Equal(t, 1, svc.Count())
	assert.Equal(t, 1, gauge.get())

	id := res.Session.ID
	for i := 0; i < res.Outcome.Prompt.Total; i++ {
		_, err := svc.SubmitAnswer(ctx, id, 0)
		require.NoError(t, err)
	}

	snapshot, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, tournament.PhaseIdle, snapshot.Phase)
	assert.True(t, snapshot.LastResult.Winner.IsHuman())

	outcome, err := svc.RunNextMatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tournament.MatchKindCPU, outcome.Kind)

	history, err := svc.History(id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestTournamentService_SameSeedSameTournament(t *testing.T) {
	ctx := context.Background()
	svc := newTestTournamentService(TournamentServiceConfig{}, nil)

	first, err := svc.Create(ctx, 8, 7)
	require.NoError(t, err)
	second, err := svc.Create(ctx, 8, 7)
	require.NoError(t, err)

	a, err := svc.Snapshot(first.Session.ID)
	require.NoError(t, err)
	b, err := svc.Snapshot(second.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Players, b.Players)
	assert.Equal(t, first.Outcome.Prompt, second.Outcome.Prompt)
}

func TestTournamentService_ConfiguredSeed(t *testing.T) {
	svc := newTestTournamentService(TournamentServiceConfig{Seed: 99}, nil)
	res, err := svc.Create(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), res.Session.Seed)
}

func TestTournamentService_CreateErrors(t *testing.T) {
	ctx := context.Background()
	gauge := &gaugeSpy{}
	svc := newTestTournamentService(TournamentServiceConfig{}, gauge)

	_, err := svc.Create(ctx, 6, 1)
	assert.ErrorIs(t, err, tournament.ErrInvalidPlayerCount)
	assert.Equal(t, 0, svc.Count(), "турнир с ошибкой не сохраняется")
	assert.Equal(t, 0, gauge.get())

	failing := NewTournamentService(TournamentServiceConfig{}, easyBank(), nil, nil, nil, ticketStub{err: errors.New("no key")})
	_, err = failing.Create(ctx, 2, 1)
	assert.Error(t, err)
	assert.Equal(t, 0, failing.Count())
}

func TestTournamentService_MaxActive(t *testing.T) {
	ctx := context.Background()
	svc := newTestTournamentService(TournamentServiceConfig{MaxActive: 1}, nil)

	_, err := svc.Create(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrTooManyTournaments)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestTournamentService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestTournamentService(TournamentServiceConfig{}, nil)
	id := uuid.New()

	_, err := svc.Get(id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.RunNextMatch(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.SubmitAnswer(ctx, id, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(id), apperrors.ErrNotFound)
}

func TestTournamentService_Delete(t *testing.T) {
	gauge := &gaugeSpy{}
	svc := newTestTournamentService(TournamentServiceConfig{}, gauge)
	res, err := svc.Create(context.Background(), 2, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(res.Session.ID))
	assert.Equal(t, 0, svc.Count())
	assert.Equal(t, 0, gauge.get())
	_, err = svc.Get(res.Session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTournamentService_CleanupExpired(t *testing.T) {
	gauge := &gaugeSpy{}
	svc := newTestTournamentService(TournamentServiceConfig{SessionTTL: time.Hour}, gauge)

	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale, err := svc.Create(context.Background(), 2, 1)
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	fresh, err := svc.Create(context.Background(), 2, 2)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, svc.CleanupExpired())
	assert.Equal(t, 1, gauge.get())

	_, err = svc.Get(stale.Session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.Get(fresh.Session.ID)
	assert.NoError(t, err)
}

func TestTournamentService_GetTouchesSession(t *testing.T) {
	svc := newTestTournamentService(TournamentServiceConfig{SessionTTL: time.Hour}, nil)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.Create(context.Background(), 2, 1)
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	_, err = svc.Get(res.Session.ID)
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 0, svc.CleanupExpired(), "обращение продлевает жизнь турнира")
}

func TestTournamentService_RunCleanupStops(t *testing.T) {
	svc := newTestTournamentService(TournamentServiceConfig{SessionTTL: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.RunCleanup(ctx, 10*time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("очистка не остановилась после отмены контекста")
	}
}
