package tournament

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// Controller управляет одним турниром: по одному матчу за раз,
// по одному вопросу за раз. Вызовы из разных горутин сериализуются мьютексом,
// пересекающиеся вызовы отклоняются, а не ставятся в очередь.
type Controller struct {
	mu sync.Mutex

	// Настройки
	config *Config

	// Зависимости
	deps Dependencies

	// Источник случайности и выборка вопросов
	rng     Rand
	sampler *QuestionSampler

	// Состояние турнира
	state state
}

// state - явное состояние турнира, принадлежащее контроллеру
type state struct {
	phase          Phase
	players        []*entity.Player
	bracket        *Bracket
	history        []entity.HistoryEntry
	human          *humanMatch
	simulating     *MatchRef
	lastResult     *MatchResult
	champion       *entity.Player
	championLogged bool
}

// cpuSimulation - уже разыгранный матч CPU против CPU, ожидающий завершения паузы
type cpuSimulation struct {
	ref        MatchRef
	difficulty int
	count      int
	winner     *entity.Player
	scores     []Score
	summary    string
}

// NewController создает контроллер поверх снимка банка вопросов
func NewController(config *Config, deps Dependencies, pool []entity.Question, rng Rand) *Controller {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Difficulty == nil {
		config.Difficulty = DefaultDifficultyConfig()
	}
	return &Controller{
		config:  config,
		deps:    deps.withDefaults(),
		rng:     rng,
		sampler: NewQuestionSampler(pool, rng),
		state:   state{phase: PhaseNew},
	}
}

// Start создает игроков и сетку, очищает историю, отрисовывает сетку
// и сразу запускает первый матч.
func (c *Controller) Start(ctx context.Context, playerCount int) (*MatchOutcome, error) {
	c.mu.Lock()
	if err := c.setupLocked(ctx, playerCount); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	outcome, sim, err := c.nextLocked(ctx)
	c.mu.Unlock()

	if err != nil || sim == nil {
		return outcome, err
	}
	return c.completeSimulation(ctx, sim)
}

// RunNextMatch запускает следующий несыгранный матч. Если матчей не осталось,
// турнир завершается и возвращается чемпион.
func (c *Controller) RunNextMatch(ctx context.Context) (*MatchOutcome, error) {
	c.mu.Lock()
	outcome, sim, err := c.nextLocked(ctx)
	c.mu.Unlock()

	if err != nil || sim == nil {
		return outcome, err
	}
	return c.completeSimulation(ctx, sim)
}

// SubmitAnswer принимает выбор человека для текущего вопроса
func (c *Controller) SubmitAnswer(ctx context.Context, choice int) (*AnswerOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.phase {
	case PhaseNew:
		return nil, ErrNotStarted
	case PhaseAwaitingAnswer:
	default:
		return nil, ErrNoActiveQuestion
	}

	hm := c.state.human
	correct, err := hm.answer(choice)
	if err != nil {
		return nil, err
	}

	outcome := &AnswerOutcome{Correct: correct, Progress: hm.progress()}
	if !hm.done() {
		prompt := hm.prompt()
		outcome.Next = prompt
		c.notify("ShowQuestion", c.deps.Presenter.ShowQuestion(ctx, *prompt))
		c.notify("UpdateProgress", c.deps.Presenter.UpdateProgress(ctx, outcome.Progress))
		return outcome, nil
	}

	c.notify("UpdateProgress", c.deps.Presenter.UpdateProgress(ctx, outcome.Progress))
	result, err := c.resolveHumanLocked(ctx, hm)
	if err != nil {
		return nil, err
	}
	outcome.Result = result
	return outcome, nil
}

func (c *Controller) setupLocked(ctx context.Context, playerCount int) error {
	if c.state.phase != PhaseNew {
		return ErrAlreadyStarted
	}
	if playerCount <= 0 {
		playerCount = c.config.DefaultPlayerCount
	}
	if c.config.MaxPlayerCount > 0 && playerCount > c.config.MaxPlayerCount {
		return fmt.Errorf("%w: %d > %d", ErrTooManyPlayers, playerCount, c.config.MaxPlayerCount)
	}

	players := GeneratePlayers(c.rng, playerCount)
	bracket, err := BuildBracket(players)
	if err != nil {
		return err
	}

	c.state = state{
		phase:   PhaseIdle,
		players: players,
		bracket: bracket,
		history: make([]entity.HistoryEntry, 0, playerCount),
	}
	log.Printf("[Controller] Турнир создан: %d игроков, %d раундов", playerCount, len(bracket.Rounds))

	c.deps.Recorder.TournamentStarted(playerCount)
	c.notify("RenderBracket", c.deps.Presenter.RenderBracket(ctx, bracket.Snapshot()))
	return nil
}

// nextLocked выбирает следующий матч. Для матча CPU против CPU результат
// разыгрывается сразу, а завершение откладывается до окончания паузы.
func (c *Controller) nextLocked(ctx context.Context) (*MatchOutcome, *cpuSimulation, error) {
	switch c.state.phase {
	case PhaseNew:
		return nil, nil, ErrNotStarted
	case PhaseAwaitingAnswer, PhaseSimulating:
		return nil, nil, ErrMatchInProgress
	case PhaseFinished:
		return &MatchOutcome{Finished: true, Champion: c.state.champion}, nil, nil
	}

	ref, found := c.state.bracket.FindNextMatch()
	if !found {
		return c.finalizeLocked(ctx), nil, nil
	}

	difficulty := c.config.Difficulty.DifficultyForRound(ref.RoundIndex)
	count := c.config.Difficulty.QuestionCountForRound(ref.RoundIndex)
	questions := c.sampler.Sample(difficulty, count)
	if len(questions) < count {
		c.deps.Recorder.QuestionShortfall(difficulty, count, len(questions))
	}

	if ref.Match.HasHuman() {
		outcome, err := c.startHumanLocked(ctx, ref, difficulty, questions)
		return outcome, nil, err
	}

	sim, err := c.simulateLocked(ref, difficulty, count)
	if err != nil {
		return nil, nil, err
	}
	c.state.phase = PhaseSimulating
	c.state.simulating = &ref
	c.notify("ShowPending", c.deps.Presenter.ShowPending(ctx, newMatchView(ref.RoundIndex, ref.MatchIndex, ref.Match)))
	return nil, sim, nil
}

func (c *Controller) startHumanLocked(ctx context.Context, ref MatchRef, difficulty int, questions []entity.Question) (*MatchOutcome, error) {
	hm, err := newHumanMatch(ref, questions)
	if err != nil {
		return nil, err
	}

	outcome := &MatchOutcome{
		Kind:          MatchKindHuman,
		RoundIndex:    ref.RoundIndex,
		MatchIndex:    ref.MatchIndex,
		Difficulty:    difficulty,
		QuestionCount: hm.total(),
	}

	// Без вопросов матч сразу завершается с результатом 0%
	if hm.done() {
		log.Printf("[Controller] WARNING: нет вопросов для матча R%d M%d, человек выбывает",
			ref.RoundIndex+1, ref.MatchIndex+1)
		result, err := c.resolveHumanLocked(ctx, hm)
		if err != nil {
			return nil, err
		}
		outcome.Result = result
		return outcome, nil
	}

	c.state.human = hm
	c.state.phase = PhaseAwaitingAnswer

	prompt := hm.prompt()
	progress := hm.progress()
	outcome.Prompt = prompt
	outcome.Progress = &progress

	c.notify("ShowQuestion", c.deps.Presenter.ShowQuestion(ctx, *prompt))
	c.notify("UpdateProgress", c.deps.Presenter.UpdateProgress(ctx, progress))
	return outcome, nil
}

func (c *Controller) resolveHumanLocked(ctx context.Context, hm *humanMatch) (*MatchResult, error) {
	winner, score, summary := hm.outcome()
	result, err := c.finishMatchLocked(ctx, hm.ref, MatchKindHuman, winner, []Score{score}, summary)
	if err != nil {
		return nil, err
	}
	c.state.human = nil
	return result, nil
}

// simulateLocked разыгрывает матч CPU против CPU. Вопросы выбираются, но не
// используются при подсчёте: результат зависит только от навыка и сложности.
func (c *Controller) simulateLocked(ref MatchRef, difficulty, count int) (*cpuSimulation, error) {
	a, b, err := ref.Match.Players()
	if err != nil {
		return nil, err
	}

	correctA := SimulateCorrect(c.rng, count, c.config.Difficulty.EffectiveChance(a.Skill, difficulty))
	correctB := SimulateCorrect(c.rng, count, c.config.Difficulty.EffectiveChance(b.Skill, difficulty))
	pctA, pctB := Fraction(correctA, count), Fraction(correctB, count)

	winner := a
	if ResolveCPUMatch(pctA, pctB) == SideB {
		winner = b
	}

	return &cpuSimulation{
		ref:        ref,
		difficulty: difficulty,
		count:      count,
		winner:     winner,
		scores: []Score{
			{PlayerID: a.ID, Correct: correctA, Total: count, Pct: pctA},
			{PlayerID: b.ID, Correct: correctB, Total: count, Pct: pctB},
		},
		summary: fmt.Sprintf("%s %d%% (%d/%d) vs %s %d%% (%d/%d) -> Winner: %s",
			a.Name, percent(pctA), correctA, count,
			b.Name, percent(pctB), correctB, count,
			winner.Name),
	}, nil
}

// completeSimulation выдерживает паузу без блокировки и завершает матч CPU.
// Пауза не отменяется контекстом.
func (c *Controller) completeSimulation(ctx context.Context, sim *cpuSimulation) (*MatchOutcome, error) {
	c.deps.Pause(c.config.CPUDelay)

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.finishMatchLocked(ctx, sim.ref, MatchKindCPU, sim.winner, sim.scores, sim.summary)
	c.state.simulating = nil
	if err != nil {
		c.state.phase = PhaseIdle
		return nil, err
	}

	return &MatchOutcome{
		Kind:          MatchKindCPU,
		RoundIndex:    sim.ref.RoundIndex,
		MatchIndex:    sim.ref.MatchIndex,
		Difficulty:    sim.difficulty,
		QuestionCount: sim.count,
		Result:        result,
	}, nil
}

// finishMatchLocked фиксирует победителя в сетке, пишет строку истории,
// показывает итог и перерисовывает сетку.
func (c *Controller) finishMatchLocked(ctx context.Context, ref MatchRef, kind MatchKind, winner *entity.Player, scores []Score, summary string) (*MatchResult, error) {
	a, b, err := ref.Match.Players()
	if err != nil {
		return nil, err
	}
	if err := c.state.bracket.RecordWinner(ref.RoundIndex, ref.MatchIndex, winner); err != nil {
		return nil, fmt.Errorf("failed to record winner: %w", err)
	}

	result := &MatchResult{
		Kind:       kind,
		RoundIndex: ref.RoundIndex,
		MatchIndex: ref.MatchIndex,
		A:          a,
		B:          b,
		Winner:     winner,
		Scores:     scores,
		Summary:    summary,
	}
	c.state.lastResult = result
	c.state.phase = PhaseIdle

	entry := c.appendHistoryLocked(ref.RoundIndex,
		fmt.Sprintf("Round %d - %s vs %s -> %s (%s)", ref.RoundIndex+1, a.Name, b.Name, winner.Name, summary))

	c.deps.Recorder.MatchResolved(kind, kind == MatchKindHuman && winner.IsHuman())

	c.notify("ShowMatchResult", c.deps.Presenter.ShowMatchResult(ctx, *result))
	c.notify("AppendHistory", c.deps.Presenter.AppendHistory(ctx, entry))
	c.notify("RenderBracket", c.deps.Presenter.RenderBracket(ctx, c.state.bracket.Snapshot()))
	return result, nil
}

// finalizeLocked определяет чемпиона. Строка истории пишется один раз.
func (c *Controller) finalizeLocked(ctx context.Context) *MatchOutcome {
	champion := c.state.bracket.Champion()
	c.state.champion = champion
	c.state.phase = PhaseFinished

	if !c.state.championLogged {
		c.state.championLogged = true
		name := "-"
		if champion != nil {
			name = champion.Name
		}
		entry := c.appendHistoryLocked(-1, "Champion: "+name)
		log.Printf("[Controller] Турнир завершён, чемпион: %s", name)

		c.deps.Recorder.TournamentFinished(champion.IsHuman())
		c.notify("AppendHistory", c.deps.Presenter.AppendHistory(ctx, entry))
		c.notify("AnnounceChampion", c.deps.Presenter.AnnounceChampion(ctx, champion))
	}

	return &MatchOutcome{Finished: true, Champion: champion}
}

func (c *Controller) appendHistoryLocked(roundIndex int, text string) entity.HistoryEntry {
	entry := entity.HistoryEntry{
		Timestamp:  c.deps.Now(),
		RoundIndex: roundIndex,
		Text:       text,
	}
	c.state.history = append(c.state.history, entry)
	return entry
}

// notify логирует ошибку доставки в слой отображения
func (c *Controller) notify(method string, err error) {
	if err != nil {
		log.Printf("[Controller] Ошибка отображения (%s): %v", method, err)
	}
}

// Phase возвращает текущую фазу турнира
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.phase
}

// Champion возвращает чемпиона завершённого турнира
func (c *Controller) Champion() *entity.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.champion
}

// History возвращает копию истории
func (c *Controller) History() []entity.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]entity.HistoryEntry, len(c.state.history))
	copy(history, c.state.history)
	return history
}

// Snapshot возвращает копию состояния для чтения
func (c *Controller) Snapshot() StateSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := StateSnapshot{
		Phase:      c.state.phase,
		Players:    make([]entity.Player, len(c.state.players)),
		LastResult: c.state.lastResult,
		Champion:   c.state.champion,
	}
	for i, p := range c.state.players {
		snapshot.Players[i] = *p
	}
	if c.state.bracket != nil {
		snapshot.Bracket = c.state.bracket.Snapshot()
	}

	switch {
	case c.state.human != nil:
		hm := c.state.human
		progress := hm.progress()
		snapshot.Current = &CurrentMatch{
			Kind:       MatchKindHuman,
			RoundIndex: hm.ref.RoundIndex,
			MatchIndex: hm.ref.MatchIndex,
			Prompt:     hm.prompt(),
			Progress:   &progress,
			Correct:    hm.correct,
		}
	case c.state.simulating != nil:
		snapshot.Current = &CurrentMatch{
			Kind:       MatchKindCPU,
			RoundIndex: c.state.simulating.RoundIndex,
			MatchIndex: c.state.simulating.MatchIndex,
		}
	}
	return snapshot
}
