package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/quiz-tournament/internal/service/tournament"
)

// Metrics содержит все метрики сервиса на отдельном реестре
type Metrics struct {
	registry *prometheus.Registry

	tournamentsStarted  prometheus.Counter
	tournamentsFinished *prometheus.CounterVec
	tournamentsActive   prometheus.Gauge
	matchesResolved     *prometheus.CounterVec
	questionShortfall   *prometheus.CounterVec
	questionBankSize    *prometheus.GaugeVec

	wsConnections      prometheus.Gauge
	wsConnectionsTotal prometheus.Counter
	wsMessagesSent     *prometheus.CounterVec
	wsMessagesReceived *prometheus.CounterVec
	wsSendFailures     prometheus.Counter
}

// New создает и регистрирует метрики
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		tournamentsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tournament_started_total",
			Help: "Number of tournaments started",
		}),
		tournamentsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_finished_total",
			Help: "Number of tournaments finished, by champion kind",
		}, []string{"champion"}),
		tournamentsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tournament_active",
			Help: "Number of tournaments currently held in memory",
		}),
		matchesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_matches_resolved_total",
			Help: "Number of resolved matches, by kind and human outcome",
		}, []string{"kind", "human_won"}),
		questionShortfall: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_question_shortfall_total",
			Help: "Number of matches that received fewer questions than requested",
		}, []string{"difficulty"}),
		questionBankSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "question_bank_size",
			Help: "Number of questions in the loaded bank, by difficulty",
		}, []string{"difficulty"}),

		wsConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Current number of active WebSocket connections",
		}),
		wsConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of WebSocket connections since start",
		}),
		wsMessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Number of WebSocket messages sent, by event type",
		}, []string{"type"}),
		wsMessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Number of WebSocket messages received, by event type",
		}, []string{"type"}),
		wsSendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "websocket_send_failures_total",
			Help: "Number of messages dropped because a client buffer was full",
		}),
	}
}

// Handler возвращает HTTP-обработчик для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// --- tournament.Recorder ---

func (m *Metrics) TournamentStarted(int) {
	m.tournamentsStarted.Inc()
}

func (m *Metrics) MatchResolved(kind tournament.MatchKind, humanWon bool) {
	m.matchesResolved.WithLabelValues(string(kind), strconv.FormatBool(humanWon)).Inc()
}

func (m *Metrics) TournamentFinished(humanChampion bool) {
	champion := "cpu"
	if humanChampion {
		champion = "human"
	}
	m.tournamentsFinished.WithLabelValues(champion).Inc()
}

func (m *Metrics) QuestionShortfall(difficulty, _, _ int) {
	m.questionShortfall.WithLabelValues(strconv.Itoa(difficulty)).Inc()
}

// SetActiveTournaments обновляет количество турниров в памяти
func (m *Metrics) SetActiveTournaments(n int) {
	m.tournamentsActive.Set(float64(n))
}

// SetQuestionBankSize обновляет размер банка по уровням сложности
func (m *Metrics) SetQuestionBankSize(counts map[int]int) {
	m.questionBankSize.Reset()
	for difficulty, n := range counts {
		m.questionBankSize.WithLabelValues(strconv.Itoa(difficulty)).Set(float64(n))
	}
}

// --- WebSocket ---

func (m *Metrics) ClientConnected() {
	m.wsConnectionsTotal.Inc()
	m.wsConnections.Inc()
}

func (m *Metrics) ClientDisconnected() {
	m.wsConnections.Dec()
}

func (m *Metrics) MessageSent(eventType string) {
	m.wsMessagesSent.WithLabelValues(eventType).Inc()
}

func (m *Metrics) MessageReceived(eventType string) {
	m.wsMessagesReceived.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SendFailed() {
	m.wsSendFailures.Inc()
}

var _ tournament.Recorder = (*Metrics)(nil)
