package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderation_messages_scanned_total",
		Help: "Number of group messages run through the lexicon",
	})
	lexiconMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderation_lexicon_matches_total",
		Help: "Number of messages that contained a forbidden term",
	})
	actionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_actions_total",
		Help: "Punishments decided, by action",
	}, []string{"action"})
	challengeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_challenges_total",
		Help: "Challenge lifecycle events, by outcome",
	}, []string{"outcome"})
	noticesRetracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderation_notices_retracted_total",
		Help: "Group notices retracted after their restriction expired",
	})
	pipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_errors_total",
		Help: "Failures while handling events, by kind",
	}, []string{"kind"})
	pendingTasks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "moderation_pending_tasks",
		Help: "Scheduled background tasks, by kind",
	}, []string{"kind"})
)

const (
	outcomeIssued   = "issued"
	outcomeVerified = "verified"
	outcomeExpired  = "expired"
	outcomeRejected = "rejected"
	outcomeCanceled = "canceled"

	errorStorage = "storage"
	errorGateway = "gateway"
)
