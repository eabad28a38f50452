package service

import (
	"math"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// StatsAggregator maintains AggregateStats from registry transitions.
type StatsAggregator struct {
	stats model.AggregateStats

	// Running average accumulators for phone call duration.
	callSeconds int64
	callCount   int64
}

// NewStatsAggregator returns an aggregator with zeroed stats.
func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{}
}

// OnTransition folds one transition into the stats and returns the new
// value. activeCount is the registry size after the mutation.
func (a *StatsAggregator) OnTransition(kind Transition, rec model.ConversationRecord, activeCount int) model.AggregateStats {
	a.stats.ActiveConversationCount = activeCount

	if kind != TransitionEnded {
		return a.stats
	}

	switch rec.Channel {
	case model.ChannelPhone:
		a.stats.TotalCallsToday++
		if rec.DurationSeconds != nil {
			a.callSeconds += int64(*rec.DurationSeconds)
			a.callCount++
			a.stats.AvgCallDurationSeconds = a.average()
		}
		if rec.Status.IsMissed() {
			a.stats.MissedCallCount++
		}
	case model.ChannelSMS:
		a.stats.TotalSMSToday++
	case model.ChannelChat:
		a.stats.TotalChatsToday++
	}

	switch rec.Sentiment {
	case model.SentimentPositive:
		a.stats.SentimentBreakdown.Positive++
	case model.SentimentNeutral:
		a.stats.SentimentBreakdown.Neutral++
	case model.SentimentNegative:
		a.stats.SentimentBreakdown.Negative++
	}

	return a.stats
}

// ResetDaily zeroes the daily counters and keeps the active count.
func (a *StatsAggregator) ResetDaily(activeCount int) model.AggregateStats {
	a.stats = model.AggregateStats{ActiveConversationCount: activeCount}
	a.callSeconds = 0
	a.callCount = 0
	return a.stats
}

// Current returns the current stats.
func (a *StatsAggregator) Current() model.AggregateStats {
	return a.stats
}

func (a *StatsAggregator) average() int {
	if a.callCount == 0 {
		return 0
	}
	return int(math.Round(float64(a.callSeconds) / float64(a.callCount)))
}
