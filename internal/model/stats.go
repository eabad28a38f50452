package model

// SentimentBreakdown counts finished conversations per sentiment.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// AggregateStats is derived from registry transitions and never authored
// directly.
type AggregateStats struct {
	TotalCallsToday         int                `json:"totalCallsToday"`
	TotalSMSToday           int                `json:"totalSmsToday"`
	TotalChatsToday         int                `json:"totalChatsToday"`
	ActiveConversationCount int                `json:"activeConversations"`
	AvgCallDurationSeconds  int                `json:"avgCallDuration"`
	MissedCallCount         int                `json:"missedCalls"`
	SentimentBreakdown      SentimentBreakdown `json:"sentimentBreakdown"`
}
