package model

import "time"

// SystemStats はシステム統計タブの集計値。
type SystemStats struct {
	TotalNews        int
	TodayNews        int
	RefinitivNews    int
	ManualNews       int
	LastUpdate       time.Time
	CollectionRuns   int
	AvgExecutionTime float64 // 秒
}

// AnalysisStats はAI分析の統計値。
type AnalysisStats struct {
	TotalAnalyzed        int
	SuccessfulAnalyses   int
	FailedAnalyses       int
	CacheHits            int
	APICallsMade         int
	TotalCost            float64
	DailyCost            float64
	RemainingDailyBudget float64
	CacheSize            int
	RequestsThisMinute   int
	RequestsToday        int
	CanMakeRequest       bool
}

// CollectResult は手動収集の結果。
type CollectResult struct {
	CollectedCount int
	Status         map[string]any
}

// AppStatus はバックエンドの稼働状態。
type AppStatus struct {
	DatabaseConnected bool
	PollingActive     bool
	LastUpdate        time.Time
}
