package gateway

import (
	"context"

	"github.com/hitoshi/newswatcher/internal/model"
)

// FetchSourcesList はソースの一覧を取得する。
func (c *Client) FetchSourcesList(ctx context.Context) ([]string, error) {
	var sources []string
	if err := c.call(ctx, "get_sources_list", "", nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// FetchMetalsList は関連金属の一覧を取得する。
func (c *Client) FetchMetalsList(ctx context.Context) ([]string, error) {
	var metals []string
	if err := c.call(ctx, "get_metals_list", "", nil, &metals); err != nil {
		return nil, err
	}
	return metals, nil
}

// systemStatsResponse は get_system_stats の応答。
type systemStatsResponse struct {
	TotalNews        int     `json:"total_news"`
	TodayNews        int     `json:"today_news"`
	RefinitivNews    int     `json:"refinitiv_news"`
	ManualNews       int     `json:"manual_news"`
	LastUpdate       string  `json:"last_update"`
	CollectionRuns   int     `json:"collection_runs"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
}

// FetchSystemStats はシステム統計を取得する。
func (c *Client) FetchSystemStats(ctx context.Context) (model.SystemStats, error) {
	var resp systemStatsResponse
	if err := c.call(ctx, "get_system_stats", "", nil, &resp); err != nil {
		return model.SystemStats{}, err
	}
	return model.SystemStats{
		TotalNews:        resp.TotalNews,
		TodayNews:        resp.TodayNews,
		RefinitivNews:    resp.RefinitivNews,
		ManualNews:       resp.ManualNews,
		LastUpdate:       parseTime(resp.LastUpdate),
		CollectionRuns:   resp.CollectionRuns,
		AvgExecutionTime: resp.AvgExecutionTime,
	}, nil
}

// analysisStatsResponse は get_analysis_stats の応答。
type analysisStatsResponse struct {
	TotalAnalyzed        int     `json:"total_analyzed"`
	SuccessfulAnalyses   int     `json:"successful_analyses"`
	FailedAnalyses       int     `json:"failed_analyses"`
	CacheHits            int     `json:"cache_hits"`
	APICallsMade         int     `json:"api_calls_made"`
	TotalCost            float64 `json:"total_cost"`
	DailyCost            float64 `json:"daily_cost"`
	RemainingDailyBudget float64 `json:"remaining_daily_budget"`
	CacheSize            int     `json:"cache_size"`
	RateLimitStatus      struct {
		RequestsThisMinute int  `json:"requests_this_minute"`
		RequestsToday      int  `json:"requests_today"`
		CanMakeRequest     bool `json:"can_make_request"`
	} `json:"rate_limit_status"`
}

// FetchAnalysisStats はAI分析の統計を取得する。
func (c *Client) FetchAnalysisStats(ctx context.Context) (model.AnalysisStats, error) {
	var resp analysisStatsResponse
	if err := c.call(ctx, "get_analysis_stats", "", nil, &resp); err != nil {
		return model.AnalysisStats{}, err
	}
	return model.AnalysisStats{
		TotalAnalyzed:        resp.TotalAnalyzed,
		SuccessfulAnalyses:   resp.SuccessfulAnalyses,
		FailedAnalyses:       resp.FailedAnalyses,
		CacheHits:            resp.CacheHits,
		APICallsMade:         resp.APICallsMade,
		TotalCost:            resp.TotalCost,
		DailyCost:            resp.DailyCost,
		RemainingDailyBudget: resp.RemainingDailyBudget,
		CacheSize:            resp.CacheSize,
		RequestsThisMinute:   resp.RateLimitStatus.RequestsThisMinute,
		RequestsToday:        resp.RateLimitStatus.RequestsToday,
		CanMakeRequest:       resp.RateLimitStatus.CanMakeRequest,
	}, nil
}

// collectResponse は manual_collect_news の応答。
type collectResponse struct {
	CollectedCount int            `json:"collected_count"`
	Status         map[string]any `json:"status"`
}

// CollectNow はバックエンドにニュース収集を即時実行させる。
func (c *Client) CollectNow(ctx context.Context) (model.CollectResult, error) {
	var resp collectResponse
	if err := c.call(ctx, "manual_collect_news", "", nil, &resp); err != nil {
		return model.CollectResult{}, err
	}
	return model.CollectResult{
		CollectedCount: resp.CollectedCount,
		Status:         resp.Status,
	}, nil
}

// appStatusResponse は get_app_status の応答。
type appStatusResponse struct {
	DatabaseConnected bool   `json:"database_connected"`
	PollingActive     bool   `json:"polling_active"`
	LastUpdate        string `json:"last_update"`
	Error             string `json:"error"`
}

// FetchAppStatus はバックエンドの稼働状態を取得する。
func (c *Client) FetchAppStatus(ctx context.Context) (model.AppStatus, error) {
	var resp appStatusResponse
	if err := c.call(ctx, "get_app_status", "", nil, &resp); err != nil {
		return model.AppStatus{}, err
	}
	return model.AppStatus{
		DatabaseConnected: resp.DatabaseConnected,
		PollingActive:     resp.PollingActive,
		LastUpdate:        parseTime(resp.LastUpdate),
	}, nil
}
