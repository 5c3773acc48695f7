// Package apihttp exposes the trade journal over JSON/HTTP with gin.
package apihttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"tradejournal/internal/dashboard"
	"tradejournal/internal/market"
	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/review"
	"tradejournal/internal/settings"
	"tradejournal/internal/store/cmdlog"

	"github.com/gin-gonic/gin"
)

const (
	defaultCommandLimit = 100
	maxCommandLimit     = 500
)

// PlanService 交易计划的命令与查询，由 trader.Service 实现。
type PlanService interface {
	CreatePlan(ctx context.Context, in plan.CreateInput) (*plan.Plan, error)
	ExecutePlan(ctx context.Context, id int64, fill plan.Fill) (*plan.Plan, error)
	AddPosition(ctx context.Context, id int64, fill plan.Fill) (*plan.Plan, error)
	TrimPosition(ctx context.Context, id int64, in plan.TrimInput) (*plan.Plan, error)
	ClosePlan(ctx context.Context, id int64, in plan.CloseInput) (*plan.Execution, error)
	CancelPlan(ctx context.Context, id int64) error
	DeletePlan(ctx context.Context, id int64) error
	DeletePlansBySymbol(ctx context.Context, symbol string) (int, error)
	GetPlan(ctx context.Context, id int64) (*plan.Plan, error)
	ListByStatus(ctx context.Context, status plan.Status) ([]plan.Plan, error)
	ListTransactions(ctx context.Context, id int64) ([]plan.Transaction, error)
	RequestReview(ctx context.Context, executionID int64) error
	CommandLog(ctx context.Context, planID int64, limit int) ([]cmdlog.Record, error)
}

type DashboardService interface {
	Project(ctx context.Context) (dashboard.Dashboard, error)
	History(ctx context.Context) ([]dashboard.HistoryEntry, error)
}

type SettingsService interface {
	Get(ctx context.Context) (settings.View, error)
	Update(ctx context.Context, budget trading.RiskBudget) (settings.View, error)
}

type QuoteService interface {
	StockInfo(ctx context.Context, code string) (market.Quote, error)
	Search(ctx context.Context, keyword string) ([]market.SearchResult, error)
}

type ChallengeService interface {
	Challenge(ctx context.Context, req review.ChallengeRequest) review.ChallengeResult
}

// Router 挂载 /api 下的全部路由。
type Router struct {
	plans      PlanService
	dashboard  DashboardService
	settings   SettingsService
	quotes     QuoteService
	challenger ChallengeService
}

func NewRouter(cfg ServerConfig) *Router {
	return &Router{
		plans:      cfg.Plans,
		dashboard:  cfg.Dashboard,
		settings:   cfg.Settings,
		quotes:     cfg.Quotes,
		challenger: cfg.Challenger,
	}
}

// Register 未配置的可选依赖对应的路由不会注册。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	plans := group.Group("/plans")
	plans.POST("", r.handleCreatePlan)
	plans.GET("", r.handleListPlans)
	plans.GET("/:id", r.handleGetPlan)
	plans.DELETE("/:id", r.handleDeletePlan)
	plans.DELETE("/symbol/:symbol", r.handleDeleteBySymbol)
	plans.POST("/:id/execute", r.handleExecute)
	plans.POST("/:id/add", r.handleAdd)
	plans.POST("/:id/trim", r.handleTrim)
	plans.POST("/:id/close", r.handleClose)
	plans.POST("/:id/cancel", r.handleCancel)
	plans.GET("/:id/transactions", r.handleTransactions)
	plans.GET("/:id/commands", r.handleCommands)

	group.POST("/executions/:id/review", r.handleRequestReview)

	if r.dashboard != nil {
		group.GET("/dashboard", r.handleDashboard)
		group.GET("/history", r.handleHistory)
	}
	if r.settings != nil {
		group.GET("/settings", r.handleGetSettings)
		group.PUT("/settings", r.handleUpdateSettings)
	}
	if r.quotes != nil {
		group.GET("/quotes/:symbol", r.handleQuote)
		group.GET("/stocks/search", r.handleSearch)
	}
	if r.challenger != nil {
		group.POST("/ai/challenge", r.handleChallenge)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(c, badRequest("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, badRequest("invalid body: %v", err))
		return false
	}
	return true
}

func (r *Router) handleCreatePlan(c *gin.Context) {
	var in plan.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := r.plans.CreatePlan(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (r *Router) handleListPlans(c *gin.Context) {
	var status plan.Status
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := plan.ParseStatus(raw)
		if err != nil {
			writeError(c, badRequest("%v", err))
			return
		}
		status = parsed
	}
	plans, err := r.plans.ListByStatus(c.Request.Context(), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (r *Router) handleGetPlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := r.plans.GetPlan(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) handleDeletePlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.plans.DeletePlan(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) handleDeleteBySymbol(c *gin.Context) {
	sym := strings.TrimSpace(c.Param("symbol"))
	if sym == "" {
		writeError(c, badRequest("symbol is required"))
		return
	}
	n, err := r.plans.DeletePlansBySymbol(c.Request.Context(), sym)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (r *Router) handleExecute(c *gin.Context) {
	r.handleFill(c, r.plans.ExecutePlan)
}

func (r *Router) handleAdd(c *gin.Context) {
	r.handleFill(c, r.plans.AddPosition)
}

func (r *Router) handleFill(c *gin.Context, fn func(context.Context, int64, plan.Fill) (*plan.Plan, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var fill plan.Fill
	if !bindJSON(c, &fill) {
		return
	}
	p, err := fn(c.Request.Context(), id, fill)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) handleTrim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in plan.TrimInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := r.plans.TrimPosition(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) handleClose(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in plan.CloseInput
	if !bindJSON(c, &in) {
		return
	}
	exec, err := r.plans.ClosePlan(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (r *Router) handleCancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := r.plans.CancelPlan(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	p, err := r.plans.GetPlan(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) handleTransactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	txns, err := r.plans.ListTransactions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (r *Router) handleCommands(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultCommandLimit)))
	if limit <= 0 {
		limit = defaultCommandLimit
	}
	if limit > maxCommandLimit {
		limit = maxCommandLimit
	}
	records, err := r.plans.CommandLog(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []cmdlog.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (r *Router) handleRequestReview(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.plans.RequestReview(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"executionId": id, "status": "queued"})
}

func (r *Router) handleDashboard(c *gin.Context) {
	dash, err := r.dashboard.Project(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

func (r *Router) handleHistory(c *gin.Context) {
	history, err := r.dashboard.History(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (r *Router) handleGetSettings(c *gin.Context) {
	view, err := r.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (r *Router) handleUpdateSettings(c *gin.Context) {
	var budget trading.RiskBudget
	if !bindJSON(c, &budget) {
		return
	}
	view, err := r.settings.Update(c.Request.Context(), budget)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (r *Router) handleQuote(c *gin.Context) {
	q, err := r.quotes.StockInfo(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// handleSearch 按代码、名称或拼音联想股票，无匹配时返回空数组。
func (r *Router) handleSearch(c *gin.Context) {
	res, err := r.quotes.Search(c.Request.Context(), c.Query("keyword"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleChallenge(c *gin.Context) {
	var req review.ChallengeRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, r.challenger.Challenge(c.Request.Context(), req))
}
