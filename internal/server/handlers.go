package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cartrules/internal/engine"
	"cartrules/internal/reconciler"
	"cartrules/pkg/logging"
)

// PassRunner runs a reconciliation pass on demand.
type PassRunner interface {
	Reconcile(ctx context.Context, force bool) (engine.PassResult, error)
}

// StateSource exposes the engine state.
type StateSource interface {
	Status() engine.Status
}

// RuleCache is the rule cache as seen by the operational endpoints.
type RuleCache interface {
	Invalidate()
	Loaded(shop string) bool
	Count(shop string) int
}

// Scheduler is the signal sink and its status.
type Scheduler interface {
	Signal(source reconciler.SignalSource)
	State() reconciler.State
	LastResult() (engine.PassResult, bool)
	Metrics() *reconciler.SchedulerMetrics
}

// SocketHub serves host page WebSocket connections.
type SocketHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Clients() int
}

// SignalRequest is the body of POST /v1/signals.
type SignalRequest struct {
	Source string `json:"source" binding:"required"`
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Shop        string                             `json:"shop"`
	RulesLoaded bool                               `json:"rulesLoaded"`
	RuleCount   int                                `json:"ruleCount"`
	Scheduler   reconciler.State                   `json:"scheduler"`
	Engine      engine.Status                      `json:"engine"`
	Hosts       int                                `json:"hosts"`
	LastPass    *engine.PassResult                 `json:"lastPass,omitempty"`
	Metrics     reconciler.SchedulerMetricsSummary `json:"metrics"`
	Time        time.Time                          `json:"time"`
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleSignal accepts a change signal from a host page.
func HandleSignal(scheduler Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		source, ok := reconciler.ParseHostSource(req.Source)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "unknown signal source",
				"source":  req.Source,
				"allowed": reconciler.HostSources,
			})
			return
		}

		scheduler.Signal(source)
		c.JSON(http.StatusAccepted, gin.H{"accepted": true, "source": source})
	}
}

// HandleReconcile runs a forced pass now and returns its result.
func HandleReconcile(runner PassRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := runner.Reconcile(c.Request.Context(), true)
		if errors.Is(err, engine.ErrPassInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "result": res})
			return
		}
		if err != nil {
			logging.Error("Server", err, "Manual reconciliation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// HandleReloadRules invalidates the rule cache and runs a forced pass, which
// loads the rules again.
func HandleReloadRules(rules RuleCache, runner PassRunner, shop string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rules.Invalidate()

		res, err := runner.Reconcile(c.Request.Context(), true)
		if errors.Is(err, engine.ErrPassInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "result": res})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"rulesLoaded": rules.Loaded(shop),
			"ruleCount":   rules.Count(shop),
			"result":      res,
		})
	}
}

// HandleStatus reports the agent's state.
func HandleStatus(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := StatusResponse{
			Shop:        deps.Shop,
			RulesLoaded: deps.Rules.Loaded(deps.Shop),
			RuleCount:   deps.Rules.Count(deps.Shop),
			Scheduler:   deps.Scheduler.State(),
			Engine:      deps.State.Status(),
			Metrics:     deps.Scheduler.Metrics().Summary(),
			Time:        time.Now(),
		}
		if deps.Hub != nil {
			resp.Hosts = deps.Hub.Clients()
		}
		if last, ok := deps.Scheduler.LastResult(); ok {
			resp.LastPass = &last
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleWebSocket upgrades host page connections.
func HandleWebSocket(hub SocketHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	}
}
