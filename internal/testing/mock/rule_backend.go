package mock

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Execution is one execution report received by RuleBackend.
type Execution struct {
	RuleID    string `json:"ruleId"`
	SessionID string `json:"sessionId"`
	CartID    string `json:"cartId"`
	Shop      string `json:"shop"`
}

// RuleBackend fakes the rule backend: GET /api/cart-rules?shop= serves the
// configured rules and POST /api/cart-rules records execution reports.
type RuleBackend struct {
	mu sync.Mutex

	rules      []map[string]any
	status     int
	fetches    int
	executions []Execution
}

// NewRuleBackend creates a backend serving rules. Each rule is written out
// verbatim, so tests can use any wire shape the real backend produces.
func NewRuleBackend(rules ...map[string]any) *RuleBackend {
	return &RuleBackend{rules: rules, status: http.StatusOK}
}

// SetRules replaces the served rules.
func (b *RuleBackend) SetRules(rules ...map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rules = rules
}

// SetStatus makes rule reads answer with status; anything but 200 sends no rules.
func (b *RuleBackend) SetStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// Fetches returns how many rule reads were served.
func (b *RuleBackend) Fetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

// Executions returns the execution reports received so far.
func (b *RuleBackend) Executions() []Execution {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Execution(nil), b.executions...)
}

// Handler returns the HTTP handler serving the rule endpoints.
func (b *RuleBackend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart-rules", b.handleRules)
	mux.HandleFunc("POST /api/cart-rules", b.handleExecution)
	return mux
}

func (b *RuleBackend) handleRules(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("shop") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Shop parameter required"})
		return
	}

	b.mu.Lock()
	b.fetches++
	status := b.status
	rules := b.rules
	b.mu.Unlock()

	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{"error": "unavailable"})
		return
	}
	if rules == nil {
		rules = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (b *RuleBackend) handleExecution(w http.ResponseWriter, r *http.Request) {
	var ex Execution
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	b.mu.Lock()
	b.executions = append(b.executions, ex)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
