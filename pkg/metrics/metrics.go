package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ApprovalDecisions   *prometheus.CounterVec // tier, decision, outcome
	ReviewerAssignments *prometheus.CounterVec // tier
	AssignmentRuns      *prometheus.CounterVec // outcome
	LoginAttempts       *prometheus.CounterVec // outcome
	AccountLockouts     prometheus.Counter
	PaymentOrders       *prometheus.CounterVec // outcome
	PaymentCaptures     *prometheus.CounterVec // outcome
}

// New registers the collectors on reg. A nil reg yields unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ApprovalDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_approval_decisions_total",
			Help: "approve/reject attempts by tier and outcome",
		}, []string{"tier", "decision", "outcome"}),
		ReviewerAssignments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_reviewer_assignments_total",
			Help: "reviewers assigned to approval records",
		}, []string{"tier"}),
		AssignmentRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_assignment_runs_total",
			Help: "reviewer assignment batch runs",
		}, []string{"outcome"}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_login_attempts_total",
			Help: "login attempts by outcome",
		}, []string{"outcome"}),
		AccountLockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "clubhub_account_lockouts_total",
			Help: "accounts locked after repeated failed logins",
		}),
		PaymentOrders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_payment_orders_total",
			Help: "payment order creation attempts by outcome",
		}, []string{"outcome"}),
		PaymentCaptures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_payment_captures_total",
			Help: "payment capture callbacks by outcome",
		}, []string{"outcome"}),
	}
}

// Outcome turns an error into a low-cardinality label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
