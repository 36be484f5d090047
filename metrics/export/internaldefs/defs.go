package internaldefs

import (
	"github.com/teachify/teachify"
	"github.com/teachify/teachify/route"
)

// Label names and values shared by every exporter.
const (
	LabelOp      = "op"
	LabelOutcome = "outcome"
	LabelReason  = "reason"
	LabelVerdict = "verdict"

	OpLogin    = "login"
	OpRegister = "register"

	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeRolledBack = "rolled_back"
)

// Series is one client counter inside a Family. Values line up with
// Family.Labels.
type Series struct {
	ID     teachify.MetricID
	Values []string
}

// Family is a counter exported under one name with one series per label set.
type Family struct {
	Name   string
	Help   string
	Labels []string
	Series []Series
}

// HistogramDef names one client histogram for exporters.
type HistogramDef struct {
	ID   teachify.MetricID
	Name string
	Help string
}

// Families lists every exported counter family in exposition order.
var Families = []Family{
	{
		Name:   "teachify_bootstrap_total",
		Help:   "Bootstraps by outcome.",
		Labels: []string{LabelOutcome},
		Series: []Series{
			{ID: teachify.MetricBootstrapAuthenticated, Values: []string{"restored"}},
			{ID: teachify.MetricBootstrapAnonymous, Values: []string{"anonymous"}},
			{ID: teachify.MetricBootstrapExpired, Values: []string{"discarded"}},
		},
	},
	{
		Name:   "teachify_auth_attempts_total",
		Help:   "Login and registration attempts that reached the gateway, by operation and outcome.",
		Labels: []string{LabelOp, LabelOutcome},
		Series: []Series{
			{ID: teachify.MetricLoginSuccess, Values: []string{OpLogin, OutcomeSuccess}},
			{ID: teachify.MetricLoginFailure, Values: []string{OpLogin, OutcomeFailure}},
			{ID: teachify.MetricLoginRolledBack, Values: []string{OpLogin, OutcomeRolledBack}},
			{ID: teachify.MetricRegisterSuccess, Values: []string{OpRegister, OutcomeSuccess}},
			{ID: teachify.MetricRegisterFailure, Values: []string{OpRegister, OutcomeFailure}},
			{ID: teachify.MetricRegisterRolledBack, Values: []string{OpRegister, OutcomeRolledBack}},
		},
	},
	{
		Name:   "teachify_auth_refused_total",
		Help:   "Attempts refused before any gateway call.",
		Labels: []string{LabelReason},
		Series: []Series{
			{ID: teachify.MetricValidationRejected, Values: []string{"validation"}},
			{ID: teachify.MetricConcurrentRejected, Values: []string{"concurrent"}},
		},
	},
	{
		Name:   "teachify_session_ended_total",
		Help:   "Sessions ended locally, by reason.",
		Labels: []string{LabelReason},
		Series: []Series{
			{ID: teachify.MetricLogout, Values: []string{"logout"}},
			{ID: teachify.MetricSessionExpired, Values: []string{"expired"}},
		},
	},
	{
		Name:   "teachify_navigations_total",
		Help:   "Navigation decisions by verdict.",
		Labels: []string{LabelVerdict},
		Series: []Series{
			{ID: teachify.MetricRouteAllow, Values: []string{route.Allow.String()}},
			{ID: teachify.MetricRouteRedirect, Values: []string{route.Redirect.String()}},
			{ID: teachify.MetricRoutePending, Values: []string{route.Pending.String()}},
		},
	},
}

// GatewayLatency is the only histogram.
var GatewayLatency = HistogramDef{
	ID:   teachify.MetricGatewayLatency,
	Name: "teachify_gateway_latency_seconds",
	Help: "Auth gateway round-trip latency.",
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure
// counter, which is read from the client rather than the snapshot.
const (
	AuditDroppedName = "teachify_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under dispatcher backpressure."
)

// HistogramBounds are the upper bounds of the latency buckets in seconds,
// rendered as le label values.
var HistogramBounds = [8]string{"0.05", "0.1", "0.25", "0.5", "1", "2.5", "5", "+Inf"}

// CumulativeBuckets turns raw per-bucket counts into running totals. Missing
// buckets count as zero.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
