package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Credential kinds used as label values.
const (
	KindCertificate = "certificate"
	KindSkill       = "skill"
)

// Metrics holds the Prometheus collectors for credential operations.
type Metrics struct {
	CredentialsIssued  *prometheus.CounterVec
	CredentialsRevoked *prometheus.CounterVec
	GradeCorrections   prometheus.Counter
	SkillEndorsements  prometheus.Counter
	SkillUpdates       *prometheus.CounterVec
	VerifyOutcomes     *prometheus.CounterVec
	OperationFailures  *prometheus.CounterVec
	EndpointLatency    *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_credentials_issued_total",
			Help: "Total number of credentials recorded, labeled by kind",
		}, []string{"kind"}),
		CredentialsRevoked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_credentials_revoked_total",
			Help: "Total number of credentials revoked, labeled by kind",
		}, []string{"kind"}),
		GradeCorrections: f.NewCounter(prometheus.CounterOpts{
			Name: "credledger_certificate_grade_corrections_total",
			Help: "Total number of certificate grade corrections",
		}),
		SkillEndorsements: f.NewCounter(prometheus.CounterOpts{
			Name: "credledger_skill_endorsements_total",
			Help: "Total number of skill endorsements",
		}),
		SkillUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_skill_updates_total",
			Help: "Total number of skill updates, labeled by field",
		}, []string{"field"}),
		VerifyOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_verify_outcomes_total",
			Help: "Verification results, labeled by kind and outcome",
		}, []string{"kind", "outcome"}),
		OperationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_operation_failures_total",
			Help: "Failed ledger operations, labeled by operation and error code",
		}, []string{"operation", "code"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credledger_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// IncIssued records a new credential.
func (m *Metrics) IncIssued(kind string) {
	if m != nil {
		m.CredentialsIssued.WithLabelValues(kind).Inc()
	}
}

// IncRevoked records a revocation.
func (m *Metrics) IncRevoked(kind string) {
	if m != nil {
		m.CredentialsRevoked.WithLabelValues(kind).Inc()
	}
}

// IncGradeCorrection records a grade update.
func (m *Metrics) IncGradeCorrection() {
	if m != nil {
		m.GradeCorrections.Inc()
	}
}

// IncEndorsement records a skill endorsement.
func (m *Metrics) IncEndorsement() {
	if m != nil {
		m.SkillEndorsements.Inc()
	}
}

// IncSkillUpdate records a change to field of a skill.
func (m *Metrics) IncSkillUpdate(field string) {
	if m != nil {
		m.SkillUpdates.WithLabelValues(field).Inc()
	}
}

// IncVerify records a verification outcome such as "valid" or "revoked".
func (m *Metrics) IncVerify(kind, outcome string) {
	if m != nil {
		m.VerifyOutcomes.WithLabelValues(kind, outcome).Inc()
	}
}

// IncFailure records a failed operation.
func (m *Metrics) IncFailure(operation, code string) {
	if m != nil {
		m.OperationFailures.WithLabelValues(operation, code).Inc()
	}
}

// ObserveEndpointLatency records the latency of an HTTP endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, seconds float64) {
	if m != nil {
		m.EndpointLatency.WithLabelValues(endpoint).Observe(seconds)
	}
}
