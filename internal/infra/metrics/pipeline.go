package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		segmentsMined,
		segmentGaps,
		claimsAccepted,
		claimsDropped,
		relationsFound,
		schemaRepairs,
		schemaFailures,
		checkpointWrites,
	)
}

var (
	segmentsMined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_segments_mined_total",
			Help: "Segments successfully mined for candidate claims.",
		},
	)

	segmentGaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_segment_gaps_total",
			Help: "Segments that produced no claims, labeled by reason.",
		},
		[]string{"reason"},
	)

	claimsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_claims_accepted_total",
			Help: "Claims accepted by the judge, labeled by tier.",
		},
		[]string{"tier"},
	)

	claimsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_claims_dropped_total",
			Help: "Candidate claims dropped below the quality threshold.",
		},
	)

	relationsFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_relations_total",
			Help: "Relations emitted by the relator, labeled by type.",
		},
		[]string{"type"},
	)

	schemaRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_repairs_total",
			Help: "LLM responses recovered by the schema repairer, by call kind.",
		},
		[]string{"kind"},
	)

	schemaFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_failures_total",
			Help: "LLM responses rejected even after repair, by call kind.",
		},
		[]string{"kind"},
	)

	checkpointWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkpoint_writes_total",
			Help: "Checkpoints written, labeled by stage.",
		},
		[]string{"stage"},
	)
)

func IncSegmentMined()             { segmentsMined.Inc() }
func IncSegmentGap(reason string)  { segmentGaps.WithLabelValues(norm(reason)).Inc() }
func IncClaimAccepted(tier string) { claimsAccepted.WithLabelValues(norm(tier)).Inc() }
func IncClaimDropped()             { claimsDropped.Inc() }
func IncRelation(relType string)   { relationsFound.WithLabelValues(norm(relType)).Inc() }
func IncSchemaRepair(kind string)  { schemaRepairs.WithLabelValues(norm(kind)).Inc() }
func IncSchemaFailure(kind string) { schemaFailures.WithLabelValues(norm(kind)).Inc() }
func IncCheckpoint(stage string)   { checkpointWrites.WithLabelValues(norm(stage)).Inc() }
