package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(snapshotOpsTotal) }

var snapshotOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "conversation_snapshot_ops_total",
		Help: "Snapshot cache operations by result.",
	},
	[]string{"op", "result"}, // op="load", result="hit"|"miss"|"corrupt"|"error"
)

func IncSnapshotOp(op, result string) {
	snapshotOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
