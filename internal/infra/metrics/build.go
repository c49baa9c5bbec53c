package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "assistant_chat_build_info",
		Help: "Constant 1, labelled with the running version, commit and transport.",
	},
	[]string{"version", "commit", "transport"},
)

func SetBuildInfo(version, commit, transport string) {
	buildInfo.WithLabelValues(version, commit, norm(transport)).Set(1)
}
