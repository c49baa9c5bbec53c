package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminRequestsTotal, loginAttemptsTotal) }

var (
	adminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_http_requests_total",
			Help: "Requests served by the admin API by route and status.",
		},
		[]string{"route", "status"},
	)

	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result (ok/invalid/forbidden/error).",
		},
		[]string{"result"},
	)
)

func IncAdminRequest(route string, status int) {
	adminRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func IncLoginAttempt(result string) {
	loginAttemptsTotal.WithLabelValues(norm(result)).Inc()
}
