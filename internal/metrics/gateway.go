package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamErrorsTotal counts failed calls to the analytics service by kind:
// "remote" (exception envelope), "malformed" (missing field) or "transport".
var UpstreamErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sagateway",
		Name:      "upstream_errors_total",
		Help:      "Failed calls to the analytics service by error kind",
	},
	[]string{"operation", "kind"},
)

// Register registers gateway metrics on reg. Must be called once from main.
// Collectors already registered on reg are left in place.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{httpRequestDuration, httpRequestsTotal, UpstreamErrorsTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
