package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	RESULT_OK      = "ok"
	RESULT_ERROR   = "error"
	RESULT_SKIPPED = "skipped"
)

var (
	SnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "freeds",
		Name:      "snapshots_total",
		Help:      "Snapshots received from the device.",
	})
	UnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "freeds",
		Name:      "unavailable_total",
		Help:      "Times the device was marked unavailable.",
	})
	Available = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "freeds",
		Name:      "available",
		Help:      "1 while the last refresh succeeded.",
	})
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freeds",
		Name:      "commands_total",
		Help:      "Entity commands handled, by entity and result.",
	}, []string{"command", "result"})
	RebootsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freeds",
		Name:      "reboots_total",
		Help:      "Reboot button presses, by result.",
	}, []string{"result"})
)

// ObserveUpdate records one acquisition update.
func ObserveUpdate(available bool) {
	if available {
		SnapshotsTotal.Inc()
		Available.Set(1)
		return
	}
	UnavailableTotal.Inc()
	Available.Set(0)
}

func ObserveCommand(command string, err error, changed bool) {
	result := RESULT_OK
	switch {
	case err != nil:
		result = RESULT_ERROR
	case !changed:
		result = RESULT_SKIPPED
	}
	CommandsTotal.WithLabelValues(command, result).Inc()
}

func ObserveReboot(sent bool, err error) {
	result := RESULT_OK
	switch {
	case err != nil:
		result = RESULT_ERROR
	case !sent:
		result = RESULT_SKIPPED
	}
	RebootsTotal.WithLabelValues(result).Inc()
}
