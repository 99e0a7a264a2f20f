package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ErrorKindUnauthorized = "unauthorized"
	ErrorKindTimeout      = "timeout"
	ErrorKindLogin        = "login"
	ErrorKindOther        = "other"
)

var (
	PollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icomm2mqtt_polls_total",
		Help: "Number of poll cycles started.",
	})

	APIErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icomm2mqtt_api_errors_total",
		Help: "Cloud API calls that failed after retries, by error kind.",
	}, []string{"kind"})

	ReloginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icomm2mqtt_relogins_total",
		Help: "Sessions invalidated after an unauthorized response.",
	})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icomm2mqtt_commands_total",
		Help: "User commands relayed to the cloud API, by command.",
	}, []string{"command"})
)
