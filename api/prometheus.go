package api

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	rpcCalls = []string{
		MethodGetAccountState,
		MethodSendRawTransaction,
		MethodGetReceipt,
		MethodCall,
		MethodGetHeight,
	}

	rpcCounter = map[string]prometheus.Counter{}

	rpcErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of rpc calls that returned an error",
			Name:      "rpc_errors_total",
			Namespace: "fortesting",
		},
		[]string{"code"},
	)
)

func incCounter(name string) {
	ctr, ok := rpcCounter[name]
	if ok {
		ctr.Inc()
	}
}

func init() {
	for i := range rpcCalls {
		ctr := prometheus.NewCounter(
			prometheus.CounterOpts{
				Help:      fmt.Sprintf("Number of calls to %s rpc endpoint", rpcCalls[i]),
				Name:      fmt.Sprintf("%s_called", rpcCalls[i]),
				Namespace: "fortesting",
			},
		)
		prometheus.MustRegister(ctr)
		rpcCounter[rpcCalls[i]] = ctr
	}
	prometheus.MustRegister(rpcErrors)
}
