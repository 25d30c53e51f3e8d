package net

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "acmeorder_http_requests_total",
	Help: "HTTP requests sent to the ACME server, by method and response code",
}, []string{"method", "code"})
