package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_LedgerOperation = "ledger.operation"
	Metric_Incr_QueueMessage    = "ledger.queue.message"
	Metric_Incr_GrpcRequest     = "rpc.grpc.request"
	Metric_Incr_HttpRequest     = "rpc.http.request"

	Metric_Gauge_TotalStaked    = "ledger.totalStaked"
	Metric_Gauge_DepositorCount = "ledger.depositorCount"
	Metric_Gauge_Sequence       = "ledger.sequence"

	Metric_Timing_LedgerOperationDuration = "ledger.operation.duration"
	Metric_Timing_GrpcDuration            = "rpc.grpc.duration"
	Metric_Timing_HttpDuration            = "rpc.http.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_LedgerOperation,
			Labels: []string{"operation", "outcome"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_QueueMessage,
			Labels: []string{"operation"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_GrpcRequest,
			Labels: []string{"method"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_HttpRequest,
			Labels: []string{"route", "status"},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_TotalStaked,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_DepositorCount,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_Sequence,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_LedgerOperationDuration,
			Labels: []string{"operation"},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_GrpcDuration,
			Labels: []string{"method"},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_HttpDuration,
			Labels: []string{"route"},
		},
	},
}
