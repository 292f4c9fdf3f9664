package jmx

import (
	"context"
	"time"

	"github.com/mabhi256/munin-jmx/internal/log"
)

// DebugClient wraps another Querier and logs every query with its raw data
type DebugClient struct {
	inner Querier
}

func NewDebugClient(inner Querier) *DebugClient {
	return &DebugClient{inner: inner}
}

func (dc *DebugClient) QueryMBean(ctx context.Context, objectName string) (map[string]any, error) {
	start := time.Now()
	result, err := dc.inner.QueryMBean(ctx, objectName)
	dc.logQueryResult(objectName, "single", time.Since(start), result, err)
	return result, err
}

func (dc *DebugClient) QueryMBeanPattern(ctx context.Context, pattern string) ([]map[string]any, error) {
	start := time.Now()
	result, err := dc.inner.QueryMBeanPattern(ctx, pattern)
	dc.logQueryResult(pattern, "pattern", time.Since(start), result, err)
	return result, err
}

func (dc *DebugClient) Close() error {
	return dc.inner.Close()
}

func (dc *DebugClient) logQueryResult(mbeanName, queryType string, took time.Duration, data any, err error) {
	event := log.Debug().
		Str("mbean_name", mbeanName).
		Str("query_type", queryType).
		Dur("took", took)

	if err != nil {
		event.Err(err).Msg("JMX query failed")
		return
	}

	event.Interface("raw_data", data).Msg("JMX query")
}
