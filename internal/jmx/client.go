package jmx

import "context"

// Querier is implemented by every transport, so the RMI bridge, Jolokia and
// the debug wrapper can be used interchangeably
type Querier interface {
	QueryMBean(ctx context.Context, objectName string) (map[string]any, error)
	QueryMBeanPattern(ctx context.Context, pattern string) ([]map[string]any, error)
	Close() error
}

// Dial picks the transport for cfg. Nothing touches the network until the
// first query.
func Dial(cfg Config) (Querier, error) {
	var client Querier
	if cfg.JolokiaURL != "" {
		client = NewJolokiaClient(cfg.JolokiaURL)
	} else {
		bridge, err := NewBridgeClient(cfg.ServiceURL())
		if err != nil {
			return nil, err
		}
		client = bridge
	}

	if cfg.Debug {
		client = NewDebugClient(client)
	}

	return client, nil
}
