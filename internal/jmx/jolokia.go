package jmx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// JolokiaClient reads MBeans through a Jolokia agent's HTTP read endpoint.
type JolokiaClient struct {
	baseURL    string
	httpClient *http.Client
}

type jolokiaResponse struct {
	Status    int             `json:"status"`
	Value     json.RawMessage `json:"value"`
	Error     string          `json:"error"`
	ErrorType string          `json:"error_type"`
}

// NewJolokiaClient returns a client without a timeout of its own; requests are
// bounded by the context passed to each query.
func NewJolokiaClient(baseURL string) *JolokiaClient {
	return &JolokiaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *JolokiaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Jolokia escapes '!', '/' and '"' with a leading '!'. Characters an object
// name may carry that are not valid in a URL path are percent-encoded; the
// ',' '=' ':' '*' separators stay literal as Jolokia expects.
var objectNameEscaper = strings.NewReplacer(
	`!`, `!!`,
	`/`, `!/`,
	`"`, `!"`,
	`%`, `%25`,
	` `, `%20`,
	`?`, `%3F`,
	`#`, `%23`,
)

func escapeObjectName(objectName string) string {
	return objectNameEscaper.Replace(objectName)
}

func (c *JolokiaClient) read(ctx context.Context, objectName string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/read/%s?ignoreErrors=true", c.baseURL, escapeObjectName(objectName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build Jolokia request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jolokia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jolokia returned HTTP %d", resp.StatusCode)
	}

	var result jolokiaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse Jolokia response: %w", err)
	}

	if result.Status != http.StatusOK {
		return nil, fmt.Errorf("JMX query failed: %s (status %d)", result.Error, result.Status)
	}

	return result.Value, nil
}

// QueryMBean queries a specific MBean and returns its attributes
func (c *JolokiaClient) QueryMBean(ctx context.Context, objectName string) (map[string]any, error) {
	raw, err := c.read(ctx, objectName)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JMX response: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("JMX query %s: empty value", objectName)
	}
	result["ObjectName"] = objectName

	return result, nil
}

// QueryMBeanPattern queries multiple MBeans matching a pattern. Jolokia keys
// the result by object name; the name is copied into each entry.
func (c *JolokiaClient) QueryMBeanPattern(ctx context.Context, pattern string) ([]map[string]any, error) {
	raw, err := c.read(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var byName map[string]map[string]any
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse JMX response: %w", err)
	}
	if byName == nil {
		return nil, fmt.Errorf("JMX query %s: empty value", pattern)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]map[string]any, 0, len(names))
	for _, name := range names {
		attrs := byName[name]
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrs["ObjectName"] = name
		result = append(result, attrs)
	}

	return result, nil
}
