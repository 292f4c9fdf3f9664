package jmx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrPoolNotFound = errors.New("memory pool not found")
	ErrNoUsage      = errors.New("memory pool reports no usage")
)

// PermGenPools lists the permanent generation pool names of the various
// collectors, with Metaspace last for JVMs that replaced it.
var PermGenPools = []string{
	"Perm Gen",
	"PS Perm Gen",
	"CMS Perm Gen",
	"G1 Perm Gen",
	"Metaspace",
}

func memoryPoolObjectName(name string) string {
	return "java.lang:type=MemoryPool,name=" + name
}

// ReadMemoryPool reads a single pool by name
func ReadMemoryPool(ctx context.Context, client Querier, name string) (MemoryPool, error) {
	data, err := client.QueryMBean(ctx, memoryPoolObjectName(name))
	if err != nil {
		return MemoryPool{}, fmt.Errorf("failed to query memory pool %q: %w", name, err)
	}

	pool, err := decodeMemoryPool(data)
	if err != nil {
		return MemoryPool{}, fmt.Errorf("memory pool %q: %w", name, err)
	}
	if pool.Name == "" {
		pool.Name = name
	}

	return pool, nil
}

// ListMemoryPools returns every pool of the target JVM sorted by name.
// Entries without usage data are skipped.
func ListMemoryPools(ctx context.Context, client Querier) ([]MemoryPool, error) {
	entries, err := client.QueryMBeanPattern(ctx, memoryPoolObjectName("*"))
	if err != nil {
		return nil, fmt.Errorf("failed to query memory pools: %w", err)
	}

	pools := make([]MemoryPool, 0, len(entries))
	for _, entry := range entries {
		pool, err := decodeMemoryPool(entry)
		if err != nil || pool.Name == "" {
			continue
		}
		pools = append(pools, pool)
	}

	sort.Slice(pools, func(i, j int) bool {
		return pools[i].Name < pools[j].Name
	})

	return pools, nil
}

// ResolvePool returns the first pool in preferred that the JVM has
func ResolvePool(ctx context.Context, client Querier, preferred []string) (MemoryPool, error) {
	pools, err := ListMemoryPools(ctx, client)
	if err != nil {
		return MemoryPool{}, err
	}

	byName := make(map[string]MemoryPool, len(pools))
	for _, pool := range pools {
		byName[pool.Name] = pool
	}

	for _, name := range preferred {
		if pool, ok := byName[name]; ok {
			return pool, nil
		}
	}

	return MemoryPool{}, fmt.Errorf("%w: none of %s", ErrPoolNotFound, strings.Join(preferred, ", "))
}

func decodeMemoryPool(data map[string]any) (MemoryPool, error) {
	usage, ok := data["Usage"].(map[string]any)
	if !ok {
		return MemoryPool{}, ErrNoUsage
	}

	pool := MemoryPool{
		Name:  extractPoolName(data),
		Usage: decodeMemoryUsage(usage),
		Valid: true,
	}

	pool.Type, _ = data["Type"].(string)

	if peak, ok := data["PeakUsage"].(map[string]any); ok {
		pool.PeakUsage = decodeMemoryUsage(peak)
	}

	// Threshold attributes throw on pools without threshold support
	if supported, ok := data["UsageThresholdSupported"].(bool); ok && supported {
		pool.Threshold.Supported = true
		pool.Threshold.Threshold, _ = int64Value(data["UsageThreshold"])
		pool.Threshold.Exceeded, _ = data["UsageThresholdExceeded"].(bool)
		pool.Threshold.Count, _ = int64Value(data["UsageThresholdCount"])
	}

	if valid, ok := data["Valid"].(bool); ok {
		pool.Valid = valid
	}

	if managers, ok := data["MemoryManagerNames"].([]any); ok {
		for _, mgr := range managers {
			if name, ok := mgr.(string); ok {
				pool.Managers = append(pool.Managers, name)
			}
		}
	}

	return pool, nil
}

func decodeMemoryUsage(usage map[string]any) MemoryUsage {
	var mu MemoryUsage
	mu.Init, _ = int64Value(usage["init"])
	mu.Used, _ = int64Value(usage["used"])
	mu.Committed, _ = int64Value(usage["committed"])
	mu.Max, _ = int64Value(usage["max"])
	return mu
}

func int64Value(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// Extract pool name from various possible sources in the pool data
func extractPoolName(pool map[string]any) string {
	for _, field := range []string{"Name", "name"} {
		if name, ok := pool[field].(string); ok && name != "" {
			return name
		}
	}

	for _, field := range []string{"ObjectName", "objectName"} {
		if objectName, ok := pool[field].(string); ok {
			return poolNameFromObjectName(objectName)
		}
	}

	return ""
}

func poolNameFromObjectName(objectName string) string {
	if objectName == "" {
		return ""
	}
	if idx := strings.Index(objectName, "name="); idx != -1 {
		name := objectName[idx+5:]
		if commaIdx := strings.Index(name, ","); commaIdx != -1 {
			name = name[:commaIdx]
		}
		return name
	}
	return objectName
}
