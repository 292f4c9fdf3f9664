package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/munin-jmx/internal/jmx"
)

const expectedConfig = `graph_title UsagePermGen
graph_vlabel Bytes
graph_category Tomcat
graph_info Returns an estimate of the memory usage of this memory pool.
Comitted.label Comitted
Comitted.info The amount of memory (in bytes) that is guaranteed to be available for use by the Java virtual machine.
Max.label Max
Max.info The maximum amount of memory (in bytes) that can be used for memory management.
Max.draw AREA
Max.colour ccff00
Init.label Init
Init.info The initial amount of memory (in bytes) that the Java virtual machine requests from the operating system for memory management during startup.
Used.label Used
Used.info The amount of memory currently used (in bytes).
Threshold.label Threshold
Threshold.info The usage threshold value of this memory pool in bytes.
`

type stubQuerier struct {
	pools  map[string]map[string]any
	err    error
	hang   bool // block until the context is done, like an unresponsive JVM
	closed bool
}

func (s *stubQuerier) QueryMBean(ctx context.Context, objectName string) (map[string]any, error) {
	if s.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	for name, data := range s.pools {
		if objectName == "java.lang:type=MemoryPool,name="+name {
			return data, nil
		}
	}
	return nil, errors.New("javax.management.InstanceNotFoundException: " + objectName)
}

func (s *stubQuerier) QueryMBeanPattern(ctx context.Context, _ string) ([]map[string]any, error) {
	if s.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	var result []map[string]any
	for _, data := range s.pools {
		result = append(result, data)
	}
	return result, nil
}

func (s *stubQuerier) Close() error {
	s.closed = true
	return nil
}

func poolData(name string, init, used, committed, max, threshold float64) map[string]any {
	return map[string]any{
		"ObjectName": "java.lang:type=MemoryPool,name=" + name,
		"Type":       "NON_HEAP",
		"Usage": map[string]any{
			"init":      init,
			"used":      used,
			"committed": committed,
			"max":       max,
		},
		"UsageThresholdSupported": true,
		"UsageThreshold":          threshold,
		"Valid":                   true,
	}
}

// stubDial swaps the JMX dialer for one returning client and records targets
func stubDial(t *testing.T, client *stubQuerier, dialErr error) *[]jmx.Config {
	t.Helper()
	var targets []jmx.Config
	original := dialJMX
	dialJMX = func(cfg jmx.Config) (jmx.Querier, error) {
		targets = append(targets, cfg)
		if dialErr != nil {
			return nil, dialErr
		}
		return client, nil
	}
	t.Cleanup(func() { dialJMX = original })
	return &targets
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("MUNIN_JMX_CONFIG", "")

	// rootCmd is shared, so flags set by an earlier run must not leak
	resetFlags := func() {
		rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConfigMode(t *testing.T) {
	targets := stubDial(t, &stubQuerier{}, nil)

	stdout, _, err := runCmd(t, "config")
	require.NoError(t, err)

	assert.Equal(t, expectedConfig, stdout)
	assert.Empty(t, *targets, "config must not connect")
}

func TestFetchMode(t *testing.T) {
	client := &stubQuerier{pools: map[string]map[string]any{
		"PS Perm Gen": poolData("PS Perm Gen", 22020096, 31457280, 33554432, 85983232, 64000000),
		"PS Eden Space": {
			"ObjectName": "java.lang:type=MemoryPool,name=PS Eden Space",
			"Usage":      map[string]any{"used": float64(1)},
		},
	}}
	targets := stubDial(t, client, nil)

	stdout, _, err := runCmd(t, "10.0.0.5:9010")
	require.NoError(t, err)

	assert.Equal(t, "Comitted.value 33554432\n"+
		"Init.value 22020096\n"+
		"Max.value 85983232\n"+
		"Used.value 31457280\n"+
		"Threshold.value 64000000\n", stdout)

	require.Len(t, *targets, 1)
	assert.Equal(t, "10.0.0.5", (*targets)[0].Host)
	assert.Equal(t, 9010, (*targets)[0].Port)
	assert.True(t, client.closed)
}

func TestFetchMode_FiveLabeledNumericLines(t *testing.T) {
	client := &stubQuerier{pools: map[string]map[string]any{
		"Metaspace": poolData("Metaspace", 0, 52428800, 53477376, -1, 0),
	}}
	stubDial(t, client, nil)

	stdout, _, err := runCmd(t, "localhost:1099")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 5)
	for i, label := range []string{"Comitted", "Init", "Max", "Used", "Threshold"} {
		fields := strings.Fields(lines[i])
		require.Len(t, fields, 2, lines[i])
		assert.Equal(t, label+".value", fields[0])
		assert.Regexp(t, `^-?\d+$`, fields[1])
	}
}

func TestFetchMode_ExplicitPoolAndConfigFile(t *testing.T) {
	client := &stubQuerier{pools: map[string]map[string]any{
		"G1 Old Gen": poolData("G1 Old Gen", 1, 2, 3, 4, 5),
		"Metaspace":  poolData("Metaspace", 9, 9, 9, 9, 9),
	}}
	targets := stubDial(t, client, nil)

	path := filepath.Join(t.TempDir(), "munin-jmx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connections:\n  tomcat1:\n    host: app1\n    port: 9010\n"), 0o644))

	stdout, _, err := runCmd(t, "--config", path, "--pool", "G1 Old Gen", "tomcat1")
	require.NoError(t, err)

	assert.Equal(t, "Comitted.value 3\nInit.value 1\nMax.value 4\nUsed.value 2\nThreshold.value 5\n", stdout)
	require.Len(t, *targets, 1)
	assert.Equal(t, jmx.Config{Host: "app1", Port: 9010}, (*targets)[0])
}

func TestFetchMode_FailuresPrintedToStdout(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		client   *stubQuerier
		dialErr  error
		wantText string
	}{
		{
			name:     "unknown identifier",
			args:     []string{"nosuchapp"},
			client:   &stubQuerier{},
			wantText: `unknown connection "nosuchapp"`,
		},
		{
			name:     "dial failure",
			args:     []string{"localhost:1099"},
			dialErr:  errors.New("java executable not found"),
			wantText: "java executable not found",
		},
		{
			name:     "connection refused",
			args:     []string{"localhost:1099"},
			client:   &stubQuerier{err: errors.New("java.rmi.ConnectException: Connection refused to host: localhost")},
			wantText: "Connection refused",
		},
		{
			name:     "pool missing",
			args:     []string{"--pool", "Perm Gen", "localhost:1099"},
			client:   &stubQuerier{pools: map[string]map[string]any{}},
			wantText: "InstanceNotFoundException",
		},
		{
			name:     "no permanent generation pool",
			args:     []string{"localhost:1099"},
			client:   &stubQuerier{pools: map[string]map[string]any{}},
			wantText: "memory pool not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubDial(t, tt.client, tt.dialErr)

			stdout, stderr, err := runCmd(t, tt.args...)
			require.NoError(t, err, "failures must not change the exit status")

			assert.Contains(t, stdout, tt.wantText)
			assert.NotContains(t, stdout, ".value")
			assert.Contains(t, stderr, "fetch failed")
		})
	}
}

func TestFetchMode_TimeoutBoundsQueries(t *testing.T) {
	client := &stubQuerier{hang: true}
	stubDial(t, client, nil)

	start := time.Now()
	stdout, stderr, err := runCmd(t, "--timeout", "50ms", "localhost:1099")
	require.NoError(t, err, "a timeout must not change the exit status")

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, stdout, context.DeadlineExceeded.Error())
	assert.NotContains(t, stdout, ".value")
	assert.Contains(t, stderr, "fetch failed")
	assert.True(t, client.closed)
}

func TestFetchMode_JolokiaNullValue(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterNoResponder(httpmock.NewStringResponder(http.StatusOK, `{"value": null, "status": 200}`))

	path := filepath.Join(t.TempDir(), "munin-jmx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connections:\n  app2:\n    jolokia: http://app2:8778/jolokia\n"), 0o644))

	stdout, stderr, err := runCmd(t, "--config", path, "--pool", "Metaspace", "app2")
	require.NoError(t, err)

	assert.Contains(t, stdout, "empty value")
	assert.NotContains(t, stdout, ".value ")
	assert.Contains(t, stderr, "fetch failed")
}

func TestFetchMode_InvalidPoolWarns(t *testing.T) {
	data := poolData("PS Perm Gen", 1, 2, 3, 4, 5)
	data["Valid"] = false
	stubDial(t, &stubQuerier{pools: map[string]map[string]any{"PS Perm Gen": data}}, nil)

	stdout, stderr, err := runCmd(t, "localhost:1099")
	require.NoError(t, err)

	assert.Equal(t, "Comitted.value 3\nInit.value 1\nMax.value 4\nUsed.value 2\nThreshold.value 5\n", stdout)
	assert.Contains(t, stderr, "memory pool is no longer valid")
	assert.Contains(t, stderr, "WRN")
}

func TestFlagsDoNotLeakBetweenRuns(t *testing.T) {
	client := &stubQuerier{pools: map[string]map[string]any{
		"G1 Old Gen": poolData("G1 Old Gen", 1, 2, 3, 4, 5),
		"Metaspace":  poolData("Metaspace", 6, 7, 8, 9, 10),
	}}
	stubDial(t, client, nil)

	stdout, _, err := runCmd(t, "--pool", "G1 Old Gen", "localhost:1099")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Used.value 2\n")

	stdout, _, err = runCmd(t, "localhost:1099")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Used.value 7\n")
	assert.Equal(t, 10*time.Second, opts.timeout)
}

func TestArgumentValidation(t *testing.T) {
	_, _, err := runCmd(t)
	require.Error(t, err)

	_, _, err = runCmd(t, "a", "b")
	require.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "usage_permgen version dev\n", stdout)
}
