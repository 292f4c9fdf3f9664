package jmx

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

//go:embed JMXClient.java
var jmxClientSource string

// BridgeClient talks to a remote JVM by running a small Java program that
// uses the JDK's own RMI connector and prints MBean attributes as JSON.
type BridgeClient struct {
	serviceURL string // JMX service URL
	classDir   string // Directory holding the compiled JMXClient.class
	javaPath   string // Path to Java executable
}

func NewBridgeClient(serviceURL string) (*BridgeClient, error) {
	javaPath, err := exec.LookPath("java")
	if err != nil {
		return nil, fmt.Errorf("java executable not found: %w", err)
	}

	classDir, err := compiledClassDir()
	if err != nil {
		return nil, fmt.Errorf("failed to setup JMX client: %w", err)
	}

	return &BridgeClient{
		serviceURL: serviceURL,
		classDir:   classDir,
		javaPath:   javaPath,
	}, nil
}

// compiledClassDir returns a cache directory with JMXClient compiled from the
// embedded source. The directory name is the source hash, so a changed source
// is compiled again and an unchanged one only once per machine.
func compiledClassDir() (string, error) {
	sum := sha256.Sum256([]byte(jmxClientSource))
	hash := hex.EncodeToString(sum[:8])

	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = os.TempDir()
	}
	base := filepath.Join(cacheRoot, "munin-jmx")
	classDir := filepath.Join(base, hash)

	if _, err := os.Stat(filepath.Join(classDir, "JMXClient.class")); err == nil {
		return classDir, nil
	}

	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Compile into a scratch dir and rename, several plugins may start at once
	scratch, err := os.MkdirTemp(base, "build-*")
	if err != nil {
		return "", fmt.Errorf("failed to create build directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	sourceFile := filepath.Join(scratch, "JMXClient.java")
	if err := os.WriteFile(sourceFile, []byte(jmxClientSource), 0o644); err != nil {
		return "", fmt.Errorf("failed to write Java file: %w", err)
	}

	javac, err := exec.LookPath("javac")
	if err != nil {
		return "", fmt.Errorf("javac executable not found: %w", err)
	}

	cmd := exec.Command(javac, "-d", scratch, sourceFile)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("compilation failed: %s", strings.TrimSpace(string(output)))
	}

	if err := os.Rename(scratch, classDir); err != nil {
		// Lost the race to another process, use its result
		if _, statErr := os.Stat(filepath.Join(classDir, "JMXClient.class")); statErr == nil {
			return classDir, nil
		}
		return "", fmt.Errorf("failed to install compiled client: %w", err)
	}

	return classDir, nil
}

func (c *BridgeClient) Close() error {
	return nil
}

func (c *BridgeClient) run(ctx context.Context, mode, name string) ([]byte, error) {
	args := []string{"-cp", c.classDir, "JMXClient", mode, name, c.serviceURL}
	cmd := exec.CommandContext(ctx, c.javaPath, args...)
	cmd.WaitDelay = time.Second

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("JMX query %s: %w", name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("JMX query failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("failed to execute JMX client: %w", err)
	}

	return output, nil
}

// QueryMBean queries a specific MBean and returns its attributes
func (c *BridgeClient) QueryMBean(ctx context.Context, objectName string) (map[string]any, error) {
	output, err := c.run(ctx, "single", objectName)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JMX response: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("JMX query %s: empty value", objectName)
	}

	return result, nil
}

// QueryMBeanPattern queries multiple MBeans matching a pattern
func (c *BridgeClient) QueryMBeanPattern(ctx context.Context, pattern string) ([]map[string]any, error) {
	output, err := c.run(ctx, "pattern", pattern)
	if err != nil {
		return nil, err
	}

	var result []map[string]any
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JMX response: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("JMX query %s: empty value", pattern)
	}

	return result, nil
}
