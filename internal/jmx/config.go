package jmx

import (
	"fmt"
	"net"
	"strconv"
)

type Config struct {
	// Target configuration
	Host       string // RMI registry host
	Port       int    // RMI registry port
	JolokiaURL string // Jolokia agent base URL, takes precedence over Host/Port

	Debug bool // Log raw MBean data
}

// ServiceURL returns the standard JMX service URL for the RMI connector
func (c *Config) ServiceURL() string {
	return fmt.Sprintf("service:jmx:rmi:///jndi/rmi://%s/jmxrmi", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

func (c *Config) String() string {
	if c.JolokiaURL != "" {
		return c.JolokiaURL
	}

	if c.Host != "" {
		if c.Port != 0 {
			return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		}
		return c.Host
	}

	return "No target specified"
}
