package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mabhi256/munin-jmx/internal/conf"
	"github.com/mabhi256/munin-jmx/internal/jmx"
	"github.com/mabhi256/munin-jmx/internal/log"
	"github.com/mabhi256/munin-jmx/internal/munin"
)

const configMode = "config"

// Replaced in tests
var dialJMX = jmx.Dial

type options struct {
	pool       string
	configFile string
	timeout    time.Duration
	debug      bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "usage_permgen [config|IDENTIFIER]",
	Short: "Munin plugin reporting JVM memory pool usage over JMX",
	Long: `usage_permgen reads the usage of a JVM memory pool over JMX and prints it
in the Munin plugin format.

  usage_permgen config         # graph configuration for Munin
  usage_permgen tomcat1        # values for the connection named tomcat1
  usage_permgen 10.0.0.5:9010  # values for an RMI registry at host:port

Connections are read from munin-jmx.yaml in /etc/munin/jmx, the user config
directory or the working directory, or from the file named by --config or
` + conf.ConfigEnvVar + `.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(cmd.ErrOrStderr())
		if opts.debug {
			log.SetDebugMode()
		}
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if args[0] == configMode {
			return munin.UsageGraph.WriteConfig(out)
		}

		// Munin only reads stdout, so failures are reported there
		if err := fetch(cmd.Context(), &opts, args[0], out); err != nil {
			log.Error().Err(err).Str("identifier", args[0]).Msg("fetch failed")
			fmt.Fprintln(out, err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.pool, "pool", "p", "", "Memory pool name (default: the permanent generation, or Metaspace)")
	flags.StringVarP(&opts.configFile, "config", "c", "", "Connection file (default: search munin-jmx.yaml)")
	flags.DurationVarP(&opts.timeout, "timeout", "t", 10*time.Second, "Give up on the JVM after this long")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging on stderr")
}

// connect resolves identifier and opens a client for it
func connect(opts *options, identifier string) (jmx.Querier, error) {
	reader, err := conf.NewReader(opts.configFile)
	if err != nil {
		return nil, err
	}

	target, err := reader.Lookup(identifier)
	if err != nil {
		return nil, err
	}
	target.Debug = opts.debug

	log.Debug().
		Str("identifier", identifier).
		Str("target", target.String()).
		Str("config_file", reader.ConfigFile()).
		Msg("resolved connection")

	client, err := dialJMX(target)
	if err != nil {
		return nil, fmt.Errorf("failed to create JMX client for %s: %w", target.String(), err)
	}

	return client, nil
}

func fetch(ctx context.Context, opts *options, identifier string, out io.Writer) error {
	client, err := connect(opts, identifier)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	var pool jmx.MemoryPool
	if opts.pool != "" {
		pool, err = jmx.ReadMemoryPool(ctx, client, opts.pool)
	} else {
		pool, err = jmx.ResolvePool(ctx, client, jmx.PermGenPools)
	}
	if err != nil {
		return err
	}

	if !pool.Valid {
		log.Warn().Str("pool", pool.Name).Msg("memory pool is no longer valid")
	}

	log.Debug().
		Str("pool", pool.Name).
		Int64("used", pool.Usage.Used).
		Int64("committed", pool.Usage.Committed).
		Msg("memory pool read")

	return munin.WriteValues(out, munin.UsageValues(pool))
}
