package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mabhi256/munin-jmx/internal/jmx"
	"github.com/mabhi256/munin-jmx/utils"
)

var poolsCmd = &cobra.Command{
	Use:   "pools IDENTIFIER",
	Short: "List the memory pools of a JVM",
	Long: `List every memory pool of the target JVM with its current usage.
The Name column is what --pool expects.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect(&opts, args[0])
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()

		pools, err := jmx.ListMemoryPools(ctx, client)
		if err != nil {
			return err
		}
		if len(pools) == 0 {
			return fmt.Errorf("no memory pools reported by %s", args[0])
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderPools(pools))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(poolsCmd)
}

// usedPctCol is the column coloured by how full the pool is
const usedPctCol = 6

func renderPools(pools []jmx.MemoryPool) string {
	rows := make([][]string, 0, len(pools))
	ratios := make([]float64, 0, len(pools))

	for _, pool := range pools {
		used := utils.MemorySize(pool.Usage.Used)
		ratio := used.Ratio(utils.MemorySize(pool.Usage.Max))
		ratios = append(ratios, ratio)

		usedPct := "-"
		if pool.Usage.Max > 0 {
			usedPct = fmt.Sprintf("%.1f%%", ratio*100)
		}

		name := pool.Name
		if !pool.Valid {
			name += " (invalid)"
		}

		rows = append(rows, []string{
			name,
			pool.Type,
			used.String(),
			utils.MemorySize(pool.PeakUsage.Used).String(),
			utils.MemorySize(pool.Usage.Committed).String(),
			utils.MemorySize(pool.Usage.Max).String(),
			usedPct,
			formatThreshold(pool.Threshold),
			strings.Join(pool.Managers, ", "),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(utils.BorderColor)).
		Headers("Name", "Type", "Used", "Peak", "Committed", "Max", "Used %", "Threshold", "Managers").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return utils.HeaderStyle
			}
			if col == usedPctCol && row >= 0 && row < len(ratios) {
				return utils.UsageStyle(ratios[row]).Padding(0, 1)
			}
			return utils.CellStyle
		})

	return t.Render()
}

func formatThreshold(info jmx.ThresholdInfo) string {
	if !info.Supported {
		return "-"
	}
	s := utils.MemorySize(info.Threshold).String()
	if info.Exceeded {
		s += fmt.Sprintf(" (exceeded %dx)", info.Count)
	}
	return s
}
