// Package statscmder provides the stats command.
package statscmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/wiring"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
)

type StatsCommander struct{}

func NewStatsCmd() *cobra.Command {
	cmder := &StatsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored fact count and token counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			configDir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}
			return cmder.run(cmd.Context(), debug, configDir)
		},
	}

	return cmd
}

func (c *StatsCommander) run(ctx context.Context, debug bool, configDir string) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	v, err := config.InitViper(configDir)
	if err != nil {
		return err
	}

	rt, err := wiring.NewRuntime(ctx, v, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	count, err := rt.Engine.Count(ctx)
	if err != nil {
		return err
	}

	tokens, err := json.MarshalIndent(rt.Engine.TokenStatistics(), "", "  ")
	if err != nil {
		return err
	}

	fmt.Printf("Facts: %d\nTokens: %s\n", count, tokens)

	return nil
}
