// Package consolidatecmder provides the consolidate command for running the
// offline two-phase consolidation procedure.
package consolidatecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/wiring"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
)

type ConsolidateCommander struct {
	topK           int
	keepTopN       int
	scoreThreshold float64
	queuesOnly     bool
}

const consolidateLongDesc string = `Run offline consolidation.

Phase 1 builds a per-fact candidate queue from older, similar facts.
Phase 2 asks the LLM to merge, rewrite, or delete each fact whose queue
holds candidates at or above the score threshold. Pass --queues-only to
stop after phase 1.`

func NewConsolidateCmd() *cobra.Command {
	cmder := &ConsolidateCommander{}

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge, rewrite, or delete evolved facts",
		Long:  consolidateLongDesc,
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

	cmd.Flags().IntVar(&cmder.topK, "top-k", 0, "Phase-1 candidate search width (default from config)")
	cmd.Flags().IntVar(&cmder.keepTopN, "keep-top-n", 0, "Phase-1 queue length cap (default from config)")
	cmd.Flags().Float64Var(&cmder.scoreThreshold, "score-threshold", 0, "Phase-2 similarity threshold (default from config)")
	cmd.Flags().BoolVar(&cmder.queuesOnly, "queues-only", false, "Stop after phase 1")

	return cmd
}

func (c *ConsolidateCommander) run(ctx context.Context, debug bool, configDir string) error {
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

	topK := c.topK
	if topK <= 0 {
		topK = v.GetInt("consolidate.top_k")
	}
	keepTopN := c.keepTopN
	if keepTopN <= 0 {
		keepTopN = v.GetInt("consolidate.keep_top_n")
	}
	threshold := c.scoreThreshold
	if threshold <= 0 {
		threshold = v.GetFloat64("consolidate.score_threshold")
	}

	if err := rt.Engine.ConstructUpdateQueueAllEntries(ctx, topK, keepTopN); err != nil {
		return err
	}

	if c.queuesOnly {
		fmt.Println("Update queues constructed")
		return nil
	}

	result, err := rt.Engine.OfflineUpdateAllEntries(ctx, threshold)
	if err != nil {
		return err
	}

	fmt.Printf("Visited %d, updated %d, deleted %d, ignored %d, failed %d\n",
		result.Visited, result.Updated, result.Deleted, result.Ignored, result.Failed)

	return nil
}
