// Package searchcmder provides the search command for querying memories.
package searchcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/wiring"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/store"
)

type SearchCommander struct {
	topK     int
	speaker  string
	category string
	after    float64
	before   float64
}

func NewSearchCmd() *cobra.Command {
	cmder := &SearchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query memories by semantic similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			configDir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}
			return cmder.run(cmd.Context(), args[0], debug, configDir)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 5, "Number of results to return")
	cmd.Flags().StringVar(&cmder.speaker, "speaker", "", "Only facts from this speaker id")
	cmd.Flags().StringVar(&cmder.category, "category", "", "Only facts with this category tag")
	cmd.Flags().Float64Var(&cmder.after, "after", 0, "Only facts at or after this epoch-seconds timestamp")
	cmd.Flags().Float64Var(&cmder.before, "before", 0, "Only facts at or before this epoch-seconds timestamp")

	return cmd
}

func (c *SearchCommander) run(ctx context.Context, query string, debug bool, configDir string) error {
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

	filters := store.Filters{}
	if c.speaker != "" {
		filters.SpeakerID = &c.speaker
	}
	if c.category != "" {
		filters.Category = &c.category
	}
	if c.after > 0 || c.before > 0 {
		r := &store.RangeFilter{}
		if c.after > 0 {
			r.GTE = &c.after
		}
		if c.before > 0 {
			r.LTE = &c.before
		}
		filters.FloatTimeStamp = r
	}

	formatted, err := rt.Engine.Retrieve(ctx, query, c.topK, filters)
	if err != nil {
		return err
	}

	if formatted == "" {
		fmt.Println("No memories found")
		return nil
	}

	fmt.Print(formatted)

	return nil
}
