// Package addcmder provides the add command for ingesting dialog turns.
package addcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/wiring"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/logger"
)

type AddCommander struct {
	file  string
	force bool
}

const addLongDesc string = `Ingest dialog turns into memory.

The input file is a JSON array of messages:
  [{"role": "user", "content": "...", "timeStamp": "2024/01/15 (Mon) 10:00"}, ...]

Messages are buffered until an extraction trigger fires; pass --force to
extract immediately.`

func NewAddCmd() *cobra.Command {
	cmder := &AddCommander{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Ingest dialog turns into memory",
		Long:  addLongDesc,
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

	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Path to the JSON messages file (required)")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Extract immediately instead of waiting for the buffer trigger")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (c *AddCommander) run(ctx context.Context, debug bool, configDir string) error {
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

	data, err := os.ReadFile(c.file)
	if err != nil {
		return fmt.Errorf("reading messages file: %w", err)
	}

	var messages []engine.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("parsing messages file: %w", err)
	}

	result, err := rt.Engine.AddMemory(ctx, messages, engine.AddOptions{ForceExtract: c.force})
	if err != nil {
		return err
	}

	if result.Extracted {
		fmt.Printf("Extracted %d facts from %d messages\n", result.FactsCreated, len(messages))
	} else {
		fmt.Printf("Buffered %d messages (no trigger fired)\n", result.Buffered)
	}

	return nil
}
