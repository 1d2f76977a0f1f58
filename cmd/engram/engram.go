// Package engramcmder
package engramcmder

import (
	addcmder "github.com/papercomputeco/engram/cmd/engram/add"
	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	consolidatecmder "github.com/papercomputeco/engram/cmd/engram/consolidate"
	searchcmder "github.com/papercomputeco/engram/cmd/engram/search"
	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
	statscmder "github.com/papercomputeco/engram/cmd/engram/stats"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
	"github.com/spf13/cobra"
)

const engramLongDesc string = `Engram is durable long-term memory for conversational agents.

Ingest dialog turns, distill them into facts, and query them back:
  engram add          Ingest dialog turns from a JSON file
  engram search       Query memories by semantic similarity
  engram consolidate  Merge, rewrite, or delete evolved facts
  engram serve        Run the HTTP API and MCP servers`

const engramShortDesc string = "Engram - Agent Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .engram/ directory")

	// Add subcommands
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(consolidatecmder.NewConsolidateCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
