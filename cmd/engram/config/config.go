// Package configcmder provides the config command for managing persistent
// engram configuration stored in the .engram/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent engram configuration.

Configuration is stored as config.toml in the .engram/ directory and
provides default values for command flags. CLI flags and ENGRAM_-prefixed
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  store.provider, store.sqlite_path, store.postgres_url,
  llm.api_key, llm.base_url, llm.model, llm.max_tokens,
  embedding.api_key, embedding.base_url, embedding.model, embedding.dimensions,
  memory.messages_use, memory.retrieve_strategy, memory.update,
  consolidate.top_k, consolidate.keep_top_n, consolidate.score_threshold,
  events.provider, events.brokers, events.topic,
  api.listen

Use subcommands to get, set, or list configuration values:
  engram config set <key> <value>    Set a configuration value
  engram config get <key>            Get a configuration value
  engram config list                 List all configuration values

Examples:
  engram config set llm.model gpt-4o-mini
  engram config set embedding.dimensions 768
  engram config get memory.messages_use
  engram config list`

const configShortDesc string = "Manage persistent engram configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
