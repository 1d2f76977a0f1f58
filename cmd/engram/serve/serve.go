// Package servecmder provides the serve command for running the HTTP API
// and MCP servers.
package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/api"
	"github.com/papercomputeco/engram/api/mcp"
	"github.com/papercomputeco/engram/cmd/engram/wiring"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
)

type ServeCommander struct {
	apiListen string
	mcpListen string
}

const serveLongDesc string = `Run Engram services.

Starts the HTTP API server and the MCP server together. Both bind the same
engine; callers serialize through it.`

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and MCP servers",
		Long:  serveLongDesc,
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

	cmd.Flags().StringVarP(&cmder.apiListen, "api-listen", "a", "", "Address for the API server (default from config)")
	cmd.Flags().StringVarP(&cmder.mcpListen, "mcp-listen", "m", ":8092", "Address for the MCP server")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, debug bool, configDir string) error {
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

	apiListen := c.apiListen
	if apiListen == "" {
		apiListen = v.GetString("api.listen")
	}

	apiServer := api.NewServer(api.Config{ListenAddr: apiListen}, rt.Engine, log)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Engine:         rt.Engine,
		TopK:           v.GetInt("consolidate.top_k"),
		KeepTopN:       v.GetInt("consolidate.keep_top_n"),
		ScoreThreshold: v.GetFloat64("consolidate.score_threshold"),
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	mcpHTTP := &http.Server{
		Addr:    c.mcpListen,
		Handler: mcpServer.Handler(),
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info("starting MCP server", "listen", c.mcpListen)
		if err := mcpHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("mcp server: %w", err)
		}
	}()

	go func() {
		if err := apiServer.Run(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	if err := apiServer.Shutdown(); err != nil {
		log.Warn("api shutdown failed", "error", err)
	}
	if err := mcpHTTP.Shutdown(context.Background()); err != nil {
		log.Warn("mcp shutdown failed", "error", err)
	}

	return nil
}
