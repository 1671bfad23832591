package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"netgof/adapters/api"
	"netgof/internal/config"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve expected CFs and goodness-of-fit tests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(cfg.Server.GinMode)
			return api.NewServer(newService(), cfg.Test).Start(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", cfg.Server.Addr, "listen address")
	return cmd
}
