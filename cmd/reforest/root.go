package main

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server"
	"github.com/dmitrijs2005/reforest/internal/server/config"
	"github.com/spf13/cobra"
)

// newApp is replaced in tests.
var newApp = server.NewApp

type cli struct {
	configPath string
	flags      *config.Flags
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "reforest",
		Short:        "Administer the reforest planting tracker",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath, c.flags)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "JSON config file")
	c.flags = config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		c.migrateCmd(),
		c.seedAvatarsCmd(),
		c.provisionCmd(),
		c.assignVerifierCmd(),
		c.validateCmd(),
		c.rejectCmd(),
		c.verificationsCmd(),
		c.reviewVerificationCmd(),
		c.approveVerificationCmd(),
		c.rejectVerificationCmd(),
		c.rebuildZonesCmd(),
		c.deactivateZoneCmd(),
		c.refreshImpactCmd(),
		c.leaderboardCmd(),
		c.statsCmd(),
		c.scheduleCmd(),
		c.issueTokenCmd(),
		c.checkTokenCmd(),
		c.presignPhotoCmd(),
		c.uploadPhotoCmd(),
		versionCmd(),
	)
	return root
}

// run builds the App for one command and closes it afterwards.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, app *server.App) error) error {
	ctx := cmd.Context()
	app, err := newApp(ctx, c.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
