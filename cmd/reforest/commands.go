package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dmitrijs2005/reforest/internal/buildinfo"
	"github.com/dmitrijs2005/reforest/internal/netx"
	"github.com/dmitrijs2005/reforest/internal/server"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/dmitrijs2005/reforest/internal/server/photos"
	"github.com/dmitrijs2005/reforest/internal/server/services"
	"github.com/spf13/cobra"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				return app.Migrate(ctx)
			})
		},
	}
}

func (c *cli) seedAvatarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-avatars",
		Short: "Create the default avatar for every level that has none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				n, err := app.Profiles.SeedAvatars(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d avatars\n", n)
				return nil
			})
		},
	}
}

func (c *cli) provisionCmd() *cobra.Command {
	var staff bool
	cmd := &cobra.Command{
		Use:   "provision <user-id>",
		Short: "Create the profile of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				p, created, err := app.Profiles.ProvisionProfile(ctx, args[0], staff)
				if err != nil {
					return err
				}
				state := "exists"
				if created {
					state = "created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s level=%d role=%s\n", state, p.UserID, p.Level, p.Role)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&staff, "staff", false, "mark the account as staff")
	return cmd
}

func (c *cli) assignVerifierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-verifier <user-id>",
		Short: "Grant the verifier role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				change, p, err := app.Profiles.AssignVerifier(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", change, p.UserID)
				return nil
			})
		},
	}
}

func (c *cli) validateCmd() *cobra.Command {
	var admin string
	cmd := &cobra.Command{
		Use:   "validate <planting-id>...",
		Short: "Validate plantings and credit their submitters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				return printBatch(cmd, "validated", app.Verification.ValidateMany(ctx, args, admin))
			})
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "id of the acting admin")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func (c *cli) rejectCmd() *cobra.Command {
	var admin, notes string
	cmd := &cobra.Command{
		Use:   "reject <planting-id>...",
		Short: "Reject plantings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				return printBatch(cmd, "rejected", app.Verification.RejectMany(ctx, args, admin, notes))
			})
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "id of the acting admin")
	cmd.Flags().StringVar(&notes, "notes", "", "rejection notes")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func printBatch(cmd *cobra.Command, verb string, r *services.BatchResult) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d, failed %d\n", verb, r.Succeeded, r.Failed)

	ids := make([]string, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  %s: %v\n", id, r.Errors[id])
	}
	if r.Failed > 0 {
		return fmt.Errorf("%d of %d failed", r.Failed, r.Failed+r.Succeeded)
	}
	return nil
}

func (c *cli) verificationsCmd() *cobra.Command {
	var state, verifier string
	cmd := &cobra.Command{
		Use:   "verifications",
		Short: "List verifications, or one verifier's history with --verifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				var list []*models.Verification
				var counts services.VerificationCounts
				if verifier != "" {
					h, err := app.Verification.VerifierHistory(ctx, verifier)
					if err != nil {
						return err
					}
					list, counts = h.Verifications, h.Counts
				} else {
					q, err := app.Verification.ListVerifications(ctx, models.VerificationState(state))
					if err != nil {
						return err
					}
					list, counts = q.Verifications, q.Counts
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "pending %d, approved %d, rejected %d\n", counts.Pending, counts.Approved, counts.Rejected)
				for _, v := range list {
					fmt.Fprintf(out, "%s  %-8s planting=%s verifier=%s points=%d submitted=%s\n",
						v.ID, v.State, v.PlantingID, v.VerifierID, v.PointsAwarded, v.SubmittedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "pending, approved or rejected")
	cmd.Flags().StringVar(&verifier, "verifier", "", "show this verifier's history")
	cmd.MarkFlagsMutuallyExclusive("state", "verifier")
	return cmd
}

func (c *cli) reviewVerificationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review-verification <verification-id>",
		Short: "Show the distance and points a verification would get",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				pv, err := app.Verification.PreviewVerification(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				v := pv.Verification
				fmt.Fprintf(out, "%s (%s) for planting %s by %s\n", v.ID, v.State, pv.Planting.ID, v.VerifierID)
				fmt.Fprintf(out, "distance %.2f m, location photo %t, points %d\n",
					pv.DistanceMeters, v.LocationPhotoKey != "", pv.Points)
				for _, o := range pv.Siblings {
					fmt.Fprintf(out, "  also: %s %s by %s\n", o.ID, o.State, o.VerifierID)
				}
				return nil
			})
		},
	}
}

func (c *cli) approveVerificationCmd() *cobra.Command {
	var reviewer string
	cmd := &cobra.Command{
		Use:   "approve-verification <verification-id>",
		Short: "Approve a verification and credit the verifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				res, err := app.Verification.ApproveVerification(ctx, args[0], reviewer)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "approved %s: %d points at %.2f m\n", res.Verification.ID, res.Points, res.DistanceMeters)
				if res.LeveledUp {
					fmt.Fprintln(out, "verifier leveled up")
				}
				if res.UnlockedVerification {
					fmt.Fprintln(out, "verifier can now verify plantings")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "id of the acting admin")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func (c *cli) rejectVerificationCmd() *cobra.Command {
	var reviewer, reason string
	cmd := &cobra.Command{
		Use:   "reject-verification <verification-id>",
		Short: "Reject a verification and return the planting to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				if err := app.Verification.RejectVerification(ctx, args[0], reviewer, reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "id of the acting admin")
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func (c *cli) rebuildZonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-zones",
		Short: "Regroup all validated plantings into zones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				r, err := app.Clusterer.RebuildAll(ctx, c.cfg.ZoneSearchRadiusKm, c.cfg.ZoneMinMembers)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "plantings=%d groups=%d qualifying=%d created=%d refreshed=%d failed=%d\n",
					r.Plantings, r.Groups, r.Qualifying, r.Created, r.Refreshed, r.Failed)
				for _, err := range r.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", err)
				}
				return nil
			})
		},
	}
}

func (c *cli) deactivateZoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate-zone <zone-id>",
		Short: "Hide a zone from the map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				return app.Clusterer.Deactivate(ctx, args[0])
			})
		},
	}
}

func (c *cli) refreshImpactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-impact",
		Short: "Recompute the environmental impact of validated plantings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				r, err := app.Impact.RefreshAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d of %d, skipped %d, failed %d\n",
					r.Updated, r.Total, r.Skipped, r.Failed)
				fmt.Fprintf(cmd.OutOrStdout(), "oxygen %.2f kg/year, co2 %.2f kg/year, %.2f cars\n",
					r.OxygenKgYear, r.CO2KgYear, r.CarEquivalents)
				return nil
			})
		},
	}
}

func (c *cli) leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top non-staff profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				top, err := app.Profiles.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range top {
					fmt.Fprintf(cmd.OutOrStdout(), "%3d. %s  %d pts  level %d\n",
						r.Position, r.Profile.UserID, r.Profile.Points, r.Profile.Level)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of profiles")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <user-id>",
		Short: "Show a profile's progress and impact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				st, err := app.Profiles.Stats(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				p := st.Profile
				fmt.Fprintf(out, "%s: level %d, %d pts, role %s\n", p.UserID, p.Level, p.Points, p.Role)
				if st.MaxLevel {
					fmt.Fprintln(out, "max level reached")
				} else {
					fmt.Fprintf(out, "progress %.0f%% to %d pts\n", st.Progress, st.NextThreshold)
				}

				rank, ranked, err := app.Profiles.RankOf(ctx, p.UserID)
				if err != nil {
					return err
				}
				if ranked {
					fmt.Fprintf(out, "rank #%d\n", rank)
				}

				pl := st.Plantings
				fmt.Fprintf(out, "plantings %d: pending %d, in verification %d, validated %d, rejected %d\n",
					pl.Total, pl.Pending, pl.InVerification, pl.Validated, pl.Rejected)
				fmt.Fprintf(out, "oxygen %.2f kg/year, co2 %.2f kg/year\n", st.OxygenKgYear, st.CO2KgYear)
				for _, sp := range st.Species {
					fmt.Fprintf(out, "  %-20s %3d trees, oxygen %.2f kg/year\n", sp.Species, sp.Count, sp.OxygenKgYear)
				}
				if v := st.Verifications; v != nil {
					fmt.Fprintf(out, "verifications %d, approved %d (%.0f%%), %d pts\n",
						v.Performed, v.Approved, v.ApprovalRate, v.Points)
				}
				return nil
			})
		},
	}
}

func (c *cli) scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the periodic impact refresh and zone rebuild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				return app.Schedule(ctx)
			})
		},
	}
}

func (c *cli) issueTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue-token <user-id>",
		Short: "Sign a capability token for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				tok, err := app.IssueToken(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	}
}

func (c *cli) checkTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-token <token>",
		Short: "Verify a capability token and report whether it grants verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				p, ok, err := app.CheckToken(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s role=%s level=%d staff=%t can verify: %t\n",
					p.UserID, p.Role, p.Level, p.Staff, ok)
				return nil
			})
		},
	}
}

func (c *cli) presignPhotoCmd() *cobra.Command {
	var kind, key string
	cmd := &cobra.Command{
		Use:   "presign-photo",
		Short: "Print a presigned upload URL, or a download URL with --key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				if key != "" {
					url, err := app.Photos.PresignDownload(ctx, key)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), url)
					return nil
				}
				up, err := app.Photos.PresignUpload(ctx, photos.Kind(kind))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "key: %s\nurl: %s\nexpires: %s\n",
					up.Key, up.URL, up.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(photos.KindPlanting), "photo kind for uploads")
	cmd.Flags().StringVar(&key, "key", "", "object key to download")
	cmd.MarkFlagsMutuallyExclusive("kind", "key")
	return cmd
}

func (c *cli) uploadPhotoCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "upload-photo <file>",
		Short: "Upload a photo through a presigned URL and print its key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, app *server.App) error {
				up, err := app.Photos.PresignUpload(ctx, photos.Kind(kind))
				if err != nil {
					return err
				}
				ct := mime.TypeByExtension(filepath.Ext(args[0]))
				if err := netx.PutPresigned(ctx, up.URL, data, ct); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), up.Key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(photos.KindPlanting), "photo kind")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Skips config loading on the root.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}
