package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/officesearch/internal/core"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/resolve"
	"github.com/JonMunkholm/officesearch/internal/schema"
)

// session is what a command runs against.
type session struct {
	service *core.Service
	opener  core.Opener
	migrate func(ctx context.Context) (int64, error)
	close   func()
}

type sessionOptions struct {
	sourceDir   string
	migrateOnly bool
}

type sessionFunc func(ctx context.Context, opts sessionOptions) (*session, error)

func newRootCmd(open sessionFunc) *cobra.Command {
	var sourceDir string

	root := &cobra.Command{
		Use:          "officectl",
		Short:        "Manage the advice office directory",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&sourceDir, "source-dir", "", "directory or gs:// prefix holding <source>.csv files (overrides SOURCE_DIR)")

	// with opens a session for the duration of one command.
	with := func(migrateOnly bool, run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), sessionOptions{sourceDir: sourceDir, migrateOnly: migrateOnly})
			if err != nil {
				return err
			}
			defer s.close()
			err = run(cmd, args, s)
			if core.IsUserFacing(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), core.FormatUserError(err))
			}
			return err
		}
	}

	root.AddCommand(
		newMigrateCmd(with),
		newLoadPostcodesCmd(with),
		newLoadOfficesCmd(with),
		newRefreshCmd(with),
		newResolveCmd(with),
	)
	return root
}

type wrapFunc func(migrateOnly bool, run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error

func newMigrateCmd(with wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: with(true, func(cmd *cobra.Command, _ []string, s *session) error {
			version, err := s.migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		}),
	}
}

func newLoadPostcodesCmd(with wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "load-postcodes [location]",
		Short: "Replace local authorities and upsert postcodes",
		Long: `Loads the postcode directory export. The location is a file path or
gs://bucket/object; without one the configured postcode source is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: with(false, func(cmd *cobra.Command, args []string, s *session) error {
			ctx := cmd.Context()

			var (
				res *ingest.ReferenceResult
				err error
			)
			if len(args) == 1 {
				r, openErr := s.opener.OpenSource(ctx, schema.SourcePostcodes, args[0])
				if openErr != nil {
					return openErr
				}
				defer r.Close()
				res, err = s.service.LoadReference(ctx, r)
			} else {
				res, err = s.service.RefreshReference(ctx)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "postcodes: %d\nlocal authorities: %d\n", res.Postcodes, len(res.Authorities))
			fmt.Fprintf(w, "pruned: offices %d, served areas %d, postcodes %d\n",
				res.Pruned.OfficesCleared, res.Pruned.ServedAreasDeleted, res.Pruned.PostcodesDeleted)
			printDrops(w, res.Dropped)
			return nil
		}),
	}
}

func newLoadOfficesCmd(with wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "load-offices",
		Short: "Replace offices, served areas and opening times from the configured sources",
		Args:  cobra.NoArgs,
		RunE: with(false, func(cmd *cobra.Command, _ []string, s *session) error {
			res, err := s.service.RefreshOffices(cmd.Context())
			if err != nil {
				return err
			}
			printOfficeResult(cmd.OutOrStdout(), res)
			return nil
		}),
	}
}

func newRefreshCmd(with wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload reference data and offices in one run",
		Args:  cobra.NoArgs,
		RunE: with(false, func(cmd *cobra.Command, _ []string, s *session) error {
			report, err := s.service.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if report.Reference != nil {
				fmt.Fprintf(w, "postcodes: %d\n", report.Reference.Postcodes)
				printDrops(w, report.Reference.Dropped)
			}
			printOfficeResult(w, report.Offices)
			fmt.Fprintf(w, "took %s\n", report.Duration.Round(time.Millisecond))
			return nil
		}),
	}
}

func newResolveCmd(with wrapFunc) *cobra.Command {
	var opts resolve.Options

	cmd := &cobra.Command{
		Use:   "resolve <query>",
		Short: "Resolve a postcode or place name to offices, printed as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: with(false, func(cmd *cobra.Command, args []string, s *session) error {
			res, err := s.service.Resolve(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			type match struct {
				ID             string  `json:"id"`
				Name           string  `json:"name"`
				DistanceMeters float64 `json:"distance_meters,omitempty"`
			}
			out := struct {
				MatchType string  `json:"match_type"`
				Postcode  string  `json:"postcode,omitempty"`
				Offices   []match `json:"offices"`
			}{MatchType: res.Label(), Postcode: res.Postcode, Offices: []match{}}
			for _, m := range res.Offices {
				out.Offices = append(out.Offices, match{ID: m.Office.ID, Name: m.Office.Name, DistanceMeters: m.DistanceMeters})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}),
	}
	cmd.Flags().BoolVar(&opts.OnlyWithVacancies, "vacancies", false, "only offices recruiting volunteers")
	cmd.Flags().BoolVar(&opts.OnlyInServedArea, "served-area", false, "only offices serving the postcode's local authority")
	return cmd
}

func printOfficeResult(w io.Writer, res *ingest.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "offices: %d\nserved areas: %d\nopening times: %d\n", res.Offices, res.ServedAreas, res.OpeningTimes)
	printDrops(w, res.Dropped)
}

func printDrops(w io.Writer, drops ingest.Drops) {
	if len(drops) == 0 {
		return
	}
	keys := make([]string, 0, len(drops))
	for k := range drops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "dropped:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, drops[k])
	}
}
