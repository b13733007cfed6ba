package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/viant/rescache/daemon"
	"github.com/viant/rescache/query"
	"github.com/viant/rescache/resource"
	"github.com/viant/rescache/sorter"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the materialized layout of every resource type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range a.registry.SortedNames() {
				rt := a.registry.MustLookup(name)
				cols, err := a.store.Columns(cmd.Context(), rt.Table())
				if err != nil {
					return err
				}
				searchCols, err := a.store.Columns(cmd.Context(), rt.SearchTable())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n  columns: %v\n  search:  %v\n  sort:    %v\n",
					name, cols, searchCols, rt.SortableAttributes())
				state, ok, err := a.store.SyncState(cmd.Context(), name)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintf(out, "  synced:  %s (%d items, %d removed, %d fills)\n",
						state.UpdatedAt.Format(time.RFC3339), state.Items, state.Removed, state.Fills)
				}
			}
			return nil
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	var (
		scopeID   string
		recursive bool
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "sync [type...]",
		Short: "List resources from the live API and fill the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			types := splitTypes(args)
			if len(types) == 0 {
				types = a.registry.SortedNames()
			}
			r, err := a.router(false)
			if err != nil {
				return err
			}
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(workers, 1))
			for _, t := range types {
				g.Go(func() error {
					rs, err := r.QueryLive(ctx, &query.Spec{Resource: t, ScopeID: scopeID, Recursive: recursive})
					if err != nil {
						return fmt.Errorf("sync %s: %w", t, err)
					}
					log.Info().Str("resource", t).Int("items", len(rs.Results)).Msg("synced")
					return nil
				})
			}
			err = g.Wait()
			r.Wait()
			return err
		},
	}
	cmd.Flags().StringVar(&scopeID, "scope", "global", "Scope to list from")
	cmd.Flags().BoolVar(&recursive, "recursive", true, "Include child scopes")
	cmd.Flags().IntVar(&workers, "workers", 4, "Types synced in parallel")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		resourceName string
		scopeID      string
		sortBy       string
		direction    string
		offline      bool
		live         bool
		page         int
		pageSize     int
	)
	cmd := &cobra.Command{
		Use:   "search [expression]",
		Short: "Search resources with a filter expression",
		Example: `  rescache search -r target 'type:tcp name~prod'
  rescache search 'resource:user (name:alice OR name:bob)' --offline`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expr string
			if len(args) == 1 {
				expr = args[0]
			}
			opts := []query.Option{
				query.WithSort(sortBy, query.Direction(direction)),
				query.WithPage(page, pageSize),
			}
			if resourceName != "" {
				opts = append(opts, query.WithResource(resourceName))
			}
			if scopeID != "" {
				opts = append(opts, query.WithScope(scopeID, true))
			}
			spec, err := query.Build(expr, opts...)
			if err != nil {
				return err
			}

			var payloads []json.RawMessage
			if offline {
				rows, err := a.store.Fetch(cmd.Context(), spec)
				if err != nil {
					return err
				}
				for _, row := range rows {
					payloads = append(payloads, row.Data())
				}
			} else {
				r, err := a.router(!live)
				if err != nil {
					return err
				}
				rs, err := r.Query(cmd.Context(), spec)
				if err != nil {
					return err
				}
				defer r.Wait()
				if payloads, err = serialize(rs); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payloads)
		},
	}
	cmd.Flags().StringVarP(&resourceName, "resource", "r", "", "Resource type when the expression has no resource: clause")
	cmd.Flags().StringVar(&scopeID, "scope", "", "Scope id")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort attribute (default created_time)")
	cmd.Flags().StringVar(&direction, "direction", "", "asc or desc")
	cmd.Flags().BoolVar(&offline, "offline", false, "Query only the local store")
	cmd.Flags().BoolVar(&live, "live", false, "Skip the search daemon")
	cmd.Flags().IntVar(&page, "page", 0, "Page number, 1-based")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size")
	return cmd
}

func serialize(rs *sorter.ResultSet) ([]json.RawMessage, error) {
	serializers := resource.NewRegistry()
	out := make([]json.RawMessage, 0, len(rs.Results))
	for _, res := range rs.Results {
		data, err := serializers.For(res.Type).Serialize(res)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func newDaemonCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Serve cached searches from the local store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = a.cfg.Daemon.Listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return daemon.New(a.store, a.registry).ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (env: RESCACHE_DAEMON_LISTEN)")
	return cmd
}

func newInvalidateCmd(a *app) *cobra.Command {
	var ids []string
	cmd := &cobra.Command{
		Use:   "invalidate type [type...]",
		Short: "Drop cached rows of resource types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range splitTypes(args) {
				if _, ok := a.registry.Lookup(t); !ok {
					return fmt.Errorf("unknown resource type %q; known: %v", t, a.registry.SortedNames())
				}
				var err error
				if len(ids) > 0 {
					err = a.store.Delete(cmd.Context(), t, ids)
				} else {
					err = a.store.Clear(cmd.Context(), t)
				}
				if err != nil {
					return err
				}
				log.Info().Str("resource", t).Int("ids", len(ids)).Msg("invalidated")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Only drop these ids")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		scopeID string
		logout  bool
	)
	cmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Store the bearer token used for live and daemon requests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if logout {
				return a.session.Clear(cmd.Context())
			}
			if len(args) == 0 {
				return fmt.Errorf("token is required")
			}
			if err := a.session.SetToken(cmd.Context(), args[0], scopeID); err != nil {
				return err
			}
			log.Info().Str("scope_id", scopeID).Msg("signed in")
			return nil
		},
	}
	cmd.Flags().StringVar(&scopeID, "scope", "global", "Home scope id")
	cmd.Flags().BoolVar(&logout, "logout", false, "Forget the stored token")
	return cmd
}
