package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gksapp/gks/internal/catalog"
	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/playback"
	"github.com/gksapp/gks/internal/quiz"
	"github.com/gksapp/gks/internal/search"
)

const listTimeout = 30 * time.Second

func newSongsCommand(ctx *commandContext) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "songs",
		Short: "List songs from the live catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, closeCollections, err := ctx.openCollections()
			if err != nil {
				return err
			}
			defer closeCollections()

			runCtx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			player := playback.NewController(collections, nil, ctx.log())
			defer player.Close()
			sub, err := player.SubscribeCatalog(runCtx, nil)
			if err != nil {
				return err
			}
			tracks := sub.Snapshot()
			sub.Unsubscribe()

			tracks = playback.Filter(tracks, filter)
			rows := make([][]string, 0, len(tracks))
			for _, t := range tracks {
				rows = append(rows, []string{t.DisplayTitle(), t.Artist, yesNo(t.MediaURL != "")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Title", "Artist", "Audio"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only songs whose title contains this text")
	return cmd
}

func newHymnsCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "hymns [query]",
		Short: "List or search the bundled TSP hymns and psalms",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kind, err := domain.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			items, err := svc.Load(kind)
			if err != nil {
				return err
			}

			var query string
			if len(args) == 1 {
				query = args[0]
			}
			matched := filterCatalog(items, query, search.ParseMode(cfg.Search.Mode))

			out := cmd.OutOrStdout()
			if len(matched) == 0 && strings.TrimSpace(query) != "" {
				fmt.Fprintf(out, "No %s matches for %q\n", kind.Label(), query)
				if hints := search.Suggest(query, search.CatalogTitles(items), 3); len(hints) > 0 {
					fmt.Fprintf(out, "Did you mean: %s\n", strings.Join(hints, ", "))
				}
				return nil
			}

			rows := make([][]string, 0, len(matched))
			for _, it := range matched {
				rows = append(rows, []string{it.Number, it.Title, it.Meter, it.UniqueID})
			}
			fmt.Fprintln(out, renderTable([]string{"No.", "Title", "Meter", "ID"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", string(domain.KindTSP), "Catalog kind: tsp or psalm")
	return cmd
}

func filterCatalog(items []domain.CatalogItem, query string, mode search.Mode) []domain.CatalogItem {
	if mode == search.ModeFuzzy && strings.TrimSpace(query) != "" {
		return search.Select(items, search.Rank(query, search.CatalogTitles(items)))
	}
	return catalog.Filter(items, query)
}

func newQuizCommand(ctx *commandContext) *cobra.Command {
	var year string
	var pages int

	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Page through quiz questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter, err := quiz.ParseYearFilter(year)
			if err != nil {
				return err
			}
			collections, closeCollections, err := ctx.openCollections()
			if err != nil {
				return err
			}
			defer closeCollections()

			runCtx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			cursor := quiz.NewCursor(collections, cfg.Quiz.PageSize, ctx.log())
			if err := cursor.Reset(runCtx, filter); err != nil {
				return err
			}
			for i := 1; i < pages && !cursor.State().Exhausted; i++ {
				if err := cursor.FetchPage(runCtx); err != nil {
					return err
				}
			}

			state := cursor.State()
			rows := make([][]string, 0, len(state.Items))
			for _, q := range state.Items {
				rows = append(rows, []string{strconv.Itoa(q.Year), q.Content})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Year", "Question"}, rows, []columnAlignment{alignRight}))
			if state.Exhausted {
				fmt.Fprintf(out, "%d questions (end)\n", len(state.Items))
			} else {
				fmt.Fprintf(out, "%d questions (more with --pages %d)\n", len(state.Items), pages+1)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&year, "year", "y", quiz.AllYears, "Only questions from this year")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "Number of pages to fetch")

	cmd.AddCommand(newQuizYearsCommand(ctx))
	return cmd
}

func newQuizYearsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List the years that have quiz questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, closeCollections, err := ctx.openCollections()
			if err != nil {
				return err
			}
			defer closeCollections()

			runCtx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			years, err := quiz.FetchDistinctValues(runCtx, collections, quiz.OrderField, ctx.log())
			if err != nil {
				return err
			}
			for _, y := range quiz.YearOptions(years) {
				fmt.Fprintln(cmd.OutOrStdout(), y)
			}
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
