package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gksapp/gks/internal/domain"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load documents into the local store",
		Long: `Load a JSON file of the form {"<collection>": [{...}, ...]} into the
local store. An "id" field becomes the document ID; documents without
one get a generated ID.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			batches, err := parseSeed(data)
			if err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var mu sync.Mutex
			written := make(map[string]int, len(batches))

			g, _ := errgroup.WithContext(cmd.Context())
			for name, docs := range batches {
				name, docs := name, docs
				g.Go(func() error {
					if replace {
						if err := st.DropCollection(name); err != nil {
							return fmt.Errorf("drop %s: %w", name, err)
						}
					}
					saved, err := st.PutMany(name, docs)
					if err != nil {
						return fmt.Errorf("seed %s: %w", name, err)
					}
					mu.Lock()
					written[name] = len(saved)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			totals, err := st.Collections()
			if err != nil {
				return fmt.Errorf("count collections: %w", err)
			}
			names := make([]string, 0, len(written))
			for name := range written {
				names = append(names, name)
			}
			slices.Sort(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, strconv.Itoa(written[name]), strconv.Itoa(totals[name])})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Collection", "Written", "Total"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop each collection before loading it")
	return cmd
}

func parseSeed(data []byte) (map[string][]domain.Document, error) {
	var raw map[string][]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	out := make(map[string][]domain.Document, len(raw))
	for name, records := range raw {
		if name == "" {
			return nil, fmt.Errorf("parse seed file: empty collection name")
		}
		docs := make([]domain.Document, 0, len(records))
		for _, rec := range records {
			doc := domain.Document{Fields: rec}
			if id, ok := rec["id"]; ok {
				doc.ID = domain.FormatValue(id)
				delete(rec, "id")
			}
			docs = append(docs, doc)
		}
		out[name] = docs
	}
	return out, nil
}
