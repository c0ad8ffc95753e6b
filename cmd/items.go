package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"d2sync/entity"
	"d2sync/store"
)

func newItemsCmd(load loader) *cobra.Command {
	var (
		pid        int
		minQuality int
		limit      int
		asJSON     bool
	)
	c := &cobra.Command{
		Use:   "items",
		Short: "List logged items from the item store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("store.path is not set")
			}
			defer st.Close()

			entries, err := st.Entries(cmd.Context(), store.Query{
				ProcessID:  pid,
				MinQuality: entity.ItemQuality(minQuality),
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tPID\tITEM\tQUALITY\tPLACEMENT\tAREA\tDIFFICULTY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%d\t%s\n",
					e.Time.Local().Format("2006-01-02 15:04:05"), e.ProcessID, e.TxtFileNo, e.Quality, e.Placement, e.Area, e.Difficulty)
			}
			return w.Flush()
		},
	}
	c.Flags().IntVar(&pid, "pid", 0, "only items logged by this process")
	c.Flags().IntVar(&minQuality, "min-quality", 0, "minimum item quality (4 magic, 6 rare, 7 unique)")
	c.Flags().IntVar(&limit, "limit", 0, "maximum number of entries")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return c
}
