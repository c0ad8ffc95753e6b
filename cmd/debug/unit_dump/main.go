// unit_dump prints every unit in the hash tables of a running game client,
// one line per unit, with the decoder's view of it. Useful when checking an
// offsets file against a new game build.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"d2sync/config"
	"d2sync/entity"
	"d2sync/memory"
	"d2sync/process"
	"d2sync/walker"
)

func main() {
	if err := newDumpCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newDumpCmd() *cobra.Command {
	var (
		processName string
		moduleName  string
		offsetsFile string
		pid         uint32
		kinds       []string
	)
	c := &cobra.Command{
		Use:          "unit_dump",
		Short:        "Dump the unit hash tables of a game client",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			offsets, err := config.LoadOffsets(offsetsFile)
			if err != nil {
				return err
			}
			if pid == 0 {
				if pid, err = process.FindProcess(processName); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[OK] Found %s PID: %d\n", processName, pid)

			target, err := process.Attach(pid, moduleName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[OK] %s base: 0x%X\n", moduleName, target.Base())

			scope, err := target.Open()
			if err != nil {
				return err
			}
			defer scope.Close()

			selected, err := parseKinds(kinds)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tADDRESS\tID\tTXT\tMODE\tX\tY\tVALID\tKEY")
			for _, kind := range selected {
				dump(w, scope, &offsets, kind, false)
				if kind == entity.KindMissile {
					dump(w, scope, &offsets, kind, true)
				}
			}
			return w.Flush()
		},
	}
	c.Flags().StringVar(&processName, "process", "D2R.exe", "game executable name")
	c.Flags().StringVar(&moduleName, "module", "D2R.exe", "game module name")
	c.Flags().StringVar(&offsetsFile, "offsets", "offsets.toml", "offsets file")
	c.Flags().Uint32Var(&pid, "pid", 0, "process id (default: first process named --process)")
	c.Flags().StringSliceVar(&kinds, "kind", []string{"player", "monster", "object", "missile", "item"}, "unit tables to dump")
	return c
}

func parseKinds(names []string) ([]entity.Kind, error) {
	var out []entity.Kind
	for _, name := range names {
		found := false
		for k := entity.KindPlayer; k <= entity.KindItem; k++ {
			if k.String() == name {
				out = append(out, k)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown unit kind %q", name)
		}
	}
	return out, nil
}

func dump(w *tabwriter.Writer, s memory.Scope, o *config.Offsets, kind entity.Kind, server bool) {
	l := &o.Layout
	table := s.Base() + uintptr(o.UnitHashTable)
	name := kind.String()
	if server {
		table += uintptr(o.ServerTableOffset)
		name += "/server"
	}
	table += uintptr(kind) * uintptr(l.Buckets) * 8

	res := walker.Walk(s, table, walker.Options{Buckets: l.Buckets, MaxChain: l.MaxChain, NextOffset: l.Unit.Next})
	if res.Err != nil {
		fmt.Fprintf(w, "%s\t0x%X\t-\t-\t-\t-\t-\t-\t%v\n", name, table, res.Err)
	}
	for _, addr := range res.Addresses {
		u, err := entity.Decode(s, l, addr, kind)
		if err != nil {
			fmt.Fprintf(w, "%s\t0x%X\t-\t-\t-\t-\t-\tno\t%v\n", name, addr, err)
			continue
		}
		h := u.Head()
		fmt.Fprintf(w, "%s\t0x%X\t%d\t%d\t%d\t%.1f\t%.1f\t%t\t%s\n",
			name, addr, h.UnitID, h.TxtFileNo, h.Mode, h.Position.X, h.Position.Y, h.Valid, u.HashString())
	}
	if res.Corrupt > 0 {
		fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t-\t-\t%d corrupt chains dropped\n", name, res.Corrupt)
	}
}
