// Command bindbtool inspects BinDB tables: record counts, raw record dumps,
// and prefix lookups. A development aid, not part of the core engine.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kryptco/steg/bindb"
)

var tablesDir string

func main() {
	root := &cobra.Command{
		Use:   "bindbtool",
		Short: "Inspect BinDB n-gram table files",
	}
	root.PersistentFlags().StringVar(&tablesDir, "tables", ".", "bindb tables directory")

	root.AddCommand(sizeCommand())
	root.AddCommand(dumpCommand())
	root.AddCommand(lookupCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(nMax int) *bindb.Store {
	store, err := bindb.Open(tablesDir, nMax)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return store
}

func sizeCommand() *cobra.Command {
	var nMax int
	cmd := &cobra.Command{
		Use:   "size",
		Short: "Print the record count of each table order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore(nMax)
			defer store.Close()
			for n := 1; n <= nMax; n++ {
				t, err := store.Table(n)
				if err != nil {
					return err
				}
				fmt.Printf("%dgram: %d records\n", n, t.Size())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&nMax, "n-max", 3, "maximum n-gram order")
	return cmd
}

func dumpCommand() *cobra.Command {
	var order int
	var start, count int64
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump count consecutive records of the order-n table starting at rank start",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore(order)
			defer store.Close()
			lines, err := store.Iterate(order, start, count, false)
			if err != nil {
				return err
			}
			for i, line := range lines {
				fmt.Printf("%d\t%s\t%d\n", start+int64(i), formatIDs(line.IDs), line.Count)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&order, "order", 1, "n-gram order")
	cmd.Flags().Int64Var(&start, "start", 1, "starting rank (1-based)")
	cmd.Flags().Int64Var(&count, "count", 20, "number of records")
	return cmd
}

func lookupCommand() *cobra.Command {
	var order int
	cmd := &cobra.Command{
		Use:   "lookup <id> [id...]",
		Short: "Range-search an order-n table for a token ID prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order = len(args) + 1
			store := openStore(order)
			defer store.Close()

			prefix := make([]int32, len(args))
			for i, a := range args {
				id, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("bad token id %q: %w", a, err)
				}
				prefix[i] = int32(id)
			}
			lo, hi, found, err := store.RangeSearch(order, prefix)
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("no rows")
				return nil
			}
			fmt.Printf("ranks %d..%d\n", lo, hi)
			return nil
		},
	}
	return cmd
}

func formatIDs(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}
