package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}
	st, err := openStore(cfg, silentLogger())
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := st.backend.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Total jobs:          %d\n", s.Total)
	fmt.Printf("Posted today:        %d\n", s.Today)
	fmt.Printf("Posted last 7 days:  %d\n", s.LastWeek)
	fmt.Printf("Companies:           %d\n", s.Companies)
	fmt.Printf("Duplicate sightings: %d\n\n", s.DuplicateSightings)

	byType := make(map[string]int, len(s.ByType))
	for k, v := range s.ByType {
		byType[string(k)] = v
	}
	printCounts("Type", byType)
	fmt.Println()
	printCounts("Source", s.BySource)
	return nil
}

// printCounts prints a two-column table, largest count first.
func printCounts(label string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	t := newTable(label, "Jobs")
	for _, k := range keys {
		t.add(k, strconv.Itoa(counts[k]))
	}
	t.render(os.Stdout)
}
