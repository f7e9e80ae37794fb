package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/config"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured sources",
	Long:  "Reads the config and prints a table of all configured sources.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}

	t := newTable("Source", "Type", "Status", "Target").limit(3, 60)
	enabled, disabled := 0, 0
	for _, s := range cfg.Sources {
		status := "enabled"
		if s.Enabled {
			enabled++
		} else {
			status = "disabled"
			disabled++
		}
		t.add(s.Name, s.Type, status, sourceTarget(s))
	}
	t.render(os.Stdout)

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Sources), enabled, disabled)
	return nil
}

// sourceTarget describes where a source reads from, without secrets.
func sourceTarget(s config.SourceConfig) string {
	switch s.Type {
	case config.SourceFile, config.SourceWhatsAppExport:
		return s.Path
	case config.SourceWhatsAppWeb:
		return s.URL
	case config.SourceTelegram:
		if len(s.Chats) == 0 {
			return "all chats"
		}
		return fmt.Sprint(s.Chats)
	case config.SourceIMAP:
		return s.IMAP.Username + "@" + s.IMAP.Addr
	case config.SourceBoard:
		return s.ATS + "/" + s.BoardToken
	}
	return ""
}
