package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/canon"
	"github.com/amishk599/jobagg/internal/dedup"
	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Extract one post and report whether it is already stored",
	Long:  "One-shot check: extracts a posting from the argument text (or stdin), prints the canonical fields and fingerprint, and reports whether the database already holds it. Writes nothing.\n\nWith --setup, verifies the environment instead: LLM server and model, database directory and Playwright driver.",
	RunE:  runCheck,
}

var checkSetup bool

func init() {
	checkCmd.Flags().BoolVar(&checkSetup, "setup", false, "verify the LLM, database directory and browser driver")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkSetup {
		cfg, _, err := bootstrap()
		if err != nil {
			return err
		}
		return runSetup(cfg)
	}

	text := strings.Join(args, " ")
	if text == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(b)
	}

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer sqlStore.Close()

	ctx := context.Background()
	post := model.RawPost{Source: "check", Text: text, Timestamp: time.Now()}
	c, err := buildEngine(cfg, logger).Extract(ctx, post)
	if err != nil {
		return err
	}
	c = canon.Canonicalize(c)

	dup, fp, err := dedup.NewDetector(sqlStore).IsDuplicate(ctx, c)
	if err != nil {
		return err
	}

	fmt.Printf("Role:         %s\n", c.Role)
	fmt.Printf("Company:      %s\n", c.CompanyName)
	fmt.Printf("Location:     %s\n", c.Location)
	fmt.Printf("Experience:   %s\n", c.ExperienceRequired)
	fmt.Printf("Job type:     %s\n", c.JobType)
	fmt.Printf("Apply:        %s\n", c.ApplicationLink)
	fmt.Printf("Extracted by: %s\n", c.ExtractedBy)
	fmt.Printf("Fingerprint:  %s\n", fp)
	if dup {
		fmt.Println("Status:       already stored")
	} else {
		fmt.Println("Status:       new")
	}
	return nil
}
