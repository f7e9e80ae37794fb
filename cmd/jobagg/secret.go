package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/secrets"
)

var secretValue string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets in the OS keychain",
	Long:  "Stores secrets referenced from config as keyring:<account>, e.g. api_key: keyring:openai.",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Store a secret (read from stdin unless --value is given)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Short: "Remove a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s%s\n", secrets.Prefix, args[0])
		return nil
	},
}

func init() {
	secretSetCmd.Flags().StringVar(&secretValue, "value", "", "secret value (visible in shell history; prefer stdin)")
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	value := secretValue
	if value == "" {
		fmt.Fprintf(os.Stderr, "secret for %s: ", args[0])
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading secret: %w", err)
		}
		value = strings.TrimSpace(line)
	}
	if value == "" {
		return errors.New("empty secret")
	}
	if err := secrets.Set(args[0], value); err != nil {
		return err
	}
	fmt.Printf("stored; reference it in config as %s%s\n", secrets.Prefix, args[0])
	return nil
}
