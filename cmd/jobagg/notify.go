package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/notifier"
)

var notifyWebhook string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Work with new-job notifications",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample job through the configured notifier",
	Long: "Sends one made-up job through the notifier from the config file.\n" +
		"Pass --webhook to try a Slack webhook before putting it in the config.",
	RunE: runNotifyTest,
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyWebhook, "webhook", "", "Slack webhook URL to test instead of the configured notifier")
	notifyCmd.AddCommand(notifyTestCmd)
	rootCmd.AddCommand(notifyCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if notifyWebhook != "" {
		cfg.Notification.Type = "slack"
		cfg.Notification.WebhookURL = notifyWebhook
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notifier.SendTestMessage(ctx, setupNotifier(cfg, newHTTPClient(), logger)); err != nil {
		return fmt.Errorf("sending test notification: %w", err)
	}
	fmt.Printf("Test notification sent via %s.\n", notifierName(cfg.Notification.Type))
	return nil
}

func notifierName(t string) string {
	if t == "slack" {
		return "Slack"
	}
	return "the log"
}
