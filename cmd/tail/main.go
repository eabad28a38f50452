// Package main is a terminal observer that tails the tracker's event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/client"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow live conversations on a tracker server",
		Long: `tail connects to a tracker's /ws endpoint, mirrors the active conversations
and daily stats, and prints each event as it arrives. It reconnects on its own.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			retryDelay, _ := cmd.Flags().GetDuration("retry-delay")
			verbose, _ := cmd.Flags().GetBool("verbose")

			log := logger.NewNop()
			if verbose {
				l, err := logger.New(logger.Options{Level: "debug", Console: true})
				if err != nil {
					return err
				}
				log = l
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			w := client.NewWatcher(client.WatcherOptions{
				URL:        url,
				RetryDelay: retryDelay,
				OnConnect: func() {
					fmt.Fprintf(out, "connected to %s\n", url)
				},
				OnEvent: func(env model.RawEnvelope, state *client.State) {
					printEvent(out, env, state)
				},
			}, log)

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("url", "ws://localhost:8080/ws", "observer WebSocket URL")
	cmd.Flags().Duration("retry-delay", client.DefaultRetryDelay, "pause between reconnect attempts")
	cmd.Flags().BoolP("verbose", "v", false, "log connection activity to stderr")

	return cmd
}

func printEvent(out io.Writer, env model.RawEnvelope, state *client.State) {
	ts := env.Timestamp.Local().Format("15:04:05")

	if env.Type == model.EventStatsUpdated {
		s := state.Stats()
		fmt.Fprintf(out, "%s  stats     calls=%d sms=%d chats=%d active=%d avg=%ds missed=%d +%d/=%d/-%d\n",
			ts, s.TotalCallsToday, s.TotalSMSToday, s.TotalChatsToday, s.ActiveConversationCount,
			s.AvgCallDurationSeconds, s.MissedCallCount,
			s.SentimentBreakdown.Positive, s.SentimentBreakdown.Neutral, s.SentimentBreakdown.Negative)
		return
	}

	rec, err := env.Record()
	if err != nil {
		return
	}
	who := rec.CounterpartyID
	if rec.CounterpartyName != "" {
		who = fmt.Sprintf("%s (%s)", rec.CounterpartyName, rec.CounterpartyID)
	}
	fmt.Fprintf(out, "%s  %-9s %-5s %-11s %s %s\n", ts, shortType(env.Type), rec.Channel, rec.Status, rec.ID, who)
}

func shortType(t model.EventType) string {
	switch t {
	case model.EventConversationStarted:
		return "started"
	case model.EventConversationUpdated:
		return "updated"
	case model.EventConversationEnded:
		return "ended"
	default:
		return string(t)
	}
}
