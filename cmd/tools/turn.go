package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nizami/nizami-backend/internal/bootstrap"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/pipeline"
)

func newTurnCmd() *cobra.Command {
	var (
		chatID int64
		id     string
		text   string
		trace  bool
	)

	cmd := &cobra.Command{
		Use:   "turn",
		Short: "Run one chat turn against the configured backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := bootstrap.Validate(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if chatID == 0 {
				chat := &models.Conversation{Title: "CLI"}
				if err := app.Services.Conversations.Create(ctx, chat); err != nil {
					return err
				}
				chatID = chat.ID
			}

			req := pipeline.TurnRequest{ChatID: chatID, Text: text, UUID: uuid.New()}
			if id != "" {
				if req.UUID, err = uuid.Parse(id); err != nil {
					return fmt.Errorf("invalid --uuid: %w", err)
				}
			}
			if trace {
				out := cmd.ErrOrStderr()
				req.Observer = func(ev pipeline.Event) {
					status := "ok"
					if ev.Err != nil {
						status = "failed: " + ev.Err.Error()
					}
					fmt.Fprintf(out, "%-28s %-16s %8s %s\n", ev.Step, ev.Branch, ev.Duration.Round(time.Millisecond), status)
				}
			}

			reply, err := app.Engine.RunTurn(ctx, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reply)
		},
	}

	cmd.Flags().Int64Var(&chatID, "chat", 0, "chat id (a new chat is created when omitted)")
	cmd.Flags().StringVar(&id, "uuid", "", "idempotency uuid of the user message (random when omitted)")
	cmd.Flags().StringVar(&text, "text", "", "user message")
	cmd.Flags().BoolVar(&trace, "trace", false, "print every executed step to stderr")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}
