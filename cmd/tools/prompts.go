package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nizami/nizami-backend/internal/prompts"
)

func newPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect the prompt registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List prompts with the source of their active value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := prompts.NewRegistry(logger)
			if err != nil {
				return err
			}
			if cfg.Prompts.Dir != "" {
				if err := registry.LoadDir(cfg.Prompts.Dir); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSOURCE\tTITLE\tPLACEHOLDERS")
			for _, p := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Source, p.Title, strings.Join(placeholders(p.Value), ","))
			}
			return w.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print the active value of a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := prompts.NewRegistry(logger)
			if err != nil {
				return err
			}
			if cfg.Prompts.Dir != "" {
				if err := registry.LoadDir(cfg.Prompts.Dir); err != nil {
					return err
				}
			}
			p, err := registry.Get(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.Value)
			return err
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

var knownPlaceholders = []string{"language", "context", "summary", "conversation", "to_language"}

func placeholders(value string) []string {
	var out []string
	for _, name := range knownPlaceholders {
		if strings.Contains(value, "{"+name+"}") {
			out = append(out, name)
		}
	}
	return out
}
