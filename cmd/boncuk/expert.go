package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/core/advisor"
)

type expertOptions struct {
	list    bool
	image   string
	timeout time.Duration
}

func newExpertCommand(a *app) *cobra.Command {
	opts := &expertOptions{}
	cmd := &cobra.Command{
		Use:   "expert [tool] [question]",
		Short: "Ask one of the expert tools",
		Long: `Ask a question to a specialist scoped to one expert tool, such as
"Gıda Güvenliği" or "Tüy Dökümü". Use --list to see every tool.`,
		Example: `  boncuk expert --list
  boncuk expert "Yasaklı Gıdalar" "Avokado verebilir miyim?"
  boncuk expert "Dışkı Analizi" "Bu normal mi?" --image diski.jpg`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.list {
				printCatalog(out)
				return nil
			}
			adv, err := a.advisor(cmd.Context())
			if err != nil {
				return err
			}
			return runExpert(cmd.Context(), adv, args[0], args[1], *opts, out)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.list, "list", "l", false, "List the expert tools")
	flags.StringVar(&opts.image, "image", "", "Photo to attach to the question")
	flags.DurationVar(&opts.timeout, "timeout", defaultTurnTimeout, "Request timeout")
	return cmd
}

func printCatalog(out io.Writer) {
	for _, c := range advisor.Catalog {
		botLabel.Fprintln(out, c.Name)
		faint.Fprintf(out, "  %s\n", c.Description)
		for _, t := range c.Tools {
			fmt.Fprintf(out, "  - %s: %s\n", t.Name, t.Info)
		}
	}
}

func runExpert(ctx context.Context, adv *advisor.Advisor, tool, query string, opts expertOptions, out io.Writer) error {
	tool = strings.TrimSpace(tool)
	query = strings.TrimSpace(query)
	if tool == "" || query == "" {
		return errors.New("tool and question must not be empty")
	}
	if _, ok := advisor.FindTool(tool); !ok {
		faint.Fprintf(out, "%q is not in the catalog; asking anyway\n", tool)
	}

	var image []byte
	if opts.image != "" {
		img, err := readImageFile(opts.image)
		if err != nil {
			return err
		}
		image = img
	}
	if opts.timeout <= 0 {
		opts.timeout = defaultTurnTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	answer, err := adv.ExpertAnswer(ctx, tool, query, image)
	if err != nil {
		return err
	}
	botLabel.Fprintf(out, "%s: ", tool)
	fmt.Fprintln(out, answer)
	return nil
}
