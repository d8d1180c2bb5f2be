package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/advisor"
)

const defaultTurnTimeout = 90 * time.Second

var (
	botLabel  = color.New(color.FgCyan, color.Bold)
	userLabel = color.New(color.FgGreen, color.Bold)
	errLabel  = color.New(color.FgRed)
	faint     = color.New(color.Faint)
)

type chatOptions struct {
	image   string
	timeout time.Duration
}

func newChatCommand(a *app) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:     "chat",
		Aliases: []string{"ask"},
		Short:   "Chat with the Boncuk advisor",
		Long: `Chat with the Boncuk advisor, a bird expert. Every turn sends the whole
conversation so far; nothing is kept on the server.

Inside the chat, "/image <path>" attaches a photo to your next message,
"/reset" starts over and "/exit" quits.`,
		Example: `  boncuk chat
  boncuk chat --image kafes.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adv, err := a.advisor(cmd.Context())
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), adv, *opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.image, "image", "", "Photo to attach to the first message")
	flags.DurationVar(&opts.timeout, "timeout", defaultTurnTimeout, "Per-turn timeout")
	return cmd
}

func greetingHistory() []advisor.Turn {
	return []advisor.Turn{{Role: advisor.RoleModel, Text: advisor.ChatGreeting}}
}

func runChat(ctx context.Context, adv *advisor.Advisor, opts chatOptions, in io.Reader, out io.Writer) error {
	if opts.timeout <= 0 {
		opts.timeout = defaultTurnTimeout
	}

	var pending []byte
	if opts.image != "" {
		img, err := readImageFile(opts.image)
		if err != nil {
			return err
		}
		pending = img
	}

	history := greetingHistory()
	botLabel.Fprint(out, "Boncuk: ")
	fmt.Fprintln(out, advisor.ChatGreeting)
	faint.Fprintln(out, "/image <dosya> fotoğraf ekler, /reset sohbeti sıfırlar, /exit çıkar.")

	scanner := bufio.NewScanner(in)
	for {
		userLabel.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/reset":
			history = greetingHistory()
			pending = nil
			faint.Fprintln(out, "sohbet sıfırlandı")
			continue
		case strings.HasPrefix(line, "/image"):
			img, err := readImageFile(strings.TrimSpace(strings.TrimPrefix(line, "/image")))
			if err != nil {
				errLabel.Fprintf(out, "%v\n", err)
				continue
			}
			pending = img
			faint.Fprintln(out, "fotoğraf bir sonraki mesaja eklenecek")
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		reply, err := adv.ChatReply(turnCtx, history, line, pending)
		cancel()
		if err != nil {
			// The turn is not added to history, so the user can retry it.
			errLabel.Fprintf(out, "Bağlantı hatası: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		history = append(history,
			advisor.Turn{Role: advisor.RoleUser, Text: line, Image: pending},
			advisor.Turn{Role: advisor.RoleModel, Text: reply},
		)
		pending = nil
		botLabel.Fprint(out, "Boncuk: ")
		fmt.Fprintln(out, reply)
	}
}

// readImageFile loads a photo from disk and checks it is an image.
func readImageFile(path string) ([]byte, error) {
	if path == "" {
		return nil, core.NewInvalidRequestErrorWithParam("image path is required", "image")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return nil, core.NewInvalidRequestErrorWithParam(fmt.Sprintf("%s is %s, not an image", path, mt.String()), "image")
	}
	return data, nil
}
