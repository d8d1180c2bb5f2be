// Command boncuk runs the Boncuk gateway and the terminal companion: a live
// camera and microphone session with the model, chat, mood analysis and the
// expert tools.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func runMain(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	root := newRootCommand(newApp(os.Getenv))
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "boncuk: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
