package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/yiblet/rewind/internal/cli"
)

func main() {
	// Parse command-line arguments
	var args cli.Args
	parser := arg.MustParse(&args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, parser, &args))
}

func run(ctx context.Context, parser *arg.Parser, args *cli.Args) int {
	// No subcommand opens the interactive search
	if !args.HasSubcommand() {
		args.Search = &cli.SearchCmd{Session: os.Getenv("REWIND_SESSION")}
	}

	cliHandler, err := cli.New(args, cli.ProcessEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cliHandler.Close()

	if err := args.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		parser.WriteUsage(os.Stderr)
		return 1
	}

	if err := cliHandler.Execute(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
