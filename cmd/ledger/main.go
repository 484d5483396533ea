package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"ledger/internal/cli"
	applog "ledger/internal/log"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cfg, err := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}

	cli.Register(commander, cli.NewApp(cfg, logger))

	flag.Parse()
	ctx := applog.NewContext(context.Background(), logger)
	os.Exit(int(commander.Execute(ctx)))
}
