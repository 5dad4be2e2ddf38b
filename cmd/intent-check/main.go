package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/adapters/filter"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/di"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(logger *zap.Logger, cli *filter.CliFilter, llmClient core.LLMClient) error {
		defer logger.Sync()

		if closer, ok := llmClient.(interface{ Close() error }); ok {
			defer closer.Close()
		}
		return check(logger, cli, flags.InputFile)
	}); err != nil {
		os.Exit(1)
	}
}

// check reads the text from a file or stdin and classifies it
func check(logger *zap.Logger, cli *filter.CliFilter, inputFile string) error {
	var reader io.Reader
	if inputFile != "" {
		file, err := os.Open(inputFile)
		if err != nil {
			logger.Error("Failed to open input file", zap.Error(err), zap.String("file", inputFile))
			return err
		}
		defer file.Close()
		reader = file
		logger.Info("Reading text from file", zap.String("file", inputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading text from stdin")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		logger.Error("Failed to read input", zap.Error(err))
		return err
	}

	_, err = cli.ProcessText(context.Background(), string(data))
	return err
}
