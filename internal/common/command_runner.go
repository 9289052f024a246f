package common

import (
	"context"
	"fmt"

	"cvcoach/internal/errors"
	"cvcoach/internal/telemetry"
)

// CreateInputFunc builds the operation input from the file contents
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc logs the start of an operation
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc runs the command's work
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// FileCommand bundles the steps of a file-based command
type FileCommand[Input, Output any] struct {
	Files       []string
	CreateInput CreateInputFunc[Input]
	Operation   OperationFunc[Input, Output]
	LogDetails  LogDetailsFunc[Input]
	// Counters, when set, are reported after the operation
	Counters *telemetry.Counters
}

// RunFileCommand reads the files, runs the operation and writes its output
func RunFileCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	cmd FileCommand[Input, Output],
) error {
	if logger == nil {
		logger = errors.Discard()
	}
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	contents, err := fileProcessor.ReadDocuments(cmd.Files...)
	if err != nil {
		return err
	}

	input, err := cmd.CreateInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if cmd.LogDetails != nil {
		cmd.LogDetails(input, cmdConfig)
	}

	result, err := cmd.Operation(ctx, input)
	if err != nil {
		return err
	}

	if cmd.Counters != nil {
		snap := cmd.Counters.Snapshot()
		logger.Info("LLM calls", "total", snap.Total, "by_context", snap.ByContext)
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
