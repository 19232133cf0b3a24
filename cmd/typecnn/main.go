// Command typecnn loads a network description and runs inference, training
// or validation over IDX, binary or manifest datasets.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schustan/TypeCNN/cnn"
	"github.com/schustan/TypeCNN/persist"
	"github.com/schustan/TypeCNN/run"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := run.ParseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error when parsing arguments: %v\n", err)
		fmt.Fprintln(stderr, `Use "--help" for usage.`)
		return 1
	}

	if cfg.Help {
		fmt.Fprint(stdout, run.Usage())
		return 0
	}

	if cfg.TypeInfo {
		cnn.WriteTypeInfo(stdout)
		if cfg.TypeInfoOnly {
			return 0
		}
	}

	net, err := persist.LoadNetwork(cfg.CNNPath, cfg.LoadWeights, cfg.Seed)
	if err != nil {
		fmt.Fprintf(stderr, "Could not load network from given file.\n  Reason: %v\n", err)
		return 1
	}
	net.SetOutput(stdout)

	orch := &run.Orchestrator{
		Model:       net,
		Saver:       run.NetworkSaver{Net: net},
		CNNPath:     cfg.CNNPath,
		SaveWeights: cfg.SaveWeights,
		KeepBest:    cfg.KeepBest,
		Grayscale:   cfg.Grayscale,
		PlotPath:    cfg.PlotPath,
		Out:         stdout,
		Err:         stderr,
	}

	if err := orch.Execute(cfg); err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

// reportError maps the failure to a single diagnostic line.
func reportError(stderr io.Writer, err error) {
	var (
		domainErr  *cnn.DomainError
		emptyErr   *run.EmptyDatasetError
		persistErr *persist.Error
		pathErr    *os.PathError
	)
	switch {
	case errors.As(err, &domainErr), errors.As(err, &emptyErr):
		fmt.Fprintf(stderr, "CNN error: %v\n", err)
	case errors.As(err, &persistErr):
		fmt.Fprintf(stderr, "Could not save network to disk.\n  Reason: %v\n", err)
	case errors.As(err, &pathErr):
		fmt.Fprintf(stderr, "I/O error: %v\n", err)
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
}
