package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/samuelfneumann/asyncrl/experiment"
	"github.com/samuelfneumann/asyncrl/experiment/ledger"
	"github.com/spf13/cobra"
)

var gridFile string

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Launch one training job per point of a sweep grid",
		Long: `Launch one training job per point of a sweep grid.

The grid is read from the YAML file given by --grid; fields missing from
the file, or the whole grid if no file is given, take their default
values. The run mode decides where jobs run:

  local         run the trainer on this machine
  local_docker  run the trainer in a docker container on this machine
  ec2           request an EC2 spot instance per job

A mode containing "test" launches only the first job with a fast
evaluation schedule.`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	}

	d := experiment.DefaultSettings()
	flags := cmd.Flags()
	flags.StringVar(&gridFile, "grid", "", "Sweep grid YAML file")

	flags.String("mode", d.Mode, "Run mode (local, local_docker, ec2, with an optional _test suffix)")
	flags.String("ec2-instance", d.Instance, "EC2 instance type")
	flags.String("subnet", d.Subnet, "EC2 availability zone, a key of the subnets table")
	flags.String("log-dir", d.LogDir, "Directory holding the log directory of each job")
	flags.String("trainer", d.Trainer, "Command that trains a single job")
	flags.String("docker-image", d.DockerImage, "Docker image of the trainer")
	flags.String("docker-mount", d.DockerMount, "Mount point of the job directory in the container")
	flags.Bool("progress", d.Progress, "Display a progress bar")

	for _, name := range []string{"mode", "ec2-instance", "subnet", "log-dir",
		"trainer", "docker-image", "docker-mount", "progress"} {
		bindFlag(flags, name)
	}

	return cmd
}

// settings returns the launcher settings from flags, the environment,
// and the config file
func settings() (experiment.Settings, error) {
	s := experiment.DefaultSettings()
	if err := v.Unmarshal(&s); err != nil {
		return experiment.Settings{}, fmt.Errorf("could not decode "+
			"settings: %v", err)
	}
	if err := s.Validate(); err != nil {
		return experiment.Settings{}, err
	}
	return s, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, err := settings()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	grid := experiment.DefaultGrid()
	if gridFile != "" {
		if grid, err = experiment.LoadGridFile(gridFile); err != nil {
			return err
		}
	}

	mode, err := experiment.ParseMode(s.Mode)
	if err != nil {
		return err
	}
	runner := experiment.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
	launcher, err := experiment.NewLauncher(mode, s, runner,
		experiment.ScriptProvisioner{})
	if err != nil {
		return err
	}

	sweep := &experiment.Sweep{
		Grid:     grid,
		GridPath: gridFile,
		Settings: s,
		Launcher: launcher,
		Logger:   logger,
	}
	if s.Progress {
		sweep.Progress = os.Stderr
	}

	if s.Ledger != "" {
		if err := os.MkdirAll(filepath.Dir(s.Ledger), 0o755); err != nil {
			return err
		}
		l, err := ledger.Open(s.Ledger)
		if err != nil {
			return err
		}
		defer l.Close()
		sweep.Ledger = l
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	jobs, err := sweep.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Int("launched", len(jobs)).Msg("sweep failed")
		return err
	}
	logger.Info().Int("launched", len(jobs)).Msg("sweep finished")
	return nil
}
