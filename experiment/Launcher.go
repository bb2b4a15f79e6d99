package experiment

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Launcher starts the training run of a job whose params.json has
// been written
type Launcher interface {
	Launch(ctx context.Context, job Job) error
}

// CommandRunner runs an external command to completion
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, forwarding their output
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements the CommandRunner interface
func (e ExecRunner) Run(ctx context.Context, name string,
	args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run: %v %v: %v", name, strings.Join(args, " "),
			err)
	}
	return nil
}

// trainerArgs splits a trainer command and appends the job flag
func trainerArgs(trainer, params string) []string {
	return append(strings.Fields(trainer), "--job", params)
}

// LocalLauncher trains jobs on this machine
type LocalLauncher struct {
	Trainer string
	Runner  CommandRunner
}

// Launch implements the Launcher interface
func (l LocalLauncher) Launch(ctx context.Context, job Job) error {
	args := trainerArgs(l.Trainer, job.ParamsPath())
	if err := l.Runner.Run(ctx, args[0], args[1:]...); err != nil {
		return fmt.Errorf("launch: %v", err)
	}
	return nil
}

// DockerLauncher trains jobs in a docker container on this machine,
// with the job's log directory mounted into the container
type DockerLauncher struct {
	Image   string
	Mount   string
	Trainer string
	Runner  CommandRunner
}

// Launch implements the Launcher interface
func (d DockerLauncher) Launch(ctx context.Context, job Job) error {
	logDir, err := filepath.Abs(job.LogDir)
	if err != nil {
		return fmt.Errorf("launch: %v", err)
	}

	args := []string{
		"run", "--rm",
		"-v", logDir + ":" + d.Mount,
		d.Image,
	}
	args = append(args, trainerArgs(d.Trainer,
		path.Join(d.Mount, ParamsFilename))...)

	if err := d.Runner.Run(ctx, "docker", args...); err != nil {
		return fmt.Errorf("launch: %v", err)
	}
	return nil
}

// LaunchRequest asks a Provisioner to train a job on a spot instance
type LaunchRequest struct {
	ID               string    `yaml:"id"`
	ExpPrefix        string    `yaml:"exp_prefix"`
	Name             string    `yaml:"exp_name"`
	Params           string    `yaml:"params"`
	Command          []string  `yaml:"command"`
	SyncS3Pkl        bool      `yaml:"sync_s3_pkl"`
	TerminateMachine bool      `yaml:"terminate_machine"`
	AWS              AWSConfig `yaml:"aws"`
}

// Provisioner acquires remote machines and starts jobs on them
type Provisioner interface {
	Provision(ctx context.Context, req LaunchRequest) error
}

// LaunchFilename is the name of the file ScriptProvisioner writes
const LaunchFilename = "launch.yaml"

// ScriptProvisioner writes each LaunchRequest as launch.yaml in the
// job's log directory for an external provisioning tool to pick up
type ScriptProvisioner struct{}

// Provision implements the Provisioner interface
func (ScriptProvisioner) Provision(ctx context.Context,
	req LaunchRequest) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("provision: %v", err)
	}

	data, err := yaml.Marshal(req)
	if err != nil {
		return fmt.Errorf("provision: could not marshal request: %v", err)
	}

	p := filepath.Join(filepath.Dir(req.Params), LaunchFilename)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("provision: %v", err)
	}
	return nil
}

// EC2Launcher trains jobs on EC2 spot instances
type EC2Launcher struct {
	Trainer     string
	Provisioner Provisioner
}

// Launch implements the Launcher interface
func (e EC2Launcher) Launch(ctx context.Context, job Job) error {
	if job.AWS == nil {
		return fmt.Errorf("launch: job %v has no AWS configuration", job.Name)
	}

	req := LaunchRequest{
		ID:               job.ID.String(),
		ExpPrefix:        job.ExpPrefix,
		Name:             job.Name,
		Params:           job.ParamsPath(),
		Command:          trainerArgs(e.Trainer, ParamsFilename),
		SyncS3Pkl:        job.SyncS3Pkl,
		TerminateMachine: job.TerminateMachine,
		AWS:              *job.AWS,
	}
	if err := e.Provisioner.Provision(ctx, req); err != nil {
		return fmt.Errorf("launch: %v", err)
	}
	return nil
}

// NewLauncher returns the Launcher for a run mode. Commands are run
// with runner and remote machines acquired with provisioner.
func NewLauncher(mode Mode, s Settings, runner CommandRunner,
	provisioner Provisioner) (Launcher, error) {
	switch mode.Kind {
	case Local:
		return LocalLauncher{Trainer: s.Trainer, Runner: runner}, nil

	case LocalDocker:
		return DockerLauncher{
			Image:   s.DockerImage,
			Mount:   s.DockerMount,
			Trainer: s.Trainer,
			Runner:  runner,
		}, nil

	case EC2:
		return EC2Launcher{Trainer: s.Trainer, Provisioner: provisioner}, nil
	}

	return nil, fmt.Errorf("newLauncher: %w %q", ErrUnknownMode, mode.Name)
}
