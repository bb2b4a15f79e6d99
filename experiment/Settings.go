package experiment

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Settings configures where and how the jobs of a sweep are launched
type Settings struct {
	// Mode is the run mode, see ParseMode
	Mode string `mapstructure:"mode"`

	Instance string                `mapstructure:"ec2_instance"`
	Subnet   string                `mapstructure:"subnet"`
	Subnets  map[string]SubnetInfo `mapstructure:"subnets"`

	// LogDir is the directory under which each job gets its own
	// directory holding its params.json
	LogDir string `mapstructure:"log_dir"`

	// Trainer is the command that trains a single job
	Trainer string `mapstructure:"trainer"`

	DockerImage string `mapstructure:"docker_image"`
	DockerMount string `mapstructure:"docker_mount"`

	// Ledger is the path of the SQLite ledger of launched jobs, or empty
	// to launch without a ledger
	Ledger string `mapstructure:"ledger"`

	Progress bool   `mapstructure:"progress"`
	LogLevel string `mapstructure:"log_level"`
}

// DefaultSettings returns Settings that launch on a c4.8xlarge spot
// instance in us-west-1a. The subnet table must still be supplied.
func DefaultSettings() Settings {
	return Settings{
		Mode:        "ec2",
		Instance:    "c4.8xlarge",
		Subnet:      "us-west-1a",
		Subnets:     map[string]SubnetInfo{},
		LogDir:      "data",
		Trainer:     "asyncrl-train",
		DockerImage: "asyncrl/trainer:latest",
		DockerMount: "/root/data",
		Ledger:      "data/ledger.db",
		Progress:    false,
		LogLevel:    "info",
	}
}

// Validate checks the Settings for errors
func (s Settings) Validate() error {
	mode, err := ParseMode(s.Mode)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if s.LogDir == "" {
		return fmt.Errorf("validate: no log directory")
	}
	if s.Trainer == "" {
		return fmt.Errorf("validate: no trainer command")
	}
	if mode.Kind == LocalDocker && (s.DockerImage == "" ||
		s.DockerMount == "") {
		return fmt.Errorf("validate: docker image and mount required in "+
			"mode %v", mode)
	}
	if mode.Kind == EC2 {
		if _, err := Instance(s.Instance); err != nil {
			return fmt.Errorf("validate: %v", err)
		}
	}
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}
