package experiment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned when a run mode names no known platform
var ErrUnknownMode = errors.New("unknown run mode")

// Kind is the platform that jobs run on
type Kind string

const (
	LocalDocker Kind = "local_docker"
	Local       Kind = "local"
	EC2         Kind = "ec2"
)

// Mode is a parsed run mode such as "ec2", "local_docker", or
// "local_test"
type Mode struct {
	Name string
	Kind Kind

	// Test is true for smoke test runs which evaluate quickly, launch
	// a single job, and leave remote machines running
	Test bool
}

// ParseMode parses a run mode. The Kind is chosen by the first of
// "local_docker", "local", and "ec2" that the mode contains, and the
// mode is a test mode if it contains "test".
func ParseMode(s string) (Mode, error) {
	m := Mode{Name: s, Test: strings.Contains(s, "test")}

	switch {
	case strings.Contains(s, string(LocalDocker)):
		m.Kind = LocalDocker
	case strings.Contains(s, string(Local)):
		m.Kind = Local
	case strings.Contains(s, string(EC2)):
		m.Kind = EC2
	default:
		return Mode{}, fmt.Errorf("parseMode: %w %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Contains returns whether the mode name contains substr
func (m Mode) Contains(substr string) bool {
	return strings.Contains(m.Name, substr)
}

// IsLocal returns whether jobs run on this machine
func (m Mode) IsLocal() bool {
	return m.Contains(string(Local))
}

func (m Mode) String() string {
	return m.Name
}
