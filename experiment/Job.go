package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/samuelfneumann/asyncrl/agent"
	"github.com/samuelfneumann/asyncrl/environment/envconfig"
	"github.com/samuelfneumann/asyncrl/experiment/checkpointer"
)

// ParamsFilename is the name of the file describing a job in its log
// directory
const ParamsFilename = "params.json"

// Job is a single training run of a sweep
type Job struct {
	ID               uuid.UUID                 `json:"id"`
	ExpPrefix        string                    `json:"exp_prefix"`
	Name             string                    `json:"exp_name"`
	SnapshotMode     checkpointer.SnapshotMode `json:"snapshot_mode"`
	Mode             Kind                      `json:"mode"`
	SyncS3Pkl        bool                      `json:"sync_s3_pkl"`
	TerminateMachine bool                      `json:"terminate_machine"`

	Repetition int               `json:"repetition"`
	BonusCoeff float64           `json:"bonus_coeff"`
	Env        envconfig.Config  `json:"env"`
	Agent      agent.TypedConfig `json:"agent"`
	Algo       agent.AlgoConfig  `json:"algo"`
	AWS        *AWSConfig        `json:"aws,omitempty"`

	LogDir  string    `json:"log_dir"`
	Created time.Time `json:"created"`
}

// ParamsPath returns the path of the job's params.json
func (j Job) ParamsPath() string {
	return filepath.Join(j.LogDir, ParamsFilename)
}

// Write writes the job as JSON to its params.json, creating the log
// directory if needed, and returns the path of the file
func (j Job) Write() (string, error) {
	if err := os.MkdirAll(j.LogDir, 0o755); err != nil {
		return "", fmt.Errorf("write: %v", err)
	}

	data, err := json.MarshalIndent(j, "", "\t")
	if err != nil {
		return "", fmt.Errorf("write: could not marshal job: %v", err)
	}

	path := j.ParamsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write: %v", err)
	}
	return path, nil
}

// ReadJob reads a job from a params.json file
func ReadJob(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("readJob: %v", err)
	}

	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("readJob: %v", err)
	}
	return j, nil
}
