package jobsource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EntityJob is one unit of extraction work: a single company whose detail
// view is rendered at TargetLocation. Jobs are loaded once at run start and
// never mutated afterwards.
type EntityJob struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	TargetLocation string `json:"frontend_url" yaml:"frontend_url"`

	// AIGeneratedMemo is populated by the external artifact workflow, not by
	// extraction. Carried so config-store patching can round-trip it.
	AIGeneratedMemo string `json:"ai_generated_memo,omitempty" yaml:"ai_generated_memo,omitempty"`
}

// ConfigurationError means the entity source is unreadable or malformed.
// It is fatal to the whole run: no extraction starts with a broken source.
type ConfigurationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entity source %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("entity source %s: %s", e.Path, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type sourceFile struct {
	Companies []EntityJob `json:"companies" yaml:"companies"`
}

// Load reads the ordered entity list from a JSON or YAML source file.
// Order is preserved exactly: output naming and log correlation depend on it.
func Load(path string) ([]EntityJob, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Reason: "unreadable", Err: err}
	}

	var src sourceFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &src); err != nil {
			return nil, &ConfigurationError{Path: path, Reason: "malformed yaml", Err: err}
		}
	default:
		if err := json.Unmarshal(raw, &src); err != nil {
			return nil, &ConfigurationError{Path: path, Reason: "malformed json", Err: err}
		}
	}

	if len(src.Companies) == 0 {
		return nil, &ConfigurationError{Path: path, Reason: "no companies configured"}
	}

	for i, job := range src.Companies {
		if job.ID == "" {
			return nil, &ConfigurationError{Path: path, Reason: fmt.Sprintf("company %d missing id", i)}
		}
		if job.Name == "" {
			return nil, &ConfigurationError{Path: path, Reason: fmt.Sprintf("company %d (%s) missing name", i, job.ID)}
		}
		if job.TargetLocation == "" {
			return nil, &ConfigurationError{Path: path, Reason: fmt.Sprintf("company %d (%s) missing frontend_url", i, job.ID)}
		}
	}
	return src.Companies, nil
}
