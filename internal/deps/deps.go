package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary the server shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the lookup result for one Requirement.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Blocking reports whether the missing binary breaks request handling.
func (s Status) Blocking() bool {
	return !s.Available && !s.Optional
}

// CheckBinaries resolves each requirement against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(status.Command); {
		case status.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		default:
			status.Path = path
			status.Available = true
		}
		results[i] = status
	}
	return results
}

// MissingRequired returns the names of blocking statuses in order.
func MissingRequired(statuses []Status) []string {
	var names []string
	for _, status := range statuses {
		if status.Blocking() {
			names = append(names, status.Name)
		}
	}
	return names
}
