package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"dubsync/internal/config"
)

// Requirement defines an external binary dubsync relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// NarrationRequirements lists the binaries the narration sink needs.
func NarrationRequirements(cfg config.Narration) []Requirement {
	return []Requirement{
		{
			Name:        "Speech engine",
			Command:     cfg.Command,
			Description: "Required to speak translated cues",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		if path != cmd {
			status.Command = path
		}
		results = append(results, status)
	}
	return results
}
