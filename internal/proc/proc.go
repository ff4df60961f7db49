// Package proc finds and terminates OS processes by name.
package proc

import (
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/user/browserkit/internal/logging"
)

type Process struct {
	PID  int32
	Name string
}

type Registry interface {
	List() ([]Process, error)
	Kill(p Process) error
}

type system struct{}

// System returns the registry backed by the host's process table.
func System() Registry {
	return system{}
}

func (system) List() ([]Process, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			// exited between listing and inspection
			continue
		}
		out = append(out, Process{PID: p.Pid, Name: name})
	}
	return out, nil
}

func (system) Kill(p Process) error {
	h, err := process.NewProcess(p.PID)
	if err != nil {
		return err
	}
	return h.Kill()
}

// Matching returns the processes whose name contains any of patterns,
// ignoring case.
func Matching(r Registry, patterns ...string) ([]Process, error) {
	procs, err := r.List()
	if err != nil {
		return nil, err
	}

	var out []Process
	for _, p := range procs {
		name := strings.ToLower(p.Name)
		for _, pattern := range patterns {
			if pattern != "" && strings.Contains(name, strings.ToLower(pattern)) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// Running reports whether any process name contains one of patterns. A
// listing failure counts as nothing running.
func Running(r Registry, patterns ...string) bool {
	procs, err := Matching(r, patterns...)
	if err != nil {
		logging.Logger.Warnf("Listing processes failed: %v", err)
		return false
	}
	return len(procs) > 0
}

// Terminate kills every process whose name contains one of patterns and
// returns how many matching processes are still alive afterwards.
func Terminate(r Registry, patterns ...string) int {
	procs, err := Matching(r, patterns...)
	if err != nil {
		logging.Logger.Warnf("Listing processes failed: %v", err)
		return 0
	}

	for _, p := range procs {
		logging.Logger.Infof("Terminating process %s (pid %d)", p.Name, p.PID)
		if err := r.Kill(p); err != nil {
			logging.Logger.Warnf("Failed to terminate %s (pid %d): %v", p.Name, p.PID, err)
		}
	}

	residual, err := Matching(r, patterns...)
	if err != nil {
		logging.Logger.Warnf("Listing processes failed: %v", err)
		return 0
	}
	if len(residual) > 0 {
		logging.Logger.Warnf("%d %q processes still running after termination", len(residual), patterns)
	}
	return len(residual)
}
