package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned when another daemon holds the PID file.
var ErrAlreadyRunning = errors.New("server is already running")

// PIDFile manages the PID file for the server
type PIDFile struct {
	path string
}

// NewPIDFile creates a PID file manager inside dir
func NewPIDFile(dir string) (*PIDFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	return &PIDFile{
		path: filepath.Join(dir, "clipboard-sync.pid"),
	}, nil
}

func (p *PIDFile) Path() string {
	return p.path
}

// Acquire writes our PID unless a live process already owns the file.
// A stale file left by a crashed process is replaced.
func (p *PIDFile) Acquire() error {
	pid, err := p.Read()
	if err != nil {
		return err
	}
	if pid != 0 && pid != os.Getpid() && IsRunning(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	return p.Write()
}

// Write writes the current process PID to the PID file
func (p *PIDFile) Write() error {
	pid := os.Getpid()
	return os.WriteFile(p.path, []byte(strconv.Itoa(pid)), 0644)
}

// Read reads the PID from the PID file; 0 means no file
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}

	return pid, nil
}

// Remove removes the PID file
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning checks if a process with the given PID is running
func IsRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix systems, FindProcess always succeeds, so we need to check if the process actually exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// KillProcess attempts to stop a process with the given PID
func KillProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	// First try SIGTERM for graceful shutdown
	if err := process.Signal(syscall.SIGTERM); err != nil {
		// If SIGTERM fails, force kill with SIGKILL
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
	}

	return nil
}
