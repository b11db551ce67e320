package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// daemonState is what a running daemon records in its lock file.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	UserID    string    `json:"user_id"`
}

// daemonLock is the single file marking a live daemon.
type daemonLock struct {
	path string
}

var errDaemonNotRunning = errors.New("daemon is not running")

func (l daemonLock) read() (daemonState, error) {
	var st daemonState
	data, err := os.ReadFile(l.path) //nolint:gosec // lock path is configured by the local user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, errDaemonNotRunning
		}
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil || st.PID <= 0 {
		return st, fmt.Errorf("invalid daemon lock %s", l.path)
	}
	return st, nil
}

// live returns the recorded state when its process is still running.
// A stale or unreadable lock is removed.
func (l daemonLock) live() (daemonState, bool) {
	st, err := l.read()
	if err != nil {
		if !errors.Is(err, errDaemonNotRunning) {
			l.release()
		}
		return st, false
	}
	if !processAlive(st.PID) {
		l.release()
		return st, false
	}
	return st, true
}

func (l daemonLock) ensureFree() error {
	if st, ok := l.live(); ok {
		return fmt.Errorf("daemon already running (pid %d)", st.PID)
	}
	return nil
}

func (l daemonLock) acquire(st daemonState) error {
	if err := l.ensureFree(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, append(data, '\n'), 0o600)
}

func (l daemonLock) release() {
	_ = os.Remove(l.path)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
