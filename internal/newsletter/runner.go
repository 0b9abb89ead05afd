// Package newsletter invokes the external chart/email generation script.
//
// The script is a collaborator, not part of this server: it receives two
// JSON-serialized aggregates on the command line and is expected to render
// chart images and dispatch the email itself.
package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultInterpreter = "python3"
	defaultTimeout     = 60 * time.Second

	// stderrTailLimit caps how much captured stderr is attached to errors.
	stderrTailLimit = 2048
)

// ErrTimeout is returned when the script exceeds its deadline.
var ErrTimeout = errors.New("newsletter script timed out")

// RunError reports a non-zero script exit.
type RunError struct {
	ExitCode int
	Stderr   string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("newsletter script exited with code %d: %s", e.ExitCode, e.Stderr)
}

// Job describes one newsletter dispatch.
type Job struct {
	UserID            string          `json:"user_id"`
	ListeningTrends   json.RawMessage `json:"listening_trends"`
	GenreDistribution json.RawMessage `json:"genre_distribution"`
}

// Result reports a completed script run.
type Result struct {
	JobID  string `json:"job_id"`
	Stdout string `json:"-"`
}

// Runner executes the newsletter script with a bounded timeout.
type Runner struct {
	Script      string        // script path, required
	Interpreter string        // defaults to python3
	Timeout     time.Duration // defaults to 60s

	Log *logrus.Logger
}

// Run invokes the script with the job's user id and the two aggregates as
// JSON arguments. Stdout and stderr are captured; a non-zero exit maps to
// *RunError, a deadline to ErrTimeout.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	if r.Script == "" {
		return nil, errors.New("no newsletter script configured")
	}

	interpreter := r.Interpreter
	if interpreter == "" {
		interpreter = defaultInterpreter
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	jobID := uuid.NewString()
	cmd := exec.CommandContext(ctx, interpreter, r.Script,
		job.UserID,
		string(job.ListeningTrends),
		string(job.GenreDistribution),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	entry := log.WithFields(logrus.Fields{
		"job_id":  jobID,
		"user_id": job.UserID,
		"took":    elapsed.Round(time.Millisecond).String(),
	})

	if ctx.Err() == context.DeadlineExceeded {
		entry.Warn("newsletter script timed out")
		return nil, ErrTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr := &RunError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   tail(stderr.String()),
			}
			entry.WithField("exit_code", runErr.ExitCode).Warn("newsletter script failed")
			return nil, runErr
		}
		return nil, fmt.Errorf("running newsletter script: %w", err)
	}

	entry.Info("newsletter script completed")
	return &Result{
		JobID:  jobID,
		Stdout: stdout.String(),
	}, nil
}

// tail returns the last stderrTailLimit bytes of s, trimmed.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
