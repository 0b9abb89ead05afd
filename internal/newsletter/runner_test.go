package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsletter.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testJob() Job {
	return Job{
		UserID:            "user-1",
		ListeningTrends:   json.RawMessage(`[1,2,3,4,5,6,7]`),
		GenreDistribution: json.RawMessage(`{"pop":10,"rock":4}`),
	}
}

func TestRunSuccess(t *testing.T) {
	script := writeScript(t, `echo "sent newsletter for $1 trends=$2 genres=$3"`)
	runner := &Runner{Script: script, Interpreter: "/bin/sh"}

	result, err := runner.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.JobID == "" {
		t.Error("JobID is empty")
	}
	if !strings.Contains(result.Stdout, "sent newsletter for user-1") {
		t.Errorf("Stdout = %q, want echoed arguments", result.Stdout)
	}
	if !strings.Contains(result.Stdout, `trends=[1,2,3,4,5,6,7]`) {
		t.Errorf("Stdout = %q, want JSON trends argument", result.Stdout)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	script := writeScript(t, "echo 'smtp connection refused' >&2\nexit 3")
	runner := &Runner{Script: script, Interpreter: "/bin/sh"}

	_, err := runner.Run(context.Background(), testJob())

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("Run() error = %v, want *RunError", err)
	}
	if runErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", runErr.ExitCode)
	}
	if !strings.Contains(runErr.Stderr, "smtp connection refused") {
		t.Errorf("Stderr = %q, want captured stderr", runErr.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	script := writeScript(t, "sleep 10")
	runner := &Runner{Script: script, Interpreter: "/bin/sh", Timeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := runner.Run(context.Background(), testJob())

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v, deadline not enforced", elapsed)
	}
}

func TestRunNoScript(t *testing.T) {
	runner := &Runner{}

	if _, err := runner.Run(context.Background(), testJob()); err == nil {
		t.Fatal("Run() error = nil, want configuration error")
	}
}
