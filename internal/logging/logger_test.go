package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var linePattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `)

func TestLoggerAppendsTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookout.log")

	var console bytes.Buffer
	l, err := New("test", path, &console)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Infof("Monitoring URL: %s", "https://example.com")
	l.Warnf("phrase not found")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A second logger on the same file must append, not truncate
	l2, err := New("test", path, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l2.Errorf("Failed to send email: %s", "535 auth rejected")
	l2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !linePattern.MatchString(line) {
			t.Errorf("Line missing timestamp prefix: %q", line)
		}
	}
	if !strings.HasSuffix(lines[0], "] Monitoring URL: https://example.com") {
		t.Errorf("Unexpected first line: %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "] Failed to send email: 535 auth rejected") {
		t.Errorf("Unexpected last line: %q", lines[2])
	}

	// Console only saw the first logger's lines
	if got := strings.Count(console.String(), "\n"); got != 2 {
		t.Errorf("Expected 2 console lines, got %d", got)
	}
}

func TestLoggerWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter("test", &buf).WithPrefix("[run 1a2b3c4d]")

	l.Infof("check started")

	if !strings.Contains(buf.String(), "] [run 1a2b3c4d] check started\n") {
		t.Errorf("Expected prefixed message, got %q", buf.String())
	}
}

func TestNewWithoutFile(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("test", "", &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Infof("hello")
	if err := l.Close(); err != nil {
		t.Errorf("Close without file should be a no-op: %v", err)
	}
	if !linePattern.MatchString(buf.String()) {
		t.Errorf("Unexpected console output %q", buf.String())
	}

	// Discard must not panic
	Discard().Infof("dropped")
}

func TestNewBadPath(t *testing.T) {
	if _, err := New("test", filepath.Join(t.TempDir(), "missing", "dir", "x.log"), nil); err == nil {
		t.Error("Expected error for unwritable log path")
	}
}
