package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRunCompilePrintsNotes(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := runCompile(cmd, []string{"120", "A4q", "A5h"}); err != nil {
		t.Fatalf("compile: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"440.000 Hz", "880.000 Hz", "2 notes, 0.375s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCompileRejectsBadNotation(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	if err := runCompile(cmd, []string{"120", "Q4q"}); err == nil {
		t.Fatal("expected error for unknown pitch")
	}
}
