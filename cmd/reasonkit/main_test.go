package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "reasonkit v") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestVerboseFlag(t *testing.T) {
	f := newRootCmd().PersistentFlags().ShorthandLookup("v")
	if f == nil || f.Name != "verbose" {
		t.Fatal("expected -v/--verbose persistent flag")
	}
}
