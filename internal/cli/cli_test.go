package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/texpm/texpm/pkg/config"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()
	// Keep first-run bootstrap away from the real user config
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return New(io.Discard, LogInfo)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := testCLI(t).RootCommand()

	want := []string{
		"init", "install", "remove", "update", "list", "search", "info",
		"analyze", "compile", "mirror", "config", "cache", "completion",
	}
	have := make(map[string]bool)
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	root := testCLI(t).RootCommand()
	root.SetArgs([]string{"init", "paper"})
	root.SetOut(io.Discard)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("init error: %v", err)
	}

	project, err := config.LoadProject(filepath.Join(dir, "paper"))
	if err != nil {
		t.Fatalf("project config not written: %v", err)
	}
	if project.Package.Name != "paper" {
		t.Errorf("project name = %q", project.Package.Name)
	}
	if _, err := os.Stat(filepath.Join(dir, "paper", "main.tex")); err != nil {
		t.Errorf("main.tex not written: %v", err)
	}
}

func TestInitCommandRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	root := testCLI(t).RootCommand()
	root.SetArgs([]string{"init"})
	root.SetOut(io.Discard)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("first init error: %v", err)
	}

	root = testCLI(t).RootCommand()
	root.SetArgs([]string{"init"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Error("second init should fail")
	}
}

func TestTail(t *testing.T) {
	if got := tail("a\nb\nc", 2); got != "b\nc" {
		t.Errorf("tail = %q", got)
	}
	if got := tail("a\nb", 5); got != "a\nb" {
		t.Errorf("tail of short input = %q", got)
	}
}
