package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	musicDir   string
	outputDir  string
	stagingDir string
	logDir     string
}

func setupCLITestEnv(t *testing.T) cliTestEnv {
	t.Helper()
	root := t.TempDir()
	env := cliTestEnv{
		configPath: filepath.Join(root, "config.toml"),
		musicDir:   filepath.Join(root, "music"),
		outputDir:  filepath.Join(root, "output"),
		stagingDir: filepath.Join(root, "staging"),
		logDir:     filepath.Join(root, "logs"),
	}
	if err := os.MkdirAll(env.musicDir, 0o755); err != nil {
		t.Fatalf("create music dir: %v", err)
	}
	content := fmt.Sprintf(
		"[paths]\nmusic_dir = %q\noutput_dir = %q\nstaging_dir = %q\nlog_dir = %q\n",
		env.musicDir, env.outputDir, env.stagingDir, env.logDir,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
