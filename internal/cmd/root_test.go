package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	var out bytes.Buffer
	c := rootCmd
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs([]string{"--help"})

	if err := c.Execute(); err != nil {
		t.Fatalf("root command --help returned error: %v", err)
	}

	output := out.String()
	for _, want := range []string{"gns3-proxy", "--config-file", "--log-level", "Usage:"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\ngot: %s", want, output)
		}
	}
}

func TestRootCommand_DefaultFlags(t *testing.T) {
	c := rootCmd
	c.SetArgs([]string{"--help"})
	if err := c.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if configFileFlag != "./gns3_proxy_config.ini" {
		t.Errorf("default config-file = %q, want ./gns3_proxy_config.ini", configFileFlag)
	}
	if logLevelFlag != "INFO" {
		t.Errorf("default log-level = %q, want INFO", logLevelFlag)
	}
}

func TestRun_MissingConfigFileIsConfigError(t *testing.T) {
	err := run("/nonexistent/gns3_proxy_config.ini", "ERROR")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitCodeError, got %T: %v", err, err)
	}
	if exitErr.Code != ExitConfigError {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitConfigError)
	}
}
