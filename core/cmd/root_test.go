package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m3rciful/leadbot/core/tenant"
)

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("LEADBOT_TEST_CONFIG", "/etc/leadbot/env.yaml")
	tests := []struct {
		name     string
		explicit string
		env      string
		want     string
	}{
		{name: "explicit wins", explicit: "./config.yaml", env: "LEADBOT_TEST_CONFIG", want: "./config.yaml"},
		{name: "env fallback", env: "LEADBOT_TEST_CONFIG", want: "/etc/leadbot/env.yaml"},
		{name: "nothing", env: "LEADBOT_TEST_UNSET", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveConfigPath(tt.explicit, tt.env); got != tt.want {
				t.Fatalf("ResolveConfigPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintTenants(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintTenants(&buf, tenant.DefaultRegistry()); err != nil {
		t.Fatalf("PrintTenants: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "default (default)", "premium", "UTC+"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`server:
  port: 9090
records:
  driver: memory
bot:
  tenant_routes:
    "15550001": premium
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runRoot(t, "check-config", "--config", path)
	if err != nil {
		t.Fatalf("check-config: %v", err)
	}
	for _, want := range []string{":9090/webhook", "dry_run=true", "driver=memory", "routes=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckConfigRejectsUnknownRoute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("bot:\n  tenant_routes:\n    \"1\": ghost\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runRoot(t, "check-config", "--config", path); err == nil {
		t.Fatal("expected error for unknown tenant route")
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := runRoot(t, "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out, "dev") {
		t.Fatalf("version output = %q", out)
	}
}
