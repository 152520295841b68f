package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WhileEndless/go-hur/pkg/requester"
)

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hur", "config.toml")

	if err := CreateDefaultConfig(path); err != nil {
		t.Fatalf("CreateDefaultConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != `redirect_mode = "NOFOLLOW"` {
		t.Errorf("config = %q", got)
	}

	if err := CreateDefaultConfig(path); err == nil {
		t.Error("second CreateDefaultConfig should fail")
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.hasRedirectMode || cfg.RedirectMode != requester.NoFollow {
		t.Errorf("LoadConfig = %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg.hasRedirectMode {
		t.Error("missing file should not define a redirect mode")
	}

	follow := filepath.Join(dir, "follow.toml")
	os.WriteFile(follow, []byte("redirect_mode = \"FOLLOW\"\n"), 0o600)
	cfg, err = LoadConfig(follow)
	if err != nil || cfg.RedirectMode != requester.Follow {
		t.Errorf("LoadConfig(follow) = %+v, %v", cfg, err)
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("redirect_mode = \"SOMETIMES\"\n"), 0o600)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("unknown redirect mode should fail")
	}
}

func TestRedirectModePrecedence(t *testing.T) {
	interactive := &Config{RedirectMode: requester.Interactive, hasRedirectMode: true}

	tests := []struct {
		name string
		flag string
		cfg  *Config
		want requester.RedirectMode
	}{
		{name: "flag wins", flag: "follow", cfg: interactive, want: requester.Follow},
		{name: "config", cfg: interactive, want: requester.Interactive},
		{name: "empty config", cfg: &Config{}, want: requester.NoFollow},
		{name: "no config", want: requester.NoFollow},
	}
	for _, tt := range tests {
		got, err := redirectMode(tt.flag, tt.cfg)
		if err != nil || got != tt.want {
			t.Errorf("%s: redirectMode = %v, %v; want %v", tt.name, got, err, tt.want)
		}
	}

	if _, err := redirectMode("bogus", nil); err == nil {
		t.Error("bogus flag should fail")
	}
}
