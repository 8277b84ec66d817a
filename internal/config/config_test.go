package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/totegamma/concrnt-console/internal/domain"
)

const secret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  sessionSecret: "`+secret+`"
backend:
  host: example.concrnt.world
  timeout: 5s
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.Backend.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", config.Backend.Timeout)
	}
	if config.Server.Listen != ":8080" || config.Session.Driver != DriverMemory {
		t.Fatalf("defaults not applied: %+v", config)
	}
	if config.Portal.AdminTag != "_admin" || config.Portal.SubjectClaim != "iss" {
		t.Fatalf("portal defaults not applied: %+v", config.Portal)
	}
	if !config.Portal.RegistrationInputs.Accepts(domain.RegistrationInputToken) || !config.Portal.RegistrationInputs.Accepts(domain.RegistrationInputSigned) {
		t.Fatalf("expected both registration inputs by default")
	}
}

func TestLoadPortalSection(t *testing.T) {
	path := writeConfig(t, `
server:
  sessionSecret: "`+secret+`"
  logLevel: debug
backend:
  host: example.concrnt.world
portal:
  subjectClaim: aud
  registrationInputs: [signed]
  redirectDelay: 2s
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.Portal.SubjectClaim != "aud" || config.Portal.RedirectDelay != 2*time.Second {
		t.Fatalf("unexpected portal %+v", config.Portal)
	}
	if config.Portal.RegistrationInputs.Accepts(domain.RegistrationInputToken) {
		t.Fatalf("token input must be disabled")
	}
	level, err := config.Server.Level()
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("unexpected level %v %v", level, err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.Backend.Host = "example.concrnt.world"
		c.Server.SessionSecret = secret
		return c
	}

	tests := map[string]struct {
		mutate func(*Config)
		errMsg string
	}{
		"missing host":   {func(c *Config) { c.Backend.Host = "" }, "backend.host"},
		"short secret":   {func(c *Config) { c.Server.SessionSecret = "short" }, "sessionSecret"},
		"unknown driver": {func(c *Config) { c.Session.Driver = "etcd" }, "session driver"},
		"postgres dsn":   {func(c *Config) { c.Session.Driver = DriverPostgres }, "postgresDsn"},
		"unknown claim":  {func(c *Config) { c.Portal.SubjectClaim = "email" }, "subject claim"},
		"unknown input": {func(c *Config) {
			c.Portal.RegistrationInputs = []domain.RegistrationInput{"cookie"}
		}, "registration input"},
		"bad level": {func(c *Config) { c.Server.LogLevel = "loud" }, "logLevel"},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(PathEnv, "/tmp/from-env.yaml")
	if got := ResolvePath("/tmp/flag.yaml"); got != "/tmp/flag.yaml" {
		t.Fatalf("flag must win, got %s", got)
	}
	if got := ResolvePath(""); got != "/tmp/from-env.yaml" {
		t.Fatalf("env must be used, got %s", got)
	}
	t.Setenv(PathEnv, "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Fatalf("default expected, got %s", got)
	}
}
