package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-console/internal/domain"
)

const (
	DefaultPath = "/etc/concrnt/console.yaml"
	PathEnv     = "CONCRNT_CONSOLE_CONFIG"
)

const (
	DriverMemory    = "memory"
	DriverRedis     = "redis"
	DriverMemcached = "memcached"
	DriverPostgres  = "postgres"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Backend Backend `yaml:"backend"`
	Session Session `yaml:"session"`
	Portal  Portal  `yaml:"portal"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	LogLevel      string `yaml:"logLevel"` // debug, info, warn, error
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	SessionSecret string `yaml:"sessionSecret"`
	SecureCookie  bool   `yaml:"secureCookie"`
}

type Backend struct {
	Host            string        `yaml:"host"`
	Scheme          string        `yaml:"scheme"`
	Timeout         time.Duration `yaml:"timeout"`
	ProfileCacheTTL time.Duration `yaml:"profileCacheTTL"`
}

type Session struct {
	Driver        string        `yaml:"driver"` // memory, redis, memcached, postgres
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisDB       int           `yaml:"redisDB"`
	MemcachedAddr string        `yaml:"memcachedAddr"`
	PostgresDsn   string        `yaml:"postgresDsn"`
}

type Portal struct {
	AdminTag           string                    `yaml:"adminTag"`
	SubjectClaim       string                    `yaml:"subjectClaim"` // iss, aud
	RegistrationInputs domain.RegistrationInputs `yaml:"registrationInputs"`
	RedirectDelay      time.Duration             `yaml:"redirectDelay"`
}

// Default returns a configuration usable for local development once a
// backend host and a session secret are filled in.
func Default() Config {
	return Config{
		Server: Server{
			Listen:        ":8080",
			LogLevel:      "info",
			TraceEndpoint: "localhost:4318",
		},
		Backend: Backend{
			Scheme:          "https",
			Timeout:         15 * time.Second,
			ProfileCacheTTL: time.Minute,
		},
		Session: Session{
			Driver:        DriverMemory,
			TTL:           30 * 24 * time.Hour,
			RedisAddr:     "localhost:6379",
			MemcachedAddr: "localhost:11211",
		},
		Portal: Portal{
			AdminTag:     domain.DefaultAdminTag,
			SubjectClaim: domain.DefaultSubjectClaim,
			RegistrationInputs: domain.RegistrationInputs{
				domain.RegistrationInputToken,
				domain.RegistrationInputSigned,
			},
			RedirectDelay: time.Second,
		},
	}
}

// ResolvePath picks the flag value, then the environment, then the default.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(PathEnv); env != "" {
		return env
	}
	return DefaultPath
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to open config")
	}
	defer file.Close()

	config := Default()
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}

	config.fillDefaults()

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

// fillDefaults restores defaults for keys present in the file but left empty.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	if c.Backend.Scheme == "" {
		c.Backend.Scheme = def.Backend.Scheme
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = def.Backend.Timeout
	}
	if c.Session.Driver == "" {
		c.Session.Driver = def.Session.Driver
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = def.Session.TTL
	}
	if c.Portal.AdminTag == "" {
		c.Portal.AdminTag = def.Portal.AdminTag
	}
	if c.Portal.SubjectClaim == "" {
		c.Portal.SubjectClaim = def.Portal.SubjectClaim
	}
	if len(c.Portal.RegistrationInputs) == 0 {
		c.Portal.RegistrationInputs = def.Portal.RegistrationInputs
	}
	if c.Portal.RedirectDelay < 0 {
		c.Portal.RedirectDelay = 0
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.Host) == "" {
		return errors.New("backend.host is required")
	}
	if len(c.Server.SessionSecret) < 32 {
		return errors.New("server.sessionSecret must be at least 32 bytes")
	}
	switch c.Session.Driver {
	case DriverMemory, DriverRedis, DriverMemcached:
	case DriverPostgres:
		if c.Session.PostgresDsn == "" {
			return errors.New("session.postgresDsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown session driver: %s", c.Session.Driver)
	}
	switch c.Portal.SubjectClaim {
	case "iss", "aud", "sub":
	default:
		return fmt.Errorf("unknown subject claim: %s", c.Portal.SubjectClaim)
	}
	for _, input := range c.Portal.RegistrationInputs {
		if input != domain.RegistrationInputToken && input != domain.RegistrationInputSigned {
			return fmt.Errorf("unknown registration input: %s", input)
		}
	}
	if _, err := c.Server.Level(); err != nil {
		return err
	}
	return nil
}

func (s Server) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s.LogLevel))
	if err != nil {
		return slog.LevelInfo, errors.Wrap(err, "invalid server.logLevel")
	}
	return level, nil
}
