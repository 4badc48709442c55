package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/steps"
	"github.com/nomis52/taskboard/taskvars"
)

const (
	defaultListenAddr = ":8080"

	defaultEngineTimeout = 30 * time.Second

	defaultMaxConcurrentFetches = 8
	defaultFetchTimeout         = 10 * time.Second

	defaultMetricsPrefix = "taskboard"
	defaultJobName       = "taskboard"
)

// Config represents the complete application configuration.
type Config struct {
	Listener   ListenerConfig   `yaml:"listener" json:"listener"`
	Engine     EngineConfig     `yaml:"engine" json:"engine"`
	Dashboard  DashboardConfig  `yaml:"dashboard" json:"dashboard"`
	Refresh    RefreshConfig    `yaml:"refresh" json:"refresh"`
	Processes  []ProcessConfig  `yaml:"processes" json:"processes,omitempty"`
	Tasks      taskvars.Table   `yaml:"tasks" json:"tasks,omitempty"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
	Logging    logging.Config   `yaml:"logging" json:"logging"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr" json:"addr"`
}

// EngineConfig holds process engine API settings.
type EngineConfig struct {
	// URL is the base of the engine REST API, e.g. http://localhost:5050/api/camunda
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// RequestsPerSecond limits calls to the engine. Zero means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// DashboardConfig bounds progress fetching.
type DashboardConfig struct {
	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches" json:"max_concurrent_fetches"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// RefreshConfig schedules the background progress sweep. An empty schedule
// disables the sweep.
type RefreshConfig struct {
	Schedule string `yaml:"schedule" json:"schedule,omitempty"`
}

// ProcessConfig registers the ordered steps of one process kind. A kind that
// matches a built-in process replaces it.
type ProcessConfig struct {
	Kind  string       `yaml:"kind" json:"kind"`
	Steps []StepConfig `yaml:"steps" json:"steps"`
}

// StepConfig is one step of a configured process.
type StepConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
}

// MonitoringConfig holds metrics settings. VictoriaMetricsURL is only used by
// taskctl when pushing.
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url" json:"victoriametrics_url,omitempty"`
	MetricsPrefix      string `yaml:"metrics_prefix" json:"metrics_prefix"`
	JobName            string `yaml:"jobname" json:"jobname"`
}

// Validate performs validation on the configuration. Every problem found is
// reported.
func (c *Config) Validate() error {
	var errs []error

	if c.Engine.URL == "" {
		errs = append(errs, errors.New("engine url is required"))
	} else if u, err := url.Parse(c.Engine.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("engine url %q must include scheme and host", c.Engine.URL))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, errors.New("engine timeout must be positive"))
	}
	if c.Engine.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("engine requests_per_second must not be negative"))
	}
	if c.Dashboard.MaxConcurrentFetches < 1 {
		errs = append(errs, errors.New("dashboard max_concurrent_fetches must be at least 1"))
	}
	if c.Dashboard.FetchTimeout <= 0 {
		errs = append(errs, errors.New("dashboard fetch_timeout must be positive"))
	}
	if c.Refresh.Schedule != "" {
		if _, err := ParseSchedule(c.Refresh.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("refresh schedule: %w", err))
		}
	}
	for i, p := range c.Processes {
		if p.Kind == "" {
			errs = append(errs, fmt.Errorf("process %d has no kind", i))
		}
		if len(p.Steps) == 0 {
			errs = append(errs, fmt.Errorf("process %q has no steps", p.Kind))
		}
	}
	if _, err := c.Registry(); err != nil {
		errs = append(errs, err)
	}
	for key, entry := range c.Tasks {
		if entry.Decision == "" && len(entry.Optional) == 0 {
			errs = append(errs, fmt.Errorf("task %q defines no variables", key))
		}
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	return errors.Join(errs...)
}

// SetDefaults sets reasonable default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = defaultEngineTimeout
	}
	if c.Dashboard.MaxConcurrentFetches == 0 {
		c.Dashboard.MaxConcurrentFetches = defaultMaxConcurrentFetches
	}
	if c.Dashboard.FetchTimeout == 0 {
		c.Dashboard.FetchTimeout = defaultFetchTimeout
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	c.Logging.SetDefaults()
}

// Registry builds the step registry: the built-in order process plus the
// configured processes, with configured kinds replacing built-ins.
func (c *Config) Registry() (*steps.Registry, error) {
	byKind := map[string]steps.Sequence{
		steps.OrderProcessKind: steps.OrderProcess(),
	}
	order := []string{steps.OrderProcessKind}

	var errs []error
	for _, p := range c.Processes {
		seq := steps.Sequence{ProcessKind: p.Kind}
		for _, s := range p.Steps {
			kind, err := steps.ParseKind(s.Kind)
			if err != nil {
				errs = append(errs, fmt.Errorf("process %q step %q: %w", p.Kind, s.ID, err))
				continue
			}
			seq.Steps = append(seq.Steps, steps.StepDefinition{ID: s.ID, Name: s.Name, Kind: kind})
		}
		if _, exists := byKind[p.Kind]; !exists {
			order = append(order, p.Kind)
		} else if p.Kind != steps.OrderProcessKind {
			errs = append(errs, fmt.Errorf("%w %q", steps.ErrDuplicateProcessKind, p.Kind))
			continue
		}
		byKind[p.Kind] = seq
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	seqs := make([]steps.Sequence, 0, len(order))
	for _, kind := range order {
		seqs = append(seqs, byKind[kind])
	}
	return steps.NewRegistry(seqs...)
}

// TaskTable returns the built-in task variable table overlaid with the
// configured entries.
func (c *Config) TaskTable() taskvars.Table {
	return taskvars.DefaultTable().Merge(c.Tasks)
}

// Redacted returns a copy safe to expose over HTTP: credentials in URLs are
// masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Engine.URL = redactURL(c.Engine.URL)
	out.Monitoring.VictoriaMetricsURL = redactURL(c.Monitoring.VictoriaMetricsURL)
	out.Processes = append([]ProcessConfig(nil), c.Processes...)
	out.Tasks = taskvars.Table{}.Merge(c.Tasks)
	return out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

// ParseSchedule parses a standard five field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(spec)
}

// LoadConfig reads the YAML config file at the given path, applies defaults
// and validates it.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
