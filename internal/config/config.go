// Package config holds the workshop and server configuration.
// Configurations are loaded from TOML files with XDG-compliant paths.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atlasherbaltea-design/otg-track-99/internal/codegen"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Workshop WorkshopConfig `toml:"workshop"`
	Insights InsightsConfig `toml:"insights"`
}

// ServerConfig controls the HTTP process.
type ServerConfig struct {
	Addr  string `toml:"addr"`
	DB    string `toml:"db"`
	Log   string `toml:"log"`
	Admin string `toml:"admin"`
}

// WorkshopConfig lists the shop floor vocabulary offered to users.
type WorkshopConfig struct {
	Machines     []string                      `toml:"machines"`
	Suppliers    []string                      `toml:"suppliers"`
	Operators    []string                      `toml:"operators"`
	CustomFields []model.CustomFieldDefinition `toml:"custom_fields"`
	Templates    []TemplateConfig              `toml:"templates"`
}

// TemplateConfig adds or overrides the code templates of one machine.
type TemplateConfig struct {
	Machine      string `toml:"machine"`
	ClichePrefix string `toml:"cliche_prefix"`
	ClicheSuffix string `toml:"cliche_suffix"`
	FormePrefix  string `toml:"forme_prefix"`
	FormeSuffix  string `toml:"forme_suffix"`
}

// InsightsConfig configures the optional AI summary client.
type InsightsConfig struct {
	Endpoint string   `toml:"endpoint"`
	Model    string   `toml:"model"`
	APIKey   string   `toml:"api_key"`
	Timeout  Duration `toml:"timeout"`
}

// Enabled reports whether an API key is configured.
func (c InsightsConfig) Enabled() bool {
	return c.APIKey != ""
}

// Duration is a time.Duration written as a string such as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:  ":8080",
			DB:    "otgtrack.db",
			Admin: "admin",
		},
		Workshop: WorkshopConfig{
			Machines:  []string{"MACARBOX", "ASAHI CELMACH", "DRO", "CHROMA HQP"},
			Suppliers: []string{"LTE", "GRABALFA", "CHIMO", "SANCHEZ", "AMGM", "MILLER"},
			Operators: []string{
				"HILALI", "MOHAMED", "REDA", "LAHCEN", "ABDERAHIM",
				"RACHID", "SAMIR", "ADIL", "ANASS", "MERYEM",
				"YOUSSEF", "SALMA",
			},
			CustomFields: []model.CustomFieldDefinition{},
		},
		Insights: InsightsConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Model:    "gemini-3-flash-preview",
			Timeout:  Duration{30 * time.Second},
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := c.Workshop.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("workshop: %w", err))
	}

	if err := c.Insights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("insights: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks the server section.
func (s *ServerConfig) Validate() error {
	var errs []error
	if s.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if s.DB == "" {
		errs = append(errs, errors.New("db is required"))
	}
	return errors.Join(errs...)
}

// Validate checks the workshop section.
func (w *WorkshopConfig) Validate() error {
	var errs []error

	if len(w.Machines) == 0 {
		errs = append(errs, errors.New("at least one machine is required"))
	}
	if dup := firstDuplicate(w.Machines); dup != "" {
		errs = append(errs, fmt.Errorf("duplicate machine %q", dup))
	}
	if dup := firstDuplicate(w.Suppliers); dup != "" {
		errs = append(errs, fmt.Errorf("duplicate supplier %q", dup))
	}

	ids := make([]string, 0, len(w.CustomFields))
	for i, f := range w.CustomFields {
		if f.ID == "" {
			errs = append(errs, fmt.Errorf("custom field %d: id is required", i))
		}
		switch f.Type {
		case model.CustomFieldText, model.CustomFieldNumber, model.CustomFieldDate:
		default:
			errs = append(errs, fmt.Errorf("custom field %q: invalid type %q", f.ID, f.Type))
		}
		ids = append(ids, f.ID)
	}
	if dup := firstDuplicate(ids); dup != "" {
		errs = append(errs, fmt.Errorf("duplicate custom field %q", dup))
	}

	for i, t := range w.Templates {
		if strings.TrimSpace(t.Machine) == "" {
			errs = append(errs, fmt.Errorf("template %d: machine is required", i))
		}
		if t.ClichePrefix == "" && t.ClicheSuffix == "" {
			errs = append(errs, fmt.Errorf("template %q: cliche prefix or suffix is required", t.Machine))
		}
		if t.FormePrefix == "" && t.FormeSuffix == "" {
			errs = append(errs, fmt.Errorf("template %q: forme prefix or suffix is required", t.Machine))
		}
	}

	return errors.Join(errs...)
}

// Validate checks the insights section.
func (c *InsightsConfig) Validate() error {
	if c.Enabled() && c.Endpoint == "" {
		return errors.New("endpoint is required when an api key is set")
	}
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// CodeTemplates returns the built-in machine templates merged with the
// configured ones.
func (w *WorkshopConfig) CodeTemplates() codegen.Templates {
	extra := make(codegen.Templates, len(w.Templates))
	for _, t := range w.Templates {
		extra[t.Machine] = codegen.MachineTemplate{
			Cliche: codegen.Template{Prefix: t.ClichePrefix, Suffix: t.ClicheSuffix},
			Forme:  codegen.Template{Prefix: t.FormePrefix, Suffix: t.FormeSuffix},
		}
	}
	return codegen.DefaultTemplates.Merge(extra)
}

// DefaultMachine returns the machine assigned when none is given.
func (w *WorkshopConfig) DefaultMachine() string {
	if len(w.Machines) == 0 {
		return ""
	}
	return w.Machines[0]
}

// HasMachine reports whether name is a configured machine.
func (w *WorkshopConfig) HasMachine(name string) bool {
	return slices.Contains(w.Machines, name)
}

func firstDuplicate(values []string) string {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return v
		}
		seen[v] = true
	}
	return ""
}
