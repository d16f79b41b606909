package logging

import "time"

type Config struct {
	EnabledSinks     []string
	BufferSize       int
	MinimumSeverity  Severity
	CategorySeverity map[string]Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:    []string{"console"},
		BufferSize:      512,
		MinimumSeverity: SeverityInfo,
		// A malformed or unrecognized wire packet means the catalog has
		// drifted from what the live server is actually sending; that is
		// worth seeing even when an operator has turned everything else
		// down to warnings only.
		CategorySeverity: map[string]Severity{
			CategoryProtocol: SeverityDebug,
		},
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// SeverityFor reports the minimum severity that passes the router for
// the given event category, falling back to MinimumSeverity when the
// category has no override in CategorySeverity.
func (c Config) SeverityFor(category string) Severity {
	if sev, ok := c.CategorySeverity[category]; ok {
		return sev
	}
	return c.MinimumSeverity
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
