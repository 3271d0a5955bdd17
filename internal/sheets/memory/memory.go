package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"zakatledger/internal/commission"
	ports "zakatledger/internal/sheets"
)

// Source holds commission configs in memory. It backs local development and
// the CONFIG_SEED_FILE import.
type Source struct {
	mu      sync.Mutex
	name    string
	configs map[string]commission.Config
}

var _ ports.ConfigSource = (*Source)(nil)

func New(configs ...commission.Config) *Source {
	s := &Source{name: "memory", configs: make(map[string]commission.Config)}
	for _, c := range configs {
		s.configs[c.FiscalYearID] = c
	}
	return s
}

// NewFromFile loads a JSON array of configs:
//
//	[{"fiscal_year_id": "2025", "basis_mode": "gross_before_reconciliation",
//	  "overrides": {"infak": "15"}}]
//
// A missing basis_mode means the default.
func NewFromFile(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config seed %s: %w", path, err)
	}
	var configs []commission.Config
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("decode config seed %s: %w", path, err)
	}
	for i := range configs {
		if configs[i].BasisMode == "" {
			configs[i].BasisMode = commission.DefaultBasisMode
		}
		if err := configs[i].Validate(); err != nil {
			return nil, fmt.Errorf("config seed %s entry %d: %w", path, i, err)
		}
	}
	s := New(configs...)
	s.name = "file:" + path
	return s, nil
}

func (s *Source) Name() string {
	return s.name
}

// Set adds or replaces one config.
func (s *Source) Set(c commission.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[c.FiscalYearID] = c
}

// FetchConfigs returns the configs ordered by fiscal year.
func (s *Source) FetchConfigs(_ context.Context) ([]commission.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]commission.Config, 0, len(s.configs))
	for _, c := range s.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiscalYearID < out[j].FiscalYearID })
	return out, nil
}
