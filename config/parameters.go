// Package config implements the hot-reloadable parameter store (C9): a
// fixed, typed set of operator-editable values backed by a YAML file,
// replacing the source system's dynamic-attribute parameter manager with
// an explicit struct per key.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Parameters holds the recognised configuration keys (spec.md §4.7).
type Parameters struct {
	BotToken              string `yaml:"bot_token"`
	ShopID                string `yaml:"shop_id"`
	SecretWord1           string `yaml:"secret_word_1"`
	SecretWord2           string `yaml:"secret_word_2"`
	YookassaProviderToken string `yaml:"yookassa_provider_token"`
	FreeCommentsLimit     int    `yaml:"free_comments_limit"`
	ParseCommentsCost     int    `yaml:"parse_comments_cost"`
	HistoryParseCost      int    `yaml:"history_parse_cost"`
	SupportLink           string `yaml:"support_link"`
	RequiredChannels      string `yaml:"required_channels"`
}

type document struct {
	Parameters Parameters `yaml:"parameters"`
}

// defaults mirror a fresh install: no secrets configured, conservative quotas.
func defaults() Parameters {
	return Parameters{
		FreeCommentsLimit: 3,
		ParseCommentsCost: 1,
		HistoryParseCost:  5,
	}
}

// Store is a sync.RWMutex-guarded in-memory copy of Parameters, persisted
// to a YAML file. Reads return the in-memory value directly; writes update
// memory first, then rewrite the file whole.
type Store struct {
	mu     sync.RWMutex
	path   string
	params Parameters
}

// Load reads path into a Store, creating it with defaults if it does not exist yet.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.params = defaults()
		if saveErr := s.persist(); saveErr != nil {
			return nil, errors.Wrapf(saveErr, "create default parameters file %s", path)
		}
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read parameters file %s", path)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse parameters file %s", path)
	}
	s.params = doc.Parameters
	return s, nil
}

func (s *Store) persist() error {
	data, err := yaml.Marshal(document{Parameters: s.params})
	if err != nil {
		return errors.Wrap(err, "marshal parameters")
	}
	if err := os.WriteFile(s.path, data, 0o640); err != nil {
		return errors.Wrapf(err, "write parameters file %s", s.path)
	}
	return nil
}

// Snapshot returns a copy of the current parameters.
func (s *Store) Snapshot() Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// RequiredChannelList splits RequiredChannels on commas, trimming whitespace
// and dropping empty entries.
func (p Parameters) RequiredChannelList() []string {
	if strings.TrimSpace(p.RequiredChannels) == "" {
		return nil
	}
	parts := strings.Split(p.RequiredChannels, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Get returns the current string representation of a recognised key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := fields[key]
	if !ok {
		return "", false
	}
	return f.format(&s.params), true
}

// Set updates key, coercing value to the type of the key's current field
// (string or int), then rewrites the parameters file.
func (s *Store) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return errors.Errorf("unrecognised parameter %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := f.parse(&s.params, value); err != nil {
		return errors.Wrapf(err, "set parameter %q", key)
	}
	return s.persist()
}

type fieldAccessor struct {
	format func(*Parameters) string
	parse  func(*Parameters, string) error
}

var fields = map[string]fieldAccessor{
	"bot_token": {
		format: func(p *Parameters) string { return p.BotToken },
		parse:  func(p *Parameters, v string) error { p.BotToken = v; return nil },
	},
	"shop_id": {
		format: func(p *Parameters) string { return p.ShopID },
		parse:  func(p *Parameters, v string) error { p.ShopID = v; return nil },
	},
	"secret_word_1": {
		format: func(p *Parameters) string { return p.SecretWord1 },
		parse:  func(p *Parameters, v string) error { p.SecretWord1 = v; return nil },
	},
	"secret_word_2": {
		format: func(p *Parameters) string { return p.SecretWord2 },
		parse:  func(p *Parameters, v string) error { p.SecretWord2 = v; return nil },
	},
	"yookassa_provider_token": {
		format: func(p *Parameters) string { return p.YookassaProviderToken },
		parse:  func(p *Parameters, v string) error { p.YookassaProviderToken = v; return nil },
	},
	"free_comments_limit": {
		format: func(p *Parameters) string { return strconv.Itoa(p.FreeCommentsLimit) },
		parse: func(p *Parameters, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			p.FreeCommentsLimit = n
			return nil
		},
	},
	"parse_comments_cost": {
		format: func(p *Parameters) string { return strconv.Itoa(p.ParseCommentsCost) },
		parse: func(p *Parameters, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			p.ParseCommentsCost = n
			return nil
		},
	},
	"history_parse_cost": {
		format: func(p *Parameters) string { return strconv.Itoa(p.HistoryParseCost) },
		parse: func(p *Parameters, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			p.HistoryParseCost = n
			return nil
		},
	},
	"support_link": {
		format: func(p *Parameters) string { return p.SupportLink },
		parse:  func(p *Parameters, v string) error { p.SupportLink = v; return nil },
	},
	"required_channels": {
		format: func(p *Parameters) string { return p.RequiredChannels },
		parse:  func(p *Parameters, v string) error { p.RequiredChannels = v; return nil },
	},
}
