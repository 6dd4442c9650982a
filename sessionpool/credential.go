package sessionpool

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Kind distinguishes the pool a credential belongs to. The realtime pool
// keeps clients connected for the process lifetime; the history pool checks
// clients out and back in per extraction (spec.md §4.1/§4.4).
type Kind string

const (
	KindRealtime Kind = "realtime"
	KindHistory  Kind = "history"
)

// Credential is a discovered `{name}.session` + `{name}.json` pair.
type Credential struct {
	Name        string
	Pool        Kind
	SessionPath string

	AppID     int    `json:"app_id"`
	AppHash   string `json:"app_hash"`
	Phone     string `json:"phone,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DiscoverCredentials scans dir for valid `{name}.session`+`{name}.json`
// pairs. A pair is valid iff both files exist and the JSON sidecar parses
// with app_id and app_hash populated; invalid pairs are logged and skipped,
// never returned as an error (spec.md §4.1).
func DiscoverCredentials(dir string, kind Kind) ([]Credential, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var creds []Credential
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".session") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".session")
		sessionPath := filepath.Join(dir, name+".session")
		sidecarPath := filepath.Join(dir, name+".json")

		raw, err := os.ReadFile(sidecarPath)
		if err != nil {
			slog.Warn("sessionpool: skipping credential with missing sidecar",
				slog.String("name", name), slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}

		var cred Credential
		if err := json.Unmarshal(raw, &cred); err != nil {
			slog.Warn("sessionpool: skipping credential with unparseable sidecar",
				slog.String("name", name), slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		if cred.AppID == 0 || cred.AppHash == "" {
			slog.Warn("sessionpool: skipping credential missing app_id/app_hash",
				slog.String("name", name), slog.String("dir", dir))
			continue
		}

		cred.Name = name
		cred.Pool = kind
		cred.SessionPath = sessionPath
		creds = append(creds, cred)
	}
	return creds, nil
}
