// Package mirror manages CTAN mirror discovery and selection.
//
// The mirror list comes from the CTAN mirror endpoint when reachable,
// from the cache when not, and from a builtin table as the last
// resort. Users can pin a mirror through the global config or let
// SelectBest probe each candidate and pick the fastest responder.
// Probe results are cached so repeated CLI invocations do not
// re-measure every mirror.
package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/texpm/texpm/pkg/cache"
	"github.com/texpm/texpm/pkg/errors"
	"github.com/texpm/texpm/pkg/httputil"
)

// Mirror is one CTAN archive endpoint.
type Mirror struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Country   string `json:"country"`
	Location  string `json:"location"`
	Continent string `json:"continent"`
	Sponsor   string `json:"sponsor"`
	HTTP      bool   `json:"http"`
	HTTPS     bool   `json:"https"`
	Rsync     bool   `json:"rsync"`
	FTP       bool   `json:"ftp"`
	Priority  int    `json:"priority"`
}

// Builtin returns the mirrors shipped with texpm, in priority order.
// They cover the common cases when the mirror endpoint is unreachable.
func Builtin() []Mirror {
	return []Mirror{
		{Name: "ctan", URL: "https://mirror.ctan.org/", Country: "Global", Location: "Global", Continent: "Global", Sponsor: "CTAN", HTTP: true, HTTPS: true, Priority: 1},
		{Name: "ustc", URL: "https://mirrors.ustc.edu.cn/CTAN/", Country: "China", Location: "Hefei", Continent: "Asia", Sponsor: "USTC", HTTP: true, HTTPS: true, Priority: 2},
		{Name: "tsinghua", URL: "https://mirrors.tuna.tsinghua.edu.cn/CTAN/", Country: "China", Location: "Beijing", Continent: "Asia", Sponsor: "Tsinghua University", HTTP: true, HTTPS: true, Priority: 3},
		{Name: "mit", URL: "https://mirrors.mit.edu/CTAN/", Country: "USA", Location: "Cambridge", Continent: "North America", Sponsor: "MIT", HTTP: true, Priority: 4},
	}
}

// DefaultListURL serves the current CTAN mirror list as JSON.
const DefaultListURL = "https://ctan.org/json/2.0/mirrors"

const (
	// bestKey caches the last probe winner.
	bestKey = "mirror:best"
	bestTTL = time.Hour

	// listKey caches the fetched mirror list.
	listKey = "mirror:list"
	listTTL = 24 * time.Hour
)

// Manager fetches, selects, and queries mirrors.
type Manager struct {
	Mirrors []Mirror
	Cache   cache.Cache
	Client  *http.Client

	// ListURL is the mirror-list endpoint; DefaultListURL unless
	// overridden.
	ListURL string

	// ProbeTimeout bounds each individual speed probe.
	ProbeTimeout time.Duration
}

// NewManager builds a manager seeded with the builtin mirror list.
func NewManager(c cache.Cache) *Manager {
	return &Manager{
		Mirrors:      Builtin(),
		Cache:        c,
		Client:       &http.Client{Timeout: 10 * time.Second},
		ListURL:      DefaultListURL,
		ProbeTimeout: 5 * time.Second,
	}
}

// Fetch refreshes the mirror list: cache first, then the list
// endpoint, then the builtin table. The result replaces
// Manager.Mirrors. An unreachable endpoint is not an error; offline
// use falls back to the builtin mirrors.
func (m *Manager) Fetch(ctx context.Context) ([]Mirror, error) {
	if m.Cache != nil {
		if data, hit, _ := m.Cache.Get(ctx, listKey); hit {
			var cached []Mirror
			if err := json.Unmarshal(data, &cached); err == nil && len(cached) > 0 {
				m.Mirrors = cached
				return cached, nil
			}
		}
	}

	fetched, err := m.fetchList(ctx)
	if err != nil || len(fetched) == 0 {
		m.Mirrors = Builtin()
		return m.Mirrors, nil
	}

	if m.Cache != nil {
		if data, err := json.Marshal(fetched); err == nil {
			_ = m.Cache.Set(ctx, listKey, data, listTTL)
		}
	}
	m.Mirrors = fetched
	return fetched, nil
}

// fetchList downloads and decodes the mirror list endpoint.
func (m *Manager) fetchList(ctx context.Context) ([]Mirror, error) {
	var mirrors []Mirror
	err := httputil.Retry(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ListURL, nil)
		if err != nil {
			return err
		}
		resp, err := m.Client.Do(req)
		if err != nil {
			return httputil.Transient(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return httputil.Transient(errors.New(errors.ErrCodeNetwork, "mirror list endpoint returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return errors.New(errors.ErrCodeNetwork, "mirror list endpoint returned %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&mirrors)
	})
	return mirrors, err
}

// ByName finds a mirror by its short name.
func (m *Manager) ByName(name string) (Mirror, error) {
	for _, mir := range m.Mirrors {
		if strings.EqualFold(mir.Name, name) {
			return mir, nil
		}
	}
	return Mirror{}, errors.New(errors.ErrCodeMirrorNotFound, "unknown mirror %q", name)
}

// SelectBest probes every mirror with a HEAD request and returns the
// fastest responder. A cached winner is reused until it expires.
func (m *Manager) SelectBest(ctx context.Context) (Mirror, error) {
	if m.Cache != nil {
		if data, hit, _ := m.Cache.Get(ctx, bestKey); hit {
			var cached Mirror
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	best := Mirror{}
	bestLatency := time.Duration(0)
	for _, mir := range m.Mirrors {
		latency, err := m.probe(ctx, mir)
		if err != nil {
			continue
		}
		if best.Name == "" || latency < bestLatency {
			best = mir
			bestLatency = latency
		}
	}
	if best.Name == "" {
		return Mirror{}, errors.New(errors.ErrCodeNetwork, "no mirror responded")
	}

	if m.Cache != nil {
		if data, err := json.Marshal(best); err == nil {
			_ = m.Cache.Set(ctx, bestKey, data, bestTTL)
		}
	}
	return best, nil
}

// probe measures one HEAD round trip.
func (m *Manager) probe(ctx context.Context, mir Mirror) (time.Duration, error) {
	probeCtx, cancel := context.WithTimeout(ctx, m.ProbeTimeout)
	defer cancel()

	var latency time.Duration
	err := httputil.Retry(probeCtx, 2, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, mir.URL, nil)
		if err != nil {
			return err
		}
		start := time.Now()
		resp, err := m.Client.Do(req)
		if err != nil {
			return httputil.Transient(err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return httputil.Transient(errors.New(errors.ErrCodeNetwork, "mirror returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return errors.New(errors.ErrCodeNetwork, "mirror returned %d", resp.StatusCode)
		}
		latency = time.Since(start)
		return nil
	})
	return latency, err
}

// PackageURL returns the archive URL for a package on a mirror.
func PackageURL(m Mirror, name string) string {
	return strings.TrimSuffix(m.URL, "/") + "/macros/latex/contrib/" + name + ".zip"
}

// IndexURL returns the package database URL for a mirror.
func IndexURL(m Mirror) string {
	return strings.TrimSuffix(m.URL, "/") + "/systems/texlive/tlnet/tlpkg/texlive.tlpdb"
}
