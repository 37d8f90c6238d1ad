package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texpm/texpm/pkg/cache"
	"github.com/texpm/texpm/pkg/errors"
)

func testManager(mirrors ...Mirror) *Manager {
	return &Manager{
		Mirrors:      mirrors,
		Cache:        cache.NewNullCache(),
		Client:       &http.Client{Timeout: 2 * time.Second},
		ProbeTimeout: 2 * time.Second,
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"name": "gwdg", "url": "https://ftp.gwdg.de/pub/ctan/", "country": "Germany", "continent": "Europe", "sponsor": "GWDG", "https": true},
			{"name": "utah", "url": "https://ctan.math.utah.edu/ctan/", "country": "USA", "continent": "North America", "https": true}
		]`))
	}))
	defer srv.Close()

	m := NewManager(cache.NewNullCache())
	m.ListURL = srv.URL

	mirrors, err := m.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, mirrors, 2)
	assert.Equal(t, "gwdg", mirrors[0].Name)
	assert.Equal(t, "Germany", mirrors[0].Country)
	assert.True(t, mirrors[0].HTTPS)
	assert.Equal(t, mirrors, m.Mirrors, "Fetch should replace the manager's list")
}

func TestFetchFallsBackToBuiltin(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // refuse connections

	m := NewManager(cache.NewNullCache())
	m.ListURL = dead.URL
	m.Client = &http.Client{Timeout: time.Second}

	mirrors, err := m.Fetch(context.Background())
	require.NoError(t, err, "an unreachable endpoint should not be fatal")
	assert.Equal(t, Builtin(), mirrors)
}

func TestFetchUsesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`[{"name": "gwdg", "url": "https://ftp.gwdg.de/pub/ctan/", "country": "Germany"}]`))
	}))
	defer srv.Close()

	fileCache, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	m := NewManager(fileCache)
	m.ListURL = srv.URL

	ctx := context.Background()
	_, err = m.Fetch(ctx)
	require.NoError(t, err)

	mirrors, err := m.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second fetch should come from the cache")
	assert.Equal(t, "gwdg", mirrors[0].Name)
}

func TestByName(t *testing.T) {
	m := NewManager(cache.NewNullCache())

	mir, err := m.ByName("USTC")
	require.NoError(t, err)
	assert.Equal(t, "ustc", mir.Name, "lookup should be case-insensitive")

	_, err = m.ByName("nope")
	assert.True(t, errors.Is(err, errors.ErrCodeMirrorNotFound))
}

func TestSelectBest(t *testing.T) {
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer fast.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer broken.Close()

	m := testManager(
		Mirror{Name: "broken", URL: broken.URL},
		Mirror{Name: "fast", URL: fast.URL},
	)

	best, err := m.SelectBest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fast", best.Name, "the responding mirror should win")
}

func TestSelectBestAllDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // refuse connections

	m := testManager(Mirror{Name: "dead", URL: dead.URL})
	m.ProbeTimeout = 500 * time.Millisecond

	_, err := m.SelectBest(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeNetwork))
}

func TestSelectBestUsesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	fileCache, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	m := testManager(Mirror{Name: "only", URL: srv.URL})
	m.Cache = fileCache

	ctx := context.Background()
	_, err = m.SelectBest(ctx)
	require.NoError(t, err)
	probesAfterFirst := hits

	best, err := m.SelectBest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "only", best.Name)
	assert.Equal(t, probesAfterFirst, hits, "second call should hit the cache, not the network")
}

func TestURLs(t *testing.T) {
	m := Mirror{Name: "ustc", URL: "https://mirrors.ustc.edu.cn/CTAN/"}

	assert.Equal(t, "https://mirrors.ustc.edu.cn/CTAN/macros/latex/contrib/minted.zip", PackageURL(m, "minted"))
	assert.Equal(t, "https://mirrors.ustc.edu.cn/CTAN/systems/texlive/tlnet/tlpkg/texlive.tlpdb", IndexURL(m))
}
