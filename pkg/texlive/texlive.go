// Package texlive locates and inspects a local TeX Live installation.
//
// Detection is a pure function of the environment: it returns an
// Installation value that callers pass around explicitly instead of
// caching detection state in a long-lived object.
package texlive

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/texpm/texpm/pkg/errors"
)

// Installation describes a detected TeX Live tree.
type Installation struct {
	Root      string // e.g. /usr/local/texlive/2024
	Version   string // release year, e.g. "2024"
	TexmfDist string // Root/texmf-dist
}

// envVars are checked first, in order, for an explicit root override.
var envVars = []string{
	"TEXLIVE_ROOT",
	"TEXMFROOT",
	"TEXLIVE_INSTALL_PREFIX",
	"TEX_ROOT",
	"TEXLIVE_PATH",
}

// commonPrefixes hold per-year TeX Live trees on typical installs.
var commonPrefixes = []string{
	"/usr/local/texlive",
	"/opt/texlive",
	"/usr/share/texlive",
	"C:\\texlive",
}

const (
	minYear = 2015
	maxYear = 2030
)

// Detect locates a TeX Live installation. Overrides are honored in
// order: the explicit root argument (from configuration), environment
// variables, kpsewhich, then well-known filesystem locations.
func Detect(override string) (*Installation, error) {
	if override != "" {
		if inst := installationAt(override); inst != nil {
			return inst, nil
		}
		return nil, errors.New(errors.ErrCodeTeXLiveNotFound, "configured texlive_root %s is not a TeX Live tree", override)
	}

	for _, env := range envVars {
		if root := os.Getenv(env); root != "" {
			if inst := installationAt(root); inst != nil {
				return inst, nil
			}
		}
	}

	if root := kpsewhichRoot(); root != "" {
		if inst := installationAt(root); inst != nil {
			return inst, nil
		}
	}

	var prefixes []string
	if home, err := os.UserHomeDir(); err == nil {
		prefixes = append(prefixes, filepath.Join(home, "texlive"))
	}
	prefixes = append(prefixes, commonPrefixes...)

	for _, prefix := range prefixes {
		if root := latestYearDir(prefix); root != "" {
			if inst := installationAt(root); inst != nil {
				return inst, nil
			}
		}
	}

	return nil, errors.New(errors.ErrCodeTeXLiveNotFound, "no TeX Live installation found")
}

// installationAt validates a candidate root and fills in metadata.
func installationAt(root string) *Installation {
	texmf := filepath.Join(root, "texmf-dist")
	if info, err := os.Stat(texmf); err != nil || !info.IsDir() {
		return nil
	}
	return &Installation{
		Root:      root,
		Version:   detectVersion(root),
		TexmfDist: texmf,
	}
}

var yearRe = regexp.MustCompile(`\b(20\d{2})\b`)

// detectVersion extracts the release year from the root path, falling
// back to the tlpdb release entry, then to the tex version banner.
func detectVersion(root string) string {
	for _, part := range strings.Split(filepath.ToSlash(root), "/") {
		if m := yearRe.FindString(part); m != "" {
			if y, err := strconv.Atoi(m); err == nil && y >= minYear && y <= maxYear {
				return m
			}
		}
	}
	if v := releaseFromTLPDB(filepath.Join(root, "tlpkg", "texlive.tlpdb")); v != "" {
		return v
	}
	if out, err := exec.Command("tex", "--version").Output(); err == nil {
		if v := versionFromBanner(string(out)); v != "" {
			return v
		}
	}
	return "unknown"
}

var bannerRe = regexp.MustCompile(`TeX Live (20\d{2})`)

// versionFromBanner pulls the release year out of a version banner
// such as "pdfTeX 3.141592653-2.6-1.40.26 (TeX Live 2024)".
func versionFromBanner(banner string) string {
	if m := bannerRe.FindStringSubmatch(banner); m != nil {
		return m[1]
	}
	return ""
}

// kpsewhichRoot asks the TeX path searcher for its root, if installed.
func kpsewhichRoot() string {
	for _, variable := range []string{"SELFAUTOPARENT", "TEXMFROOT"} {
		out, err := exec.Command("kpsewhich", "-var-value", variable).Output()
		if err != nil {
			continue
		}
		root := strings.TrimSpace(string(out))
		if root != "" {
			return root
		}
	}
	return ""
}

// latestYearDir returns the newest year-named subdirectory of prefix.
func latestYearDir(prefix string) string {
	entries, err := os.ReadDir(prefix)
	if err != nil {
		return ""
	}
	best := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		y, err := strconv.Atoi(e.Name())
		if err != nil || y < minYear || y > maxYear {
			continue
		}
		if y > best {
			best = y
		}
	}
	if best == 0 {
		return ""
	}
	return filepath.Join(prefix, strconv.Itoa(best))
}

// PackageInfo is one entry from the TeX Live package database.
type PackageInfo struct {
	Name      string
	ShortDesc string
}

// ListPackages parses the tlpdb and returns all package entries,
// sorted by name. Internal entries (containing a dot) are skipped.
func (inst *Installation) ListPackages() ([]PackageInfo, error) {
	path := filepath.Join(inst.Root, "tlpkg", "texlive.tlpdb")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "cannot open package database %s", path)
	}
	defer f.Close()

	var packages []PackageInfo
	var current *PackageInfo

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "name "):
			if current != nil {
				packages = append(packages, *current)
			}
			name := strings.TrimPrefix(line, "name ")
			if strings.Contains(name, ".") {
				current = nil
				continue
			}
			current = &PackageInfo{Name: name}
		case current != nil && strings.HasPrefix(line, "shortdesc "):
			current.ShortDesc = strings.TrimPrefix(line, "shortdesc ")
		}
	}
	if current != nil {
		packages = append(packages, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to read package database")
	}

	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	return packages, nil
}

// releaseFromTLPDB pulls the release year from the tlpdb, e.g.
// "depend release/2024".
func releaseFromTLPDB(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "depend release/") {
			return strings.TrimPrefix(line, "depend release/")
		}
	}
	return ""
}

// IsInstalled reports whether a package's style or class file is
// present, checking kpsewhich first and the texmf-dist tree second.
func (inst *Installation) IsInstalled(name string) bool {
	for _, ext := range []string{".sty", ".cls"} {
		out, err := exec.Command("kpsewhich", name+ext).Output()
		if err == nil && strings.TrimSpace(string(out)) != "" {
			return true
		}
	}
	for _, dir := range []string{"tex/latex", "tex/generic"} {
		base := filepath.Join(inst.TexmfDist, filepath.FromSlash(dir), name)
		for _, ext := range []string{".sty", ".cls"} {
			matches, _ := filepath.Glob(filepath.Join(base, "*"+ext))
			if len(matches) > 0 {
				return true
			}
		}
	}
	return false
}

// RefreshFilenameDB re-runs mktexlsr so newly installed files become
// visible to kpathsea.
func (inst *Installation) RefreshFilenameDB() error {
	if err := exec.Command("mktexlsr").Run(); err != nil {
		return errors.Wrap(errors.ErrCodeToolNotFound, err, "mktexlsr failed")
	}
	return nil
}
