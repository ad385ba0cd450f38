// Package repository manages the wheel repository: a directory of artifact
// files plus an append-only install log. The two are kept consistent; a wheel
// file without a release record, or a release record without a wheel file,
// is reported as corruption and never silently tolerated.
package repository

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/fsutil"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
	"github.com/wheelhouse-project/wheelhouse/pkg/nameutil"
)

// LogFileName is the install log file inside the repository directory.
const LogFileName = "releases.log"

// WheelExt is the artifact file extension.
const WheelExt = ".whl"

// PyVersion is the interpreter version of a target environment, used to
// prefer a compatibility tag when resolving. The zero value means unknown.
type PyVersion struct {
	Major int
	Minor int
}

// Known reports whether the interpreter version was probed.
func (p PyVersion) Known() bool { return p.Major != 0 }

func (p PyVersion) String() string { return fmt.Sprintf("%d.%d", p.Major, p.Minor) }

// Repository is an opened wheel repository.
type Repository struct {
	dir string

	mu        sync.Mutex // serializes log appends and index mutation
	artifacts []model.Artifact
	byKey     map[string]struct{}
	byName    map[string][]model.Artifact
}

// Init creates an empty repository directory with an empty install log.
func Init(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create repository dir: %w", err)
	}
	logPath := filepath.Join(dir, LogFileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		if err := fsutil.AtomicWrite(logPath, nil, 0644); err != nil {
			return nil, fmt.Errorf("create install log: %w", err)
		}
	}
	return Open(dir)
}

// Open loads the repository, replaying the install log and verifying that
// the log and the directory agree. Disagreement is a hard error: the caller
// must not proceed against a corrupt repository.
func Open(dir string) (*Repository, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open repository: %s is not a directory", dir)
	}

	records, err := readLog(filepath.Join(dir, LogFileName))
	if err != nil {
		return nil, err
	}

	r := &Repository{
		dir:    dir,
		byKey:  make(map[string]struct{}),
		byName: make(map[string][]model.Artifact),
	}

	logged := make(map[string]model.Artifact) // file base -> artifact
	for _, rec := range records {
		if rec.Kind != model.RecordRelease {
			continue
		}
		a := model.Artifact{
			Name:      rec.Name,
			Version:   rec.Version,
			CompatTag: rec.CompatTag,
			File:      rec.File,
		}
		if _, dup := r.byKey[a.Key()]; dup {
			return nil, errclass.ErrRepositoryInconsistent.WithMessagef(
				"duplicate release record for %s", a.Key())
		}
		logged[a.File] = a
		r.index(a)
	}

	present, err := wheelFiles(dir)
	if err != nil {
		return nil, err
	}

	for base := range present {
		if _, ok := logged[base]; !ok {
			return nil, errclass.ErrRepositoryInconsistent.WithMessagef(
				"wheel file %s has no release record in %s", base, LogFileName)
		}
	}
	for base := range logged {
		if _, ok := present[base]; !ok {
			return nil, errclass.ErrRepositoryInconsistent.WithMessagef(
				"release record for %s but no such wheel file", base)
		}
	}

	return r, nil
}

// Dir returns the repository directory.
func (r *Repository) Dir() string { return r.dir }

// WheelPath returns the absolute path of an artifact's wheel file.
func (r *Repository) WheelPath(a model.Artifact) string {
	return filepath.Join(r.dir, a.File)
}

// ParseArtifactName extracts (name, version, tag) from a wheel filename of
// the form name-version-tag.whl. The name segment must not contain hyphens;
// wheel filenames encode them as underscores.
func ParseArtifactName(base string) (model.Artifact, error) {
	if !strings.HasSuffix(base, WheelExt) {
		return model.Artifact{}, errclass.ErrMalformedArtifactName.WithMessagef(
			"%s: not a %s file", base, WheelExt)
	}
	stem := strings.TrimSuffix(base, WheelExt)
	parts := strings.SplitN(stem, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return model.Artifact{}, errclass.ErrMalformedArtifactName.WithMessagef(
			"%s: expected name-version-tag%s", base, WheelExt)
	}

	name := nameutil.Normalize(parts[0])
	if err := nameutil.Validate(name); err != nil {
		return model.Artifact{}, errclass.ErrMalformedArtifactName.WithMessagef(
			"%s: %v", base, err)
	}

	return model.Artifact{
		Name:      name,
		Version:   model.Version(parts[1]),
		CompatTag: parts[2],
		File:      base,
	}, nil
}

// Register parses, copies and records a new artifact file. The wheel is
// copied into the repository directory first and the release record appended
// after; a crash between the two leaves an orphan file that Open reports as
// E_REPO_INCONSISTENT on the next load.
func (r *Repository) Register(path string) (model.Artifact, error) {
	a, err := ParseArtifactName(filepath.Base(path))
	if err != nil {
		return model.Artifact{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byKey[a.Key()]; dup {
		return model.Artifact{}, errclass.ErrDuplicateArtifact.WithMessagef(
			"%s %s (%s) already registered", a.Name, a.Version, a.CompatTag)
	}

	if err := fsutil.AtomicCopy(path, r.dir, a.File); err != nil {
		return model.Artifact{}, fmt.Errorf("copy wheel into repository: %w", err)
	}

	if err := r.appendLocked(model.LogRecord{
		Kind:      model.RecordRelease,
		Name:      a.Name,
		Version:   a.Version,
		CompatTag: a.CompatTag,
		File:      a.File,
	}); err != nil {
		return model.Artifact{}, err
	}

	r.index(a)
	return a, nil
}

// RecordInstall appends an install record for an artifact deployed to a
// target. Install records are audit trail only; they do not participate in
// the file/record consistency invariant.
func (r *Repository) RecordInstall(target string, a model.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(model.LogRecord{
		Kind:      model.RecordInstall,
		Name:      a.Name,
		Version:   a.Version,
		CompatTag: a.CompatTag,
		File:      a.File,
		Target:    target,
	})
}

// Resolve returns the artifact matching name and, if given, the exact
// version constraint. With no constraint the highest version wins. Among
// artifacts of the winning version, a compatibility tag matching py is
// preferred when py is known.
func (r *Repository) Resolve(name string, constraint *model.Version, py PyVersion) (model.Artifact, error) {
	name = nameutil.Normalize(name)

	candidates := r.byName[name]
	if len(candidates) == 0 {
		return model.Artifact{}, errclass.ErrNoMatchingArtifact.WithMessagef(
			"no artifact for %q", name)
	}

	if constraint != nil {
		var matching []model.Artifact
		for _, a := range candidates {
			if a.Version.Compare(*constraint) == 0 {
				matching = append(matching, a)
			}
		}
		if len(matching) == 0 {
			return model.Artifact{}, errclass.ErrNoMatchingArtifact.WithMessagef(
				"no artifact for %s==%s", name, *constraint)
		}
		return pickByTag(matching, py), nil
	}

	best := candidates[0].Version
	for _, a := range candidates[1:] {
		if best.Less(a.Version) {
			best = a.Version
		}
	}
	var matching []model.Artifact
	for _, a := range candidates {
		if a.Version.Compare(best) == 0 {
			matching = append(matching, a)
		}
	}
	return pickByTag(matching, py), nil
}

// BoundResolver is a Repository resolver bound to one target's interpreter
// version, so callers that only see name and constraint still benefit from
// compatibility-tag preference.
type BoundResolver struct {
	repo *Repository
	py   PyVersion
}

// ResolverFor binds the repository to an interpreter version.
func (r *Repository) ResolverFor(py PyVersion) *BoundResolver {
	return &BoundResolver{repo: r, py: py}
}

// Resolve implements the differ's resolver contract.
func (b *BoundResolver) Resolve(name string, constraint *model.Version) (model.Artifact, error) {
	return b.repo.Resolve(name, constraint, b.py)
}

// List returns a restartable sequence of all registered artifacts, ordered
// by name then version. Safe for concurrent use with Resolve; the repository
// is read-only during a rollout.
func (r *Repository) List() iter.Seq[model.Artifact] {
	r.mu.Lock()
	snapshot := make([]model.Artifact, len(r.artifacts))
	copy(snapshot, r.artifacts)
	r.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].Name != snapshot[j].Name {
			return snapshot[i].Name < snapshot[j].Name
		}
		if c := snapshot[i].Version.Compare(snapshot[j].Version); c != 0 {
			return c < 0
		}
		return snapshot[i].CompatTag < snapshot[j].CompatTag
	})

	return func(yield func(model.Artifact) bool) {
		for _, a := range snapshot {
			if !yield(a) {
				return
			}
		}
	}
}

// Count returns the number of registered artifacts.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.artifacts)
}

func (r *Repository) index(a model.Artifact) {
	r.artifacts = append(r.artifacts, a)
	r.byKey[a.Key()] = struct{}{}
	r.byName[a.Name] = append(r.byName[a.Name], a)
}

// pickByTag prefers an exact interpreter match (cp312, py312), then a major
// match (py3), then the first candidate.
func pickByTag(candidates []model.Artifact, py PyVersion) model.Artifact {
	if !py.Known() {
		return candidates[0]
	}
	for _, a := range candidates {
		if tagMatches(a.CompatTag, py, true) {
			return a
		}
	}
	for _, a := range candidates {
		if tagMatches(a.CompatTag, py, false) {
			return a
		}
	}
	return candidates[0]
}

// tagMatches checks a compatibility tag like "py3", "cp312" or "py2.py3"
// against an interpreter version.
func tagMatches(tag string, py PyVersion, exact bool) bool {
	for _, part := range strings.Split(tag, ".") {
		digits := strings.TrimLeft(part, "abcdefghijklmnopqrstuvwxyz")
		if digits == "" {
			continue
		}
		if exact {
			if digits == fmt.Sprintf("%d%d", py.Major, py.Minor) {
				return true
			}
			continue
		}
		if digits == fmt.Sprintf("%d", py.Major) {
			return true
		}
	}
	return false
}

func wheelFiles(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan repository dir: %w", err)
	}
	present := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), WheelExt) {
			continue
		}
		present[e.Name()] = struct{}{}
	}
	return present, nil
}
