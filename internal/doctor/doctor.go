// Package doctor inspects a wheel repository and reports consistency
// problems without aborting on the first one, so an operator sees the full
// damage before deciding how to repair it. The repository itself refuses to
// open in these states; doctor is the diagnostic view.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

// Doctor performs repository health checks.
type Doctor struct {
	repoDir string
}

// NewDoctor creates a doctor for the given repository directory.
func NewDoctor(repoDir string) *Doctor {
	return &Doctor{repoDir: repoDir}
}

// Check runs all diagnostic checks.
func (d *Doctor) Check() (*Result, error) {
	result := &Result{Healthy: true}

	records, ok := d.checkLog(result)
	d.checkConsistency(result, records, ok)
	d.checkFilenames(result)

	for _, f := range result.Findings {
		if f.Severity == "critical" || f.Severity == "error" {
			result.Healthy = false
		}
	}
	return result, nil
}

// checkLog parses the install log line by line, reporting every malformed
// line instead of stopping at the first.
func (d *Doctor) checkLog(result *Result) ([]model.LogRecord, bool) {
	logPath := filepath.Join(d.repoDir, repository.LogFileName)
	data, err := os.ReadFile(logPath)
	if err != nil {
		result.Findings = append(result.Findings, Finding{
			Category:    "log",
			Description: "install log missing or unreadable",
			Severity:    "critical",
			Path:        logPath,
		})
		return nil, false
	}

	var records []model.LogRecord
	clean := true
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec model.LogRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			result.Findings = append(result.Findings, Finding{
				Category:    "log",
				Description: fmt.Sprintf("line %d is not a valid record: %v", i+1, err),
				Severity:    "error",
				Path:        logPath,
			})
			clean = false
			continue
		}
		records = append(records, rec)
	}
	return records, clean
}

// checkConsistency cross-checks release records against the wheel files on
// disk. Skipped when the log itself did not parse cleanly; orphan reports
// against a half-read log would be noise.
func (d *Doctor) checkConsistency(result *Result, records []model.LogRecord, logClean bool) {
	if !logClean {
		return
	}

	logged := make(map[string]struct{})
	for _, rec := range records {
		if rec.Kind == model.RecordRelease {
			if _, dup := logged[rec.File]; dup {
				result.Findings = append(result.Findings, Finding{
					Category:    "consistency",
					Description: fmt.Sprintf("duplicate release record for %s", rec.File),
					Severity:    "error",
				})
			}
			logged[rec.File] = struct{}{}
		}
	}

	entries, err := os.ReadDir(d.repoDir)
	if err != nil {
		result.Findings = append(result.Findings, Finding{
			Category:    "consistency",
			Description: fmt.Sprintf("cannot scan repository dir: %v", err),
			Severity:    "critical",
			Path:        d.repoDir,
		})
		return
	}

	present := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), repository.WheelExt) {
			continue
		}
		present[e.Name()] = struct{}{}
		if _, ok := logged[e.Name()]; !ok {
			result.Findings = append(result.Findings, Finding{
				Category:    "consistency",
				Description: fmt.Sprintf("wheel file %s has no release record", e.Name()),
				Severity:    "error",
				Path:        filepath.Join(d.repoDir, e.Name()),
			})
		}
	}
	for file := range logged {
		if _, ok := present[file]; !ok {
			result.Findings = append(result.Findings, Finding{
				Category:    "consistency",
				Description: fmt.Sprintf("release record for %s but no such wheel file", file),
				Severity:    "error",
			})
		}
	}
}

// checkFilenames verifies every wheel file in the directory parses to a
// valid artifact identity.
func (d *Doctor) checkFilenames(result *Result) {
	entries, err := os.ReadDir(d.repoDir)
	if err != nil {
		return // already reported by checkConsistency
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), repository.WheelExt) {
			continue
		}
		if _, err := repository.ParseArtifactName(e.Name()); err != nil {
			result.Findings = append(result.Findings, Finding{
				Category:    "filename",
				Description: fmt.Sprintf("%s: %v", e.Name(), err),
				Severity:    "warning",
				Path:        filepath.Join(d.repoDir, e.Name()),
			})
		}
	}
}
