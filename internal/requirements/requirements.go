// Package requirements parses the flat requirements list consumed by the
// differ. Only two forms are supported: a bare package name, or an exact
// pin `name==version`. Requirements are pre-resolved; no transitive
// dependency handling happens here or anywhere else in wheelhouse.
package requirements

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
	"github.com/wheelhouse-project/wheelhouse/pkg/nameutil"
)

// Requirement is one parsed requirement line. Version is nil for an
// unconstrained requirement, meaning any available version satisfies it.
type Requirement struct {
	Name    string
	Version *model.Version
}

func (r Requirement) String() string {
	if r.Version == nil {
		return r.Name
	}
	return fmt.Sprintf("%s==%s", r.Name, *r.Version)
}

// ParseFile reads a requirements file.
func ParseFile(path string) ([]Requirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open requirements: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads requirement lines. Blank lines and comments are ignored. A
// malformed line or a duplicate package name fails the whole parse; a
// partially-read requirements list is never returned.
func Parse(r io.Reader) ([]Requirement, error) {
	var reqs []Requirement
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, err := parseLine(line)
		if err != nil {
			return nil, errclass.ErrMalformedRequirement.WithMessagef("line %d: %v", lineNo, err)
		}
		if prev, dup := seen[req.Name]; dup {
			return nil, errclass.ErrMalformedRequirement.WithMessagef(
				"line %d: duplicate requirement for %q (first on line %d)", lineNo, req.Name, prev)
		}
		seen[req.Name] = lineNo
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read requirements: %w", err)
	}
	return reqs, nil
}

func parseLine(line string) (Requirement, error) {
	// Reject constraint operators we deliberately do not support.
	for _, op := range []string{"<=", ">=", "~=", "!=", "<", ">"} {
		if strings.Contains(line, op) {
			return Requirement{}, fmt.Errorf("unsupported version constraint in %q (only == is supported)", line)
		}
	}

	name := line
	var version *model.Version
	if i := strings.Index(line, "=="); i >= 0 {
		name = line[:i]
		v := model.Version(strings.TrimSpace(line[i+2:]))
		if v == "" {
			return Requirement{}, fmt.Errorf("empty version in %q", line)
		}
		if strings.Contains(string(v), "=") {
			return Requirement{}, fmt.Errorf("malformed version in %q", line)
		}
		version = &v
	}

	name = nameutil.Normalize(name)
	if err := nameutil.Validate(name); err != nil {
		return Requirement{}, err
	}
	return Requirement{Name: name, Version: version}, nil
}
