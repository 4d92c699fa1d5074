package installer

import (
	"fmt"
	"regexp"
	"strings"
)

// SpecKind says how a target specifier should be handed to the backend.
type SpecKind int

const (
	// SpecName is a registry package name with an optional version pin.
	SpecName SpecKind = iota
	// SpecURL is a direct URL (https, git+https, ...) passed verbatim.
	SpecURL
	// SpecPath is a local archive or directory passed verbatim.
	SpecPath
)

// PackageSpec is one parsed target of a job. Raw preserves exactly what the
// caller submitted; the backends receive Raw, never a re-rendered form.
type PackageSpec struct {
	Raw     string
	Kind    SpecKind
	Name    string // empty for URL specifiers
	Version string // pin without the operator, empty if unpinned
}

// Package names as accepted by both pip and conda.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// Version pin operators, longest first so "==" wins over "=".
var pinOps = []string{"===", "==", "~=", ">=", "<=", "!=", ">", "<", "="}

// ParseSpec parses a single target specifier.
//
// Recognized forms:
//   - "name" or "name==1.2.3" (any PEP 440 style operator)
//   - URLs containing "://" (including pip VCS forms like git+https://...)
//   - local paths ("./dist/pkg.whl", "/tmp/pkg.tar.gz", "~/pkg.whl")
func ParseSpec(raw string) (PackageSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return PackageSpec{}, fmt.Errorf("%w: empty package specifier", ErrInvalidRequest)
	}
	if strings.ContainsAny(s, " \t") {
		return PackageSpec{}, fmt.Errorf("%w: specifier %q contains whitespace", ErrInvalidRequest, raw)
	}

	if strings.Contains(s, "://") {
		return PackageSpec{Raw: s, Kind: SpecURL}, nil
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "../") || strings.HasPrefix(s, "~/") {
		return PackageSpec{Raw: s, Kind: SpecPath}, nil
	}

	name, version := s, ""
	for _, op := range pinOps {
		if i := strings.Index(s, op); i >= 0 {
			name = s[:i]
			version = s[i+len(op):]
			if version == "" {
				return PackageSpec{}, fmt.Errorf("%w: specifier %q has an operator but no version", ErrInvalidRequest, raw)
			}
			break
		}
	}
	if !nameRe.MatchString(name) {
		return PackageSpec{}, fmt.Errorf("%w: bad package name %q", ErrInvalidRequest, raw)
	}
	return PackageSpec{Raw: s, Kind: SpecName, Name: name, Version: version}, nil
}

// ParseSpecs parses all targets of a submission. A job must have at least one
// target and every target must parse; otherwise nothing is enqueued.
func ParseSpecs(raws []string) ([]PackageSpec, error) {
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no targets", ErrInvalidRequest)
	}
	specs := make([]PackageSpec, 0, len(raws))
	for _, raw := range raws {
		spec, err := ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (s PackageSpec) String() string { return s.Raw }
