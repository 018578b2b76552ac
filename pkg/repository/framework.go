package repository

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
)

type framework struct {
	name    string
	version []int
}

// parseFramework splits a short framework moniker such as "net45",
// "netstandard2.0" or "netcoreapp3.1" into its identifier and version.
// Compact versions ("45") have one component per digit.
func parseFramework(s string) framework {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexFunc(s, unicode.IsDigit)
	if i < 0 {
		return framework{name: s, version: nil}
	}
	fw := framework{name: s[:i], version: nil}
	rest := s[i:]
	if strings.Contains(rest, ".") {
		for _, part := range strings.Split(rest, ".") {
			n, _ := strconv.Atoi(part)
			fw.version = append(fw.version, n)
		}
		return fw
	}
	for _, r := range rest {
		if !unicode.IsDigit(r) {
			break
		}
		fw.version = append(fw.version, int(r-'0'))
	}
	return fw
}

func compareFrameworkVersions(a, b []int) int {
	for i := 0; i < max(len(a), len(b)); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return x - y
		}
	}
	return 0
}

// nearestDependencySet picks the set for target: an exact match, else the
// highest compatible version of the same framework, else the
// framework-agnostic set.
func nearestDependencySet(target string, sets []DependencySet) *DependencySet {
	want := parseFramework(target)
	var best *DependencySet
	var bestFW framework
	var fallback *DependencySet
	for i := range sets {
		s := &sets[i]
		if s.TargetFramework == "" {
			if fallback == nil {
				fallback = s
			}
			continue
		}
		fw := parseFramework(s.TargetFramework)
		if fw.name != want.name || compareFrameworkVersions(fw.version, want.version) > 0 {
			continue
		}
		if best == nil || compareFrameworkVersions(fw.version, bestFW.version) > 0 {
			best, bestFW = s, fw
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

// Frameworks lists the distinct frameworks p declares dependency sets for.
func (p *Package) Frameworks() []string {
	var res []string
	for _, s := range p.DependencySets {
		if s.TargetFramework != "" && !slices.Contains(res, s.TargetFramework) {
			res = append(res, s.TargetFramework)
		}
	}
	return res
}
