package manifest

import (
	"encoding/json"
	"strings"

	"github.com/pingcap/errors"
)

// VersionRange is a constraint on acceptable versions. A nil *VersionRange
// accepts any version.
type VersionRange struct {
	MinVersion     *SemanticVersion
	IsMinInclusive bool
	MaxVersion     *SemanticVersion
	IsMaxInclusive bool
}

// MinRange returns the range ">= v", the meaning of a bare version string.
func MinRange(v SemanticVersion) *VersionRange {
	return &VersionRange{MinVersion: &v, IsMinInclusive: true} //nolint:exhaustruct
}

// ExactRange returns the range "[v]".
func ExactRange(v SemanticVersion) *VersionRange {
	return &VersionRange{MinVersion: &v, IsMinInclusive: true, MaxVersion: &v, IsMaxInclusive: true}
}

// Satisfies reports whether v falls within the bounds of r.
func (r *VersionRange) Satisfies(v SemanticVersion) bool {
	if r == nil {
		return true
	}
	if r.MinVersion != nil {
		c := v.Compare(*r.MinVersion)
		if c < 0 || (c == 0 && !r.IsMinInclusive) {
			return false
		}
	}
	if r.MaxVersion != nil {
		c := v.Compare(*r.MaxVersion)
		if c > 0 || (c == 0 && !r.IsMaxInclusive) {
			return false
		}
	}
	return true
}

// IsAny reports whether r has no bounds at all.
func (r *VersionRange) IsAny() bool {
	return r == nil || (r.MinVersion == nil && r.MaxVersion == nil)
}

// IsExact reports whether r admits exactly one version.
func (r *VersionRange) IsExact() bool {
	return r != nil && r.MinVersion != nil && r.MaxVersion != nil &&
		r.IsMinInclusive && r.IsMaxInclusive && r.MinVersion.Equal(*r.MaxVersion)
}

// Intersect returns the range of versions both r and o accept. ok is false
// when no version can satisfy both. A nil result with ok means any version.
func (r *VersionRange) Intersect(o *VersionRange) (res *VersionRange, ok bool) {
	if r.IsAny() {
		return o, !o.isEmpty()
	}
	if o.IsAny() {
		return r, !r.isEmpty()
	}
	res = &VersionRange{ //nolint:exhaustruct
		MinVersion: r.MinVersion, IsMinInclusive: r.IsMinInclusive,
		MaxVersion: r.MaxVersion, IsMaxInclusive: r.IsMaxInclusive,
	}
	if o.MinVersion != nil {
		c := 1
		if res.MinVersion != nil {
			c = o.MinVersion.Compare(*res.MinVersion)
		}
		switch {
		case c > 0:
			res.MinVersion, res.IsMinInclusive = o.MinVersion, o.IsMinInclusive
		case c == 0:
			res.IsMinInclusive = res.IsMinInclusive && o.IsMinInclusive
		}
	}
	if o.MaxVersion != nil {
		c := -1
		if res.MaxVersion != nil {
			c = o.MaxVersion.Compare(*res.MaxVersion)
		}
		switch {
		case c < 0:
			res.MaxVersion, res.IsMaxInclusive = o.MaxVersion, o.IsMaxInclusive
		case c == 0:
			res.IsMaxInclusive = res.IsMaxInclusive && o.IsMaxInclusive
		}
	}
	if res.isEmpty() {
		return nil, false
	}
	return res, true
}

func (r *VersionRange) isEmpty() bool {
	if r == nil || r.MinVersion == nil || r.MaxVersion == nil {
		return false
	}
	c := r.MinVersion.Compare(*r.MaxVersion)
	return c > 0 || (c == 0 && !(r.IsMinInclusive && r.IsMaxInclusive))
}

// ToDelegate adapts r into a predicate for search layers that filter by version.
func (r *VersionRange) ToDelegate() func(SemanticVersion) bool {
	return r.Satisfies
}

// String renders r in interval notation, e.g. "[1.0.0, 2.0.0)".
func (r *VersionRange) String() string {
	if r.IsAny() {
		return "(any)"
	}
	if r.IsExact() {
		return "[" + r.MinVersion.String() + "]"
	}
	if r.MinVersion != nil && r.IsMinInclusive && r.MaxVersion == nil {
		return ">= " + r.MinVersion.String()
	}
	var sb strings.Builder
	if r.IsMinInclusive {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	if r.MinVersion != nil {
		sb.WriteString(r.MinVersion.String())
	}
	sb.WriteString(", ")
	if r.MaxVersion != nil {
		sb.WriteString(r.MaxVersion.String())
	}
	if r.IsMaxInclusive {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	return sb.String()
}

// ParseVersionRange parses interval notation:
//
//	1.0          >= 1.0
//	[1.0]        exactly 1.0
//	[1.0,2.0)    >= 1.0 and < 2.0
//	(1.0,)       > 1.0
//	(,2.0]       <= 2.0
//
// An empty string is "any version" and returns nil.
func ParseVersionRange(raw string) (*VersionRange, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil //nolint:nilnil
	}

	if s[0] != '[' && s[0] != '(' {
		v, err := ParseVersion(s)
		if err != nil {
			return nil, errors.Annotatef(err, "invalid version range %q", raw)
		}
		return MinRange(v), nil
	}

	if len(s) < 3 {
		return nil, errors.Errorf("invalid version range %q", raw)
	}
	last := s[len(s)-1]
	if last != ']' && last != ')' {
		return nil, errors.Errorf("invalid version range %q: missing closing bracket", raw)
	}

	r := &VersionRange{ //nolint:exhaustruct
		IsMinInclusive: s[0] == '[',
		IsMaxInclusive: last == ']',
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	parts := strings.Split(inner, ",")
	switch len(parts) {
	case 1:
		// [1.0] is the only single-part form
		if !r.IsMinInclusive || !r.IsMaxInclusive {
			return nil, errors.Errorf("invalid version range %q: exact versions use [x]", raw)
		}
		v, err := ParseVersion(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, errors.Annotatef(err, "invalid version range %q", raw)
		}
		return ExactRange(v), nil
	case 2:
	default:
		return nil, errors.Errorf("invalid version range %q: too many commas", raw)
	}

	minStr, maxStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if minStr == "" && maxStr == "" {
		return nil, errors.Errorf("invalid version range %q: no bounds", raw)
	}
	if minStr != "" {
		v, err := ParseVersion(minStr)
		if err != nil {
			return nil, errors.Annotatef(err, "invalid version range %q", raw)
		}
		r.MinVersion = &v
	}
	if maxStr != "" {
		v, err := ParseVersion(maxStr)
		if err != nil {
			return nil, errors.Annotatef(err, "invalid version range %q", raw)
		}
		r.MaxVersion = &v
	}

	if r.MinVersion != nil && r.MaxVersion != nil {
		c := r.MinVersion.Compare(*r.MaxVersion)
		if c > 0 || (c == 0 && !(r.IsMinInclusive && r.IsMaxInclusive)) {
			return nil, errors.Errorf("invalid version range %q: empty range", raw)
		}
	}
	return r, nil
}

func MustParseVersionRange(raw string) *VersionRange {
	r, err := ParseVersionRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// MarshalJSON writes the range in the same interval notation ParseVersionRange reads.
func (r *VersionRange) MarshalJSON() ([]byte, error) {
	if r.IsAny() {
		return []byte(`""`), nil
	}
	return json.Marshal(r.notation()) //nolint:wrapcheck
}

func (r *VersionRange) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.AddStack(err)
	}
	parsed, err := ParseVersionRange(s)
	if err != nil {
		return err
	}
	if parsed == nil {
		*r = VersionRange{} //nolint:exhaustruct
		return nil
	}
	*r = *parsed
	return nil
}

// notation is the parseable form of r; String is the human form.
func (r *VersionRange) notation() string {
	if r.IsExact() {
		return "[" + r.MinVersion.String() + "]"
	}
	if r.MinVersion != nil && r.IsMinInclusive && r.MaxVersion == nil {
		return r.MinVersion.String()
	}
	return strings.ReplaceAll(r.String(), " ", "")
}
