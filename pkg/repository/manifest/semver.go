package manifest

import (
	"encoding/json"
	"fmt"

	mm "github.com/Masterminds/semver/v3"
	"github.com/pingcap/errors"
)

// SemanticVersion is an ordered package version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3. The zero
// value is a valid version that sorts before every parsed version.
type SemanticVersion struct {
	v *mm.Version
}

func ParseVersion(raw string) (SemanticVersion, error) {
	v, err := mm.NewVersion(raw)
	if err != nil {
		return SemanticVersion{}, errors.Annotatef(err, "invalid version %q", raw)
	}
	return SemanticVersion{v: v}, nil
}

func MustParseVersion(raw string) SemanticVersion {
	sv, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return sv
}

// NewVersion builds a release version from its numeric components.
func NewVersion(major, minor, patch uint64) SemanticVersion {
	return SemanticVersion{v: mm.New(major, minor, patch, "", "")}
}

func (sv SemanticVersion) IsZero() bool {
	return sv.v == nil
}

func (sv SemanticVersion) Major() uint64 {
	if sv.v == nil {
		return 0
	}
	return sv.v.Major()
}

func (sv SemanticVersion) Minor() uint64 {
	if sv.v == nil {
		return 0
	}
	return sv.v.Minor()
}

func (sv SemanticVersion) Patch() uint64 {
	if sv.v == nil {
		return 0
	}
	return sv.v.Patch()
}

func (sv SemanticVersion) Prerelease() string {
	if sv.v == nil {
		return ""
	}
	return sv.v.Prerelease()
}

func (sv SemanticVersion) IsPrerelease() bool {
	return sv.Prerelease() != ""
}

// Compare returns -1, 0 or 1. The zero value compares equal to itself and
// lower than any parsed version.
func (sv SemanticVersion) Compare(other SemanticVersion) int {
	switch {
	case sv.v == nil && other.v == nil:
		return 0
	case sv.v == nil:
		return -1
	case other.v == nil:
		return 1
	}
	return sv.v.Compare(other.v)
}

func (sv SemanticVersion) Equal(other SemanticVersion) bool {
	return sv.Compare(other) == 0
}

// String returns the canonical major.minor.patch[-prerelease] form.
func (sv SemanticVersion) String() string {
	if sv.v == nil {
		return "0.0.0"
	}
	return sv.v.String()
}

func (sv SemanticVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(sv.String()) //nolint:wrapcheck
}

// UnmarshalJSON accepts the canonical string form as well as the older
// [major, minor, patch] array form.
func (sv *SemanticVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseVersion(s)
		if err != nil {
			return err
		}
		*sv = parsed
		return nil
	}

	var vs []uint64
	err := json.Unmarshal(data, &vs)
	if err != nil {
		return errors.AddStack(err)
	}
	if len(vs) != 3 {
		return errors.New("semver expected to be \"major.minor.patch\" or [major, minor, patch]")
	}
	*sv = NewVersion(vs[0], vs[1], vs[2])
	return nil
}

// MarshalText lets versions be used as map keys and in YAML/flag values.
func (sv SemanticVersion) MarshalText() ([]byte, error) {
	return []byte(sv.String()), nil
}

func (sv *SemanticVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*sv = parsed
	return nil
}

var _ fmt.Stringer = SemanticVersion{}
