package daemon

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a daemon release version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// MinVersion is the oldest daemon release whose control API harbor is
// known to work with.
var MinVersion = Version{Major: 0, Minor: 18, Patch: 0}

// ParseVersion parses "1.2.3", "v1.2.3" or "1.2.3-rc1".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version: %q", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// ParseAgentVersion extracts the release from an agent string such as
// "kubo/0.29.0/3f0947b" or "go-ipfs/0.4.22/".
func ParseAgentVersion(agent string) (Version, error) {
	parts := strings.Split(agent, "/")
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("invalid agent version: %q", agent)
	}
	return ParseVersion(parts[1])
}

// String returns the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// LessThan returns true if v < other.
func (v Version) LessThan(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// Supported reports whether the identity's agent is at least MinVersion.
// An agent string that does not parse is treated as supported.
func (id *Identity) Supported() (bool, Version) {
	v, err := ParseAgentVersion(id.AgentVersion)
	if err != nil {
		return true, Version{}
	}
	return !v.LessThan(MinVersion), v
}
