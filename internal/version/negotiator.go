// Package version negotiates the protocol version used on a connection.
package version

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ErrUnsupportedVersion is returned when no supported version can be
// negotiated for the client's requested version. Supported carries the
// full list of server-supported versions, for inclusion in the error
// response's data field.
type ErrUnsupportedVersion struct {
	Requested string
	Supported []string
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported protocol version %q", e.Requested)
}

// Negotiator picks a protocol version from a fixed, sorted set of
// server-supported versions.
type Negotiator struct {
	supported []*semver.Version
	raw       []string
	backward  bool
}

// New builds a Negotiator over supported (parsed as semver and sorted
// descending). backwardCompatible enables the fallback rules of 4.10;
// when false only an exact version match is accepted.
func New(supported []string, backwardCompatible bool) (*Negotiator, error) {
	parsed := make([]*semver.Version, 0, len(supported))
	for _, s := range supported {
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("version: invalid supported version %q: %w", s, err)
		}
		parsed = append(parsed, v)
	}
	sort.Sort(sort.Reverse(byVersion(parsed)))
	return &Negotiator{supported: parsed, raw: append([]string(nil), supported...), backward: backwardCompatible}, nil
}

type byVersion []*semver.Version

func (b byVersion) Len() int           { return len(b) }
func (b byVersion) Less(i, j int) bool { return b[i].LessThan(b[j]) }
func (b byVersion) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// Negotiate picks the server version to use for a client-requested
// version, per the rules in 4.10. Returns *ErrUnsupportedVersion if no
// rule applies.
func (n *Negotiator) Negotiate(clientVersion string) (string, error) {
	vc, err := semver.NewVersion(clientVersion)
	if err != nil {
		return "", fmt.Errorf("version: invalid client version %q: %w", clientVersion, err)
	}

	for _, s := range n.supported {
		if s.Equal(vc) {
			return s.Original(), nil
		}
	}

	if !n.backward {
		return "", &ErrUnsupportedVersion{Requested: clientVersion, Supported: n.raw}
	}

	sameMajor := make([]*semver.Version, 0, len(n.supported))
	for _, s := range n.supported {
		if s.Major() == vc.Major() {
			sameMajor = append(sameMajor, s)
		}
	}
	if len(sameMajor) == 0 {
		return "", &ErrUnsupportedVersion{Requested: clientVersion, Supported: n.raw}
	}

	// (a) same-minor, patch >= Vc.patch: pick the lowest such patch.
	var sameMinorGE []*semver.Version
	for _, s := range sameMajor {
		if s.Minor() == vc.Minor() && s.Patch() >= vc.Patch() {
			sameMinorGE = append(sameMinorGE, s)
		}
	}
	if len(sameMinorGE) > 0 {
		return lowest(sameMinorGE).Original(), nil
	}

	// (b) same-minor, lower patch: pick the highest such entry.
	var sameMinorLT []*semver.Version
	for _, s := range sameMajor {
		if s.Minor() == vc.Minor() && s.Patch() < vc.Patch() {
			sameMinorLT = append(sameMinorLT, s)
		}
	}
	if len(sameMinorLT) > 0 {
		return highest(sameMinorLT).Original(), nil
	}

	// (c) higher-minor entry exists: pick the lowest higher-minor.
	var higherMinor []*semver.Version
	for _, s := range sameMajor {
		if s.Minor() > vc.Minor() {
			higherMinor = append(higherMinor, s)
		}
	}
	if len(higherMinor) > 0 {
		return lowest(higherMinor).Original(), nil
	}

	// (d) else pick the highest available minor within the same major.
	return highest(sameMajor).Original(), nil
}

func lowest(vs []*semver.Version) *semver.Version {
	best := vs[0]
	for _, v := range vs[1:] {
		if v.LessThan(best) {
			best = v
		}
	}
	return best
}

func highest(vs []*semver.Version) *semver.Version {
	best := vs[0]
	for _, v := range vs[1:] {
		if best.LessThan(v) {
			best = v
		}
	}
	return best
}
