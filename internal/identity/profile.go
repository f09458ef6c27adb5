// Package identity holds the ordered set of request fingerprints used when
// talking to the upstream through the extractor. Later profiles wait longer
// between requests and allow more time per call.
package identity

import (
	"fmt"
	"strings"
	"time"
)

// Profile is one request fingerprint
type Profile struct {
	Name               string
	UserAgent          string
	MinDelaySeconds    int
	MaxDelaySeconds    int
	MetadataTimeout    time.Duration
	AcquisitionTimeout time.Duration
}

// String returns the profile name
func (p Profile) String() string {
	return p.Name
}

// Validate checks a single profile
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if strings.TrimSpace(p.UserAgent) == "" {
		return fmt.Errorf("profile %s: user agent cannot be empty", p.Name)
	}
	if p.MinDelaySeconds < 0 || p.MaxDelaySeconds < p.MinDelaySeconds {
		return fmt.Errorf("profile %s: delay range %d..%d is invalid", p.Name, p.MinDelaySeconds, p.MaxDelaySeconds)
	}
	if p.MetadataTimeout <= 0 {
		return fmt.Errorf("profile %s: metadata timeout must be positive", p.Name)
	}
	if p.AcquisitionTimeout < p.MetadataTimeout {
		return fmt.Errorf("profile %s: acquisition timeout must not be shorter than metadata timeout", p.Name)
	}
	return nil
}

// Set is an ordered, read-only sequence of profiles
type Set struct {
	profiles []Profile
}

// NewSet validates profiles and returns them as a Set. Timeouts must not
// decrease along the sequence.
func NewSet(profiles ...Profile) (Set, error) {
	if len(profiles) == 0 {
		return Set{}, fmt.Errorf("at least one identity profile is required")
	}

	seen := make(map[string]bool, len(profiles))
	for i, p := range profiles {
		if err := p.Validate(); err != nil {
			return Set{}, err
		}
		if seen[p.Name] {
			return Set{}, fmt.Errorf("duplicate identity profile %q", p.Name)
		}
		seen[p.Name] = true

		if i == 0 {
			continue
		}
		prev := profiles[i-1]
		if p.MetadataTimeout < prev.MetadataTimeout || p.AcquisitionTimeout < prev.AcquisitionTimeout {
			return Set{}, fmt.Errorf("profile %s: timeouts must not decrease after %s", p.Name, prev.Name)
		}
	}

	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return Set{profiles: out}, nil
}

// MustSet is NewSet for static profile lists
func MustSet(profiles ...Profile) Set {
	s, err := NewSet(profiles...)
	if err != nil {
		panic(err)
	}
	return s
}

// Profiles returns a copy of the ordered profiles
func (s Set) Profiles() []Profile {
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Len returns the number of profiles
func (s Set) Len() int {
	return len(s.profiles)
}

// Names returns the profile names in order
func (s Set) Names() []string {
	names := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		names[i] = p.Name
	}
	return names
}

// Default returns the built-in profile sequence: a Windows desktop browser
// first, then a macOS browser with slower pacing and longer deadlines.
func Default() Set {
	return MustSet(
		Profile{
			Name:               "windows-chrome",
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			MinDelaySeconds:    2,
			MaxDelaySeconds:    5,
			MetadataTimeout:    60 * time.Second,
			AcquisitionTimeout: 180 * time.Second,
		},
		Profile{
			Name:               "macos-chrome",
			UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MinDelaySeconds:    3,
			MaxDelaySeconds:    7,
			MetadataTimeout:    90 * time.Second,
			AcquisitionTimeout: 240 * time.Second,
		},
	)
}
