package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/cyclopcam/logs"
)

// ErrInvalidProfile is returned (wrapped) for color profiles that cannot be
// used for segmentation.
var ErrInvalidProfile = errors.New("invalid color profile")

// HSV is one 8-bit HSV triple (H 0-179, S 0-255, V 0-255).
type HSV struct {
	H int
	S int
	V int
}

// Array returns the triple as [h, s, v].
func (c HSV) Array() [3]int {
	return [3]int{c.H, c.S, c.V}
}

// MarshalJSON encodes the triple as [h,s,v].
func (c HSV) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{c.H, c.S, c.V})
}

// UnmarshalJSON decodes a [h,s,v] array. Exactly three channels are required.
func (c *HSV) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 3 {
		return fmt.Errorf("expected 3 channels, got %d", len(v))
	}
	c.H, c.S, c.V = v[0], v[1], v[2]
	return nil
}

// ColorProfile is a named HSV range used to threshold a frame into a mask.
type ColorProfile struct {
	Name  string `json:"name"`
	Lower HSV    `json:"lower"`
	Upper HSV    `json:"upper"`
}

var channelMax = [3]int{179, 255, 255}
var channelNames = [3]string{"H", "S", "V"}

// Validate rejects empty names, out-of-range channels and inverted bounds.
func (p ColorProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidProfile)
	}
	lo, hi := p.Lower.Array(), p.Upper.Array()
	for i := 0; i < 3; i++ {
		if lo[i] < 0 || lo[i] > channelMax[i] || hi[i] < 0 || hi[i] > channelMax[i] {
			return fmt.Errorf("%w: %s: %s out of range 0-%d", ErrInvalidProfile, p.Name, channelNames[i], channelMax[i])
		}
		if lo[i] > hi[i] {
			return fmt.Errorf("%w: %s: %s lower %d > upper %d", ErrInvalidProfile, p.Name, channelNames[i], lo[i], hi[i])
		}
	}
	return nil
}

// Profiles is a set of color profiles kept sorted by name, which fixes the
// order masks are produced in.
type Profiles []ColorProfile

// Get returns the profile with the given name.
func (ps Profiles) Get(name string) (ColorProfile, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return ColorProfile{}, false
}

// Names returns the profile names in order.
func (ps Profiles) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// With returns a copy of ps with p added or replaced, re-sorted.
func (ps Profiles) With(p ColorProfile) Profiles {
	out := make(Profiles, 0, len(ps)+1)
	for _, q := range ps {
		if q.Name != p.Name {
			out = append(out, q)
		}
	}
	out = append(out, p)
	out.sort()
	return out
}

// Without returns a copy of ps without the named profile.
func (ps Profiles) Without(name string) Profiles {
	out := make(Profiles, 0, len(ps))
	for _, q := range ps {
		if q.Name != name {
			out = append(out, q)
		}
	}
	return out
}

func (ps Profiles) sort() {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
}

// DefaultProfiles returns the Red and Blue ranges markers are printed in.
func DefaultProfiles() Profiles {
	return Profiles{
		{Name: "Blue", Lower: HSV{90, 85, 196}, Upper: HSV{116, 217, 255}},
		{Name: "Red", Lower: HSV{0, 6, 185}, Upper: HSV{18, 255, 255}},
	}
}

// channelRanges is the per-channel form {"H":[lo,hi],"S":[lo,hi],"V":[lo,hi]}
// written by older tuning tools.
type channelRanges struct {
	H []int `json:"H"`
	S []int `json:"S"`
	V []int `json:"V"`
}

func decodeEntry(name string, raw json.RawMessage) (ColorProfile, error) {
	p := ColorProfile{Name: name}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		var pair []HSV
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return p, fmt.Errorf("%w: %s: %v", ErrInvalidProfile, name, err)
		}
		if len(pair) != 2 {
			return p, fmt.Errorf("%w: %s: expected [lower, upper], got %d bounds", ErrInvalidProfile, name, len(pair))
		}
		p.Lower, p.Upper = pair[0], pair[1]
		return p, p.Validate()
	}

	var ranges channelRanges
	if err := json.Unmarshal(raw, &ranges); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrInvalidProfile, name, err)
	}
	if len(ranges.H) != 2 || len(ranges.S) != 2 || len(ranges.V) != 2 {
		return p, fmt.Errorf("%w: %s: missing channel", ErrInvalidProfile, name)
	}
	p.Lower = HSV{ranges.H[0], ranges.S[0], ranges.V[0]}
	p.Upper = HSV{ranges.H[1], ranges.S[1], ranges.V[1]}
	return p, p.Validate()
}

// ParseProfiles decodes a colors document of the form
//
//	{"Red": [[0,6,185],[18,255,255]], "Blue": [[90,85,196],[116,217,255]]}
//
// Invalid entries are logged as warnings and skipped, so one bad color never
// takes down the others. Only a document that is not a JSON object is an
// error.
func ParseProfiles(data []byte, log logs.Log) (Profiles, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse colors JSON: %w", err)
	}

	ps := make(Profiles, 0, len(doc))
	for name, raw := range doc {
		p, err := decodeEntry(name, raw)
		if err != nil {
			log.Warnf("Skipping color profile: %v", err)
			continue
		}
		ps = append(ps, p)
	}
	ps.sort()
	return ps, nil
}

// MarshalProfiles encodes profiles in the colors document format.
func MarshalProfiles(ps Profiles) ([]byte, error) {
	doc := make(map[string][2]HSV, len(ps))
	for _, p := range ps {
		doc[p.Name] = [2]HSV{p.Lower, p.Upper}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// LoadProfiles reads a colors file. A missing file yields an error that
// satisfies errors.Is(err, fs.ErrNotExist).
func LoadProfiles(path string, log logs.Log) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read colors file: %w", err)
	}
	return ParseProfiles(data, log)
}

// SaveProfiles writes the whole profile set, replacing the file atomically.
// Invalid profiles are refused rather than written.
func SaveProfiles(path string, ps Profiles) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	data, err := MarshalProfiles(ps)
	if err != nil {
		return fmt.Errorf("failed to encode colors: %w", err)
	}
	return writeFileAtomic(path, data)
}

func loadOrEmpty(path string, log logs.Log) (Profiles, error) {
	ps, err := LoadProfiles(path, log)
	if errors.Is(err, fs.ErrNotExist) {
		return Profiles{}, nil
	}
	return ps, err
}

// SaveProfile adds or overwrites one profile in the colors file, creating the
// file if needed.
func SaveProfile(path string, p ColorProfile, log logs.Log) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ps, err := loadOrEmpty(path, log)
	if err != nil {
		return err
	}
	return SaveProfiles(path, ps.With(p))
}

// DeleteProfile removes a profile from the colors file. It reports whether
// the profile existed; the file is left untouched when it did not.
func DeleteProfile(path, name string, log logs.Log) (bool, error) {
	ps, err := loadOrEmpty(path, log)
	if err != nil {
		return false, err
	}
	if _, ok := ps.Get(name); !ok {
		return false, nil
	}
	return true, SaveProfiles(path, ps.Without(name))
}

// ProfileExists reports whether the colors file holds a valid profile with
// the given name.
func ProfileExists(path, name string, log logs.Log) (bool, error) {
	ps, err := loadOrEmpty(path, log)
	if err != nil {
		return false, err
	}
	_, ok := ps.Get(name)
	return ok, nil
}
