package domain

import (
	"fmt"
	"strings"
)

// Codec identifies a codec in a policy or catalog. An empty Tag matches any
// container tag; an empty Profile matches any profile.
type Codec struct {
	Kind    StreamKind
	Name    string
	Tag     string
	Profile string
}

func (c Codec) Matches(s StreamDescriptor) bool {
	if c.Kind != s.Kind || c.Name != s.Codec {
		return false
	}
	if c.Tag != "" && !strings.EqualFold(c.Tag, s.Tag) {
		return false
	}
	if c.Profile != "" && c.Profile != s.Profile {
		return false
	}
	return true
}

// String renders the identifier as name[:tag][@profile].
func (c Codec) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	if c.Tag != "" {
		b.WriteString(":")
		b.WriteString(c.Tag)
	}
	if c.Profile != "" {
		b.WriteString("@")
		b.WriteString(c.Profile)
	}
	return b.String()
}

// ParseCodec is the inverse of Codec.String.
func ParseCodec(kind StreamKind, s string) (Codec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Codec{}, fmt.Errorf("empty codec identifier")
	}
	c := Codec{Kind: kind}
	if at := strings.IndexByte(s, '@'); at >= 0 {
		c.Profile = s[at+1:]
		s = s[:at]
	}
	if colon := strings.IndexByte(s, ':'); colon >= 0 {
		c.Tag = s[colon+1:]
		s = s[:colon]
	}
	c.Name = strings.ToLower(s)
	if c.Name == "" {
		return Codec{}, fmt.Errorf("codec identifier %q has no name", s)
	}
	return c, nil
}

// MatchesAny reports whether s matches one of codecs. An empty list matches everything.
func MatchesAny(codecs []Codec, s StreamDescriptor) bool {
	if len(codecs) == 0 {
		return true
	}
	for _, c := range codecs {
		if c.Matches(s) {
			return true
		}
	}
	return false
}

type ContainerID string
