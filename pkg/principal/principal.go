// Package principal parses Kerberos principal names and decides whether
// an account lifecycle event for a principal should be propagated to
// Active Directory.
//
// Parsing follows the standard textual representation: name components
// are separated by '/', the realm follows the first unescaped '@', and a
// backslash escapes the following character inside a component. The
// package never consults a Kerberos library for this; the separator
// handling is exactly the piece of domain logic the queue file naming
// depends on.
package principal

import (
	"strings"

	"github.com/krbsync/krbsync/pkg/syncerr"
)

// Principal is a parsed Kerberos principal name. Components hold the
// unescaped component text; Realm is empty when the textual form carried
// no realm.
type Principal struct {
	Components []string
	Realm      string
}

// Parse splits a textual principal name into components and realm.
// Escaped separators ('\/' and '\@') are component content, not
// delimiters.
func Parse(name string) (Principal, error) {
	if name == "" {
		return Principal{}, syncerr.Internal("empty principal name")
	}

	var p Principal
	var comp strings.Builder
	inRealm := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '\\' && i+1 < len(name):
			comp.WriteByte(name[i+1])
			i++
		case c == '/' && !inRealm:
			p.Components = append(p.Components, comp.String())
			comp.Reset()
		case c == '@' && !inRealm:
			p.Components = append(p.Components, comp.String())
			comp.Reset()
			inRealm = true
		default:
			comp.WriteByte(c)
		}
	}
	if inRealm {
		p.Realm = comp.String()
	} else {
		p.Components = append(p.Components, comp.String())
	}
	if len(p.Components) == 0 || p.Components[0] == "" {
		return Principal{}, syncerr.Internal("malformed principal name %q", name)
	}
	return p, nil
}

// Instance returns the second name component, or "" for single-part
// principals.
func (p Principal) Instance() string {
	if len(p.Components) < 2 {
		return ""
	}
	return p.Components[1]
}

// WithInstance returns a copy of p with instance appended as a second
// component. It is used to form the lookup target for the base-instance
// eligibility rule.
func (p Principal) WithInstance(instance string) Principal {
	comps := make([]string, 0, len(p.Components)+1)
	comps = append(comps, p.Components...)
	comps = append(comps, instance)
	return Principal{Components: comps, Realm: p.Realm}
}

// Name returns the textual principal without the realm, re-escaping
// separator characters inside components.
func (p Principal) Name() string {
	var b strings.Builder
	for i, comp := range p.Components {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(escape(comp))
	}
	return b.String()
}

// String returns the full textual principal, including the realm when
// present.
func (p Principal) String() string {
	if p.Realm == "" {
		return p.Name()
	}
	return p.Name() + "@" + p.Realm
}

func escape(component string) string {
	var b strings.Builder
	for i := 0; i < len(component); i++ {
		c := component[i]
		if c == '/' || c == '@' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// StripRealm removes the realm from a textual principal name, honoring
// escapes: a '\@' belongs to a name component and does not start the
// realm. The result keeps the escaped textual form of the components.
// This is the form written on the first line of a queue file.
func StripRealm(name string) string {
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '\\':
			if i+1 < len(name) {
				i++
			}
		case '@':
			return name[:i]
		}
	}
	return name
}

// Norm rewrites a textual principal name into the path-safe form used in
// queue file names: the realm is stripped and every path separator is
// replaced with a period. Escaped separators are not treated as
// delimiters: an escaped '@' does not start the realm, and an escaped
// '/' keeps its escape while still being rewritten to a period so that
// the result can never contain a path separator.
func Norm(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '\\' && i+1 < len(name):
			b.WriteByte('\\')
			if name[i+1] == '/' {
				b.WriteByte('.')
			} else {
				b.WriteByte(name[i+1])
			}
			i++
		case c == '@':
			return b.String()
		case c == '/':
			b.WriteByte('.')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
