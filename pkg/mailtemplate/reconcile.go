package mailtemplate

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/mailvault/pkg/slug"
)

// FallbackIdentifier is used when an identifier slugifies to nothing.
const FallbackIdentifier = "template"

// MaxIdentifierLength bounds the slug part of an identifier; a "-N" suffix may follow.
const MaxIdentifierLength = 64

var identifierReplacements = map[string]string{"&": "and", "+": "plus", "@": "at"}

// NormalizeIdentifier returns the stored form of a template identifier.
// Apostrophes are dropped so "Member's news" becomes "members-news".
func NormalizeIdentifier(raw string) string {
	id := slug.Make(raw,
		slug.StripChars("'’"),
		slug.CustomReplace(identifierReplacements),
		slug.MaxLength(MaxIdentifierLength),
	)
	if id == "" {
		return FallbackIdentifier
	}
	return id
}

// Changes describes how a template's variables must change after a content edit.
type Changes struct {
	Keep   []Variable
	Add    []Variable
	Remove []Variable
}

// Reconcile diffs existing variables against the references found in content.
// Retained variables keep their configuration; new ones start as static values,
// flagged as lists when the name is ranged over.
func Reconcile(existing []Variable, refs []Reference) Changes {
	wanted := make(map[string]Reference, len(refs))
	for _, r := range refs {
		wanted[r.Name] = r
	}

	var ch Changes
	have := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		if _, ok := wanted[v.Name]; ok {
			ch.Keep = append(ch.Keep, v)
			have[v.Name] = struct{}{}
		} else {
			ch.Remove = append(ch.Remove, v)
		}
	}

	for _, r := range refs {
		if _, ok := have[r.Name]; ok {
			continue
		}
		ch.Add = append(ch.Add, Variable{
			Name:      r.Name,
			ValueType: ValueStatic,
			List:      r.List,
		})
		have[r.Name] = struct{}{}
	}

	return ch
}

// TakenFunc reports whether an identifier is used by another template.
type TakenFunc func(ctx context.Context, identifier string) (bool, error)

// UniqueIdentifier normalizes raw and appends -1, -2, ... until taken reports
// the candidate free. The caller's own row must be excluded by taken.
func UniqueIdentifier(ctx context.Context, raw string, taken TakenFunc) (string, error) {
	base := NormalizeIdentifier(raw)
	candidate := base
	for i := 1; ; i++ {
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
