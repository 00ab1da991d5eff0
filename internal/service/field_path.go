package service

import (
	"fmt"
	"strings"

	"github.com/klpod221/kerminal-sub001/models"
)

// FieldVisitor locates one designated field inside a record and replaces
// its value with the result of fn. Absent and nil values are not visited.
type FieldVisitor interface {
	Visit(record map[string]any, fn func(value any) (any, error)) error
	String() string
}

// FieldPath addresses a top-level field (Parent empty) or a field nested
// one level deep inside an object.
type FieldPath struct {
	Parent string
	Name   string
}

// ParseFieldPath accepts "name" and "parent.child". Deeper paths must be
// built with [NestedPath].
func ParseFieldPath(s string) (FieldPath, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	for _, p := range parts {
		if p == "" {
			return FieldPath{}, fmt.Errorf("%q: %w", s, ErrInvalidFieldPath)
		}
	}

	switch len(parts) {
	case 1:
		return FieldPath{Name: parts[0]}, nil
	case 2:
		return FieldPath{Parent: parts[0], Name: parts[1]}, nil
	default:
		return FieldPath{}, fmt.Errorf("%q is nested more than one level: %w", s, ErrInvalidFieldPath)
	}
}

// ParseFieldPaths parses a list of dotted paths into visitors.
func ParseFieldPaths(paths ...string) ([]FieldVisitor, error) {
	out := make([]FieldVisitor, 0, len(paths))
	for _, p := range paths {
		fp, err := ParseFieldPath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, nil
}

func (p FieldPath) String() string {
	if p.Parent == "" {
		return p.Name
	}
	return p.Parent + "." + p.Name
}

func (p FieldPath) Visit(record map[string]any, fn func(any) (any, error)) error {
	target := record
	if p.Parent != "" {
		nested, ok := asObject(record[p.Parent])
		if !ok {
			return nil
		}
		target = nested
	}

	return visitLeaf(target, p.Name, fn)
}

type nestedPath struct {
	head string
	rest FieldVisitor
}

// NestedPath builds a visitor for an arbitrarily deep path, e.g.
// NestedPath("auth", "jump", "password"). Every intermediate segment must
// hold an object; if one does not, the path is treated as absent.
func NestedPath(segments ...string) FieldVisitor {
	if len(segments) == 0 {
		return nil
	}
	if len(segments) == 1 {
		return FieldPath{Name: segments[0]}
	}
	return nestedPath{head: segments[0], rest: NestedPath(segments[1:]...)}
}

func (n nestedPath) String() string {
	return n.head + "." + n.rest.String()
}

func (n nestedPath) Visit(record map[string]any, fn func(any) (any, error)) error {
	child, ok := asObject(record[n.head])
	if !ok {
		return nil
	}
	return n.rest.Visit(child, fn)
}

func visitLeaf(target map[string]any, name string, fn func(any) (any, error)) error {
	value, ok := target[name]
	if !ok || value == nil {
		return nil
	}

	next, err := fn(value)
	if err != nil {
		return err
	}
	target[name] = next

	return nil
}

func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, true
	case models.Record:
		return obj, true
	default:
		return nil, false
	}
}

// DefaultEncryptedFields lists the secret-bearing fields of the built-in
// collections.
var DefaultEncryptedFields = map[string][]string{
	"ssh_profiles":   {"password", "privateKey", "keyPassphrase", "proxy.password"},
	"ssh_keys":       {"privateKey", "passphrase"},
	"ssh_tunnels":    {"password", "auth.password"},
	"ssh_groups":     {},
	"saved_commands": {},
}
