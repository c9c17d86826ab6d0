// Package catalog indexes a bundle's constructor and message specs by
// 4-byte selector, splitting them into constructors, messages, and
// properties.
package catalog

import (
	"strings"

	"contractfuzz/internal/abi"
)

// Kind discriminates a method's role in the catalog.
type Kind int

const (
	KindConstructor Kind = iota
	KindMessage
)

// Method is one entry of the ABI method table.
type Method struct {
	Selector [4]byte
	Kind     Kind
	ArgTypes []abi.TypeId
	Payable  bool
	Mutates  bool
	Label    string
	// ReturnsBool records whether the method's declared return type is a
	// Result<bool, E>-shaped Ok(bool)/Err(E), required for property
	// eligibility.
	ReturnsBool bool
}

// Catalog holds the derived sets: constructors, messages (filtered by
// OnlyMutable), and properties (label-prefix and return-type filtered). It
// is built once per campaign and immutable thereafter.
type Catalog struct {
	Constructors []Method
	Messages     []Method
	Properties   []Method
}

// Options configures catalog construction.
type Options struct {
	OnlyMutable    bool
	PropertyPrefix string
}

// Build partitions methods into constructors/messages/properties. A method
// qualifies as a property iff its label starts with opts.PropertyPrefix and
// it is declared to return a boolean Result. If opts.OnlyMutable is set,
// non-mutating non-property messages are dropped from the message pool.
func Build(methods []Method, opts Options) *Catalog {
	c := &Catalog{}
	for _, m := range methods {
		isProperty := opts.PropertyPrefix != "" && strings.HasPrefix(m.Label, opts.PropertyPrefix) && m.ReturnsBool

		switch m.Kind {
		case KindConstructor:
			c.Constructors = append(c.Constructors, m)
		case KindMessage:
			if isProperty {
				c.Properties = append(c.Properties, m)
				continue
			}
			if opts.OnlyMutable && !m.Mutates {
				continue
			}
			c.Messages = append(c.Messages, m)
		}
	}
	return c
}

// ByLabel returns the method in constructors+messages+properties with the
// given label, if any. Useful for tests and replay tooling.
func (c *Catalog) ByLabel(label string) (Method, bool) {
	for _, group := range [][]Method{c.Constructors, c.Messages, c.Properties} {
		for _, m := range group {
			if m.Label == label {
				return m, true
			}
		}
	}
	return Method{}, false
}
