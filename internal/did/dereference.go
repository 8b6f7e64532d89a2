package did

import (
	"regexp"
)

const (
	// MaxDereferenceDepth bounds how deep the dereference walk descends.
	MaxDereferenceDepth = 32
	// MaxDereferenceNodes bounds how many nodes the dereference walk visits.
	MaxDereferenceNodes = 10000
)

const (
	pctEncoded = `(?:%[0-9a-fA-F]{2})`
	idChar     = `(?:[a-zA-Z0-9._-]|` + pctEncoded + `)`
	method     = `([a-z0-9]+)`
	methodID   = `((?:` + idChar + `*:)*(?:` + idChar + `+))`
	paramChar  = `[a-zA-Z0-9_.:%-]`
	param      = `;` + paramChar + `+=` + paramChar + `*`
	params     = `((?:` + param + `)*)`
	path       = `(/[^#?]*)?`
	query      = `([?][^#]*)?`
	fragment   = `(#.*)?`
)

var didURLPattern = regexp.MustCompile(`^did:` + method + `:` + methodID + params + path + query + fragment + `$`)

// DIDURL is a parsed DID URL. Path keeps its leading slash; Query and Fragment drop their delimiter.
type DIDURL struct {
	DID      string
	Method   string
	ID       string
	Params   string
	Path     string
	Query    string
	Fragment string
}

// ParseDIDURL splits a DID URL into its components.
func ParseDIDURL(didURL string) (*DIDURL, error) {
	match := didURLPattern.FindStringSubmatch(didURL)
	if match == nil {
		return nil, &DereferenceError{Type: MalformedDid, Message: "Failed to parse DID"}
	}
	parsed := DIDURL{
		DID:    "did:" + match[1] + ":" + match[2],
		Method: match[1],
		ID:     match[2],
		Params: match[3],
		Path:   match[4],
	}
	if match[5] != "" {
		parsed.Query = match[5][1:]
	}
	if match[6] != "" {
		parsed.Fragment = match[6][1:]
	}
	return &parsed, nil
}

// matches reports whether an id names the resource the URL points at, absolutely or relative to the
// document.
func (u DIDURL) matches(id string) bool {
	if id == "" {
		return false
	}
	if u.Fragment != "" && (id == u.DID+"#"+u.Fragment || id == "#"+u.Fragment) {
		return true
	}
	return u.Path != "" && (id == u.DID+u.Path || id == u.Path)
}

// Dereference finds the part of a document a DID URL points at. A URL without path or fragment yields the
// document itself. Otherwise the first node, depth first in document order, whose id matches is returned
// as a *Document or a *VerificationMethod. No match, or a walk that exceeds its bounds, yields nil.
func Dereference(didURL string, doc *Document) (any, error) {
	parsed, err := ParseDIDURL(didURL)
	if err != nil {
		return nil, err
	}
	if doc == nil || parsed.DID != doc.ID {
		return nil, &DereferenceError{Type: InvalidParameterError, Message: "DID URL does not match DID Document ID"}
	}
	if parsed.Fragment == "" && parsed.Path == "" {
		return doc, nil
	}
	return walk(*parsed, doc), nil
}

type node struct {
	value any
	depth int
}

func walk(u DIDURL, doc *Document) any {
	stack := []node{{value: doc}}
	visited := 0
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > MaxDereferenceNodes || current.depth > MaxDereferenceDepth {
			return nil
		}

		switch v := current.value.(type) {
		case *Document:
			if u.matches(v.ID) {
				return v
			}
			// push in reverse so document order is popped first
			var children []any
			for i := range v.VerificationMethod {
				children = append(children, &v.VerificationMethod[i])
			}
			for _, method := range v.AssertionMethod {
				if method.Method != nil {
					children = append(children, method.Method)
				}
			}
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, node{value: children[i], depth: current.depth + 1})
			}
		case *VerificationMethod:
			if u.matches(v.ID) {
				return v
			}
		}
	}
	return nil
}
