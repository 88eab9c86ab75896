package syntax

import (
	"encoding/json"
	"fmt"
	"io"
)

// jsonNode is the on-disk shape of a parser's tree dump. Offsets are
// byte offsets into the source document.
type jsonNode struct {
	Kind     string     `json:"kind"`
	Named    *bool      `json:"named,omitempty"`
	Field    string     `json:"field,omitempty"`
	Start    uint       `json:"start"`
	End      uint       `json:"end"`
	Children []jsonNode `json:"children,omitempty"`
}

// DecodeJSON reads a tree dump produced by an external parser. Nodes
// default to named unless "named": false is present.
func DecodeJSON(r io.Reader, source []byte) (*Tree, error) {
	var root jsonNode
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("syntax: decode tree: %w", err)
	}

	b := NewTreeBuilder(source)
	var add func(n jsonNode)
	add = func(n jsonNode) {
		named := n.Named == nil || *n.Named
		if n.Field != "" {
			b.Field(n.Field)
		}
		b.Start(n.Kind, named, n.Start)
		for _, c := range n.Children {
			add(c)
		}
		b.End(n.End)
	}
	add(root)
	return b.Build()
}
