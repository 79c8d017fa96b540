package text

import (
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/store"
)

const maxStructureDepth = 100

// Node is one entry of a structure element's /K array: either a
// marked-content reference (a bare MCID integer, or an /MCR
// dictionary) carrying the page it belongs to, or a nested structure
// Element. Object references (/OBJR, pointing at an annotation or
// XObject rather than marked content) carry no text and are kept as
// Skip nodes.
type Node struct {
	MCID    int // valid only when Elem == nil and Skip is false
	Pg      model.Reference
	HasPage bool
	Elem    *Element
	// Skip marks a /K entry that carries no text (an /OBJR reference,
	// or a kid type we don't recognize): it must not be mistaken for
	// an MCID-0 reference with an unknown page.
	Skip bool
}

// Element is one structure-tree element (14.7.2): a tag name plus an
// ordered sequence of marked-content references and/or nested
// elements, preserving the /K array's reading order.
type Element struct {
	Tag  model.Name
	Kids []Node
}

// Tree is a parsed /StructTreeRoot, reduced to what §4.10's MCID
// grouping needs: the root elements in document (reading) order.
type Tree struct {
	Roots []*Element
}

// ParseTree reads a document's /StructTreeRoot dictionary (already
// resolved) and builds a Tree.
func ParseTree(st *store.Store, root model.Dict) (*Tree, error) {
	var t Tree
	k, err := st.Resolve(root["K"])
	if err != nil {
		return nil, err
	}
	switch v := k.(type) {
	case model.Dict:
		el, err := parseElement(st, v, model.Reference{}, 0)
		if err != nil {
			return nil, err
		}
		t.Roots = append(t.Roots, el)
	case model.Array:
		for _, kid := range v {
			obj, err := st.Resolve(kid)
			if err != nil {
				continue
			}
			if _, ok := obj.(model.Dict); !ok {
				continue
			}
			node, err := parseNode(st, obj, model.Reference{}, 0)
			if err != nil {
				return nil, err
			}
			if node.Elem != nil {
				t.Roots = append(t.Roots, node.Elem)
			} else if !node.Skip {
				// a marked-content reference directly under the root
				t.Roots = append(t.Roots, &Element{Kids: []Node{node}})
			}
		}
	}
	return &t, nil
}

func parseElement(st *store.Store, dict model.Dict, inheritedPg model.Reference, depth int) (*Element, error) {
	if depth > maxStructureDepth {
		return &Element{}, nil
	}
	el := &Element{}
	el.Tag, _ = dict.NameOf("S")

	if pgRef, ok := dict["Pg"].(model.Reference); ok {
		inheritedPg = pgRef
	}

	kRaw := dict["K"]
	k, err := st.Resolve(kRaw)
	if err != nil || k == nil {
		return el, nil
	}

	switch v := k.(type) {
	case model.Array:
		for _, kid := range v {
			node, err := parseNode(st, kid, inheritedPg, depth+1)
			if err != nil {
				return nil, err
			}
			el.Kids = append(el.Kids, node)
		}
	default:
		node, err := parseNode(st, kRaw, inheritedPg, depth+1)
		if err != nil {
			return nil, err
		}
		el.Kids = append(el.Kids, node)
	}
	return el, nil
}

func parseNode(st *store.Store, kidRaw model.Object, inheritedPg model.Reference, depth int) (Node, error) {
	kid, err := st.Resolve(kidRaw)
	if err != nil {
		return Node{}, err
	}
	switch v := kid.(type) {
	case model.Integer:
		return Node{MCID: int(v), Pg: inheritedPg, HasPage: inheritedPg != (model.Reference{})}, nil
	case model.Dict:
		typeName, _ := v.NameOf("Type")
		switch typeName {
		case "MCR":
			mcid, _ := v.IntOf("MCID")
			pg := inheritedPg
			hasPage := pg != (model.Reference{})
			if ref, ok := v["Pg"].(model.Reference); ok {
				pg, hasPage = ref, true
			}
			return Node{MCID: int(mcid), Pg: pg, HasPage: hasPage}, nil
		case "OBJR":
			// an annotation/XObject reference: no marked content, no text.
			return Node{Skip: true}, nil
		default:
			el, err := parseElement(st, v, inheritedPg, depth)
			if err != nil {
				return Node{}, err
			}
			return Node{Elem: el}, nil
		}
	default:
		return Node{Skip: true}, nil
	}
}

// MCIDOrder walks the tree in preorder and returns, for pageRef, the
// MCIDs reachable under it in reading order. A marked-content
// reference whose page could not be determined (HasPage is false) is
// included too: that happens for a single-page document or a
// structure tree that never bothered recording /Pg, and excluding it
// would silently drop text.
func (t *Tree) MCIDOrder(pageRef model.Reference) []int {
	var out []int
	for _, root := range t.Roots {
		collectMCIDs(root, pageRef, &out)
	}
	return out
}

func collectMCIDs(el *Element, pageRef model.Reference, out *[]int) {
	if el == nil {
		return
	}
	for _, kid := range el.Kids {
		if kid.Skip {
			continue
		}
		if kid.Elem != nil {
			collectMCIDs(kid.Elem, pageRef, out)
			continue
		}
		if !kid.HasPage || kid.Pg == pageRef {
			*out = append(*out, kid.MCID)
		}
	}
}
