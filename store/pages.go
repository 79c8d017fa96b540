package store

import (
	"github.com/vellumdoc/pdf/model"
)

// maxPageTreeDepth bounds the page-tree walk the same way Load bounds
// object resolution: a /Kids cycle must not hang the caller.
const maxPageTreeDepth = 100

// Page is one leaf of the page tree, with inheritable attributes
// already merged in from its ancestors (§4.7's page-tree helpers).
type Page struct {
	Ref       model.Reference // the page dictionary's own indirect reference, zero value if accessed directly
	Dict      model.Dict
	Resources model.Dict
	MediaBox  model.Rectangle
	CropBox   model.Rectangle
	Rotate    model.Rotation
}

// defaultMediaBox is used when neither a page nor any of its ancestors
// declares one: US Letter, matching common reader behavior.
var defaultMediaBox = model.Rectangle{Llx: 0, Lly: 0, Urx: 612, Ury: 792}

// inherited carries the page attributes that propagate from a Pages
// node down to its Kids unless overridden (7.7.3.4).
type inherited struct {
	resources        model.Dict
	mediaBox         model.Rectangle
	hasMediaBox      bool
	cropBox          model.Rectangle
	hasCropBox       bool
	rotate           model.Rotation
}

// PageCount returns the number of leaf pages reachable from the
// catalog's /Pages root. It prefers the root node's /Count entry
// (§4.7) and falls back to a cycle-guarded DFS over /Kids when /Count
// is absent or implausible.
func (s *Store) PageCount(catalog model.Dict) (int, error) {
	pagesRef, ok := catalog["Pages"]
	if !ok {
		return 0, model.NewError(model.InvalidPdf, "catalog has no /Pages entry")
	}
	pagesObj, err := s.Resolve(pagesRef)
	if err != nil {
		return 0, err
	}
	pages, ok := pagesObj.(model.Dict)
	if !ok {
		return 0, model.InvalidObjectTypeError("dict", "other")
	}

	if n, ok := pages.IntOf("Count"); ok && n >= 0 {
		return int(n), nil
	}

	count := 0
	visited := map[model.Reference]bool{}
	err = s.countLeaves(pages, visited, 0, &count)
	return count, err
}

func (s *Store) countLeaves(node model.Dict, visited map[model.Reference]bool, depth int, count *int) error {
	if depth >= maxPageTreeDepth {
		return model.RecursionLimitError(maxPageTreeDepth)
	}
	kids, hasKids := node.ArrayOf("Kids")
	if !hasKids {
		*count++
		return nil
	}
	for _, kidRef := range kids {
		if ref, ok := kidRef.(model.Reference); ok {
			if visited[ref] {
				continue
			}
			visited[ref] = true
		}
		kidObj, err := s.Resolve(kidRef)
		if err != nil {
			continue // a broken kid doesn't sink the whole count
		}
		kid, ok := kidObj.(model.Dict)
		if !ok {
			continue
		}
		if err := s.countLeaves(kid, visited, depth+1, count); err != nil {
			return err
		}
	}
	return nil
}

// GetPage walks the page tree in document order (a preorder DFS over
// /Kids) and returns the index-th leaf, with /Resources, /MediaBox,
// /CropBox and /Rotate inherited from ancestors whose values the page
// itself does not override.
func (s *Store) GetPage(catalog model.Dict, index int) (Page, error) {
	pagesObj, err := s.Resolve(catalog["Pages"])
	if err != nil {
		return Page{}, err
	}
	pages, ok := pagesObj.(model.Dict)
	if !ok {
		return Page{}, model.InvalidObjectTypeError("dict", "other")
	}

	counter := index
	visited := map[model.Reference]bool{}
	page, found, err := s.findPage(pages, model.Reference{}, inherited{rotate: model.Zero}, visited, 0, &counter)
	if err != nil {
		return Page{}, err
	}
	if !found {
		return Page{}, model.NewErrorf(model.ObjectNotFound, "page index %d out of range", index)
	}
	return page, nil
}

func (s *Store) findPage(node model.Dict, ref model.Reference, parent inherited, visited map[model.Reference]bool, depth int, counter *int) (Page, bool, error) {
	if depth >= maxPageTreeDepth {
		return Page{}, false, model.RecursionLimitError(maxPageTreeDepth)
	}

	here := mergeInherited(parent, node)

	kids, hasKids := node.ArrayOf("Kids")
	if !hasKids {
		if *counter != 0 {
			*counter--
			return Page{}, false, nil
		}
		return Page{
			Ref:       ref,
			Dict:      node,
			Resources: here.resources,
			MediaBox:  orDefault(here.mediaBox, here.hasMediaBox),
			CropBox:   orCropDefault(here.cropBox, here.hasCropBox, here.mediaBox, here.hasMediaBox),
			Rotate:    here.rotate,
		}, true, nil
	}

	for _, kidRef := range kids {
		var kidNodeRef model.Reference
		if ref, ok := kidRef.(model.Reference); ok {
			if visited[ref] {
				continue
			}
			visited[ref] = true
			kidNodeRef = ref
		}
		kidObj, err := s.Resolve(kidRef)
		if err != nil {
			continue
		}
		kid, ok := kidObj.(model.Dict)
		if !ok {
			continue
		}
		page, found, err := s.findPage(kid, kidNodeRef, here, visited, depth+1, counter)
		if err != nil {
			return Page{}, false, err
		}
		if found {
			return page, true, nil
		}
	}
	return Page{}, false, nil
}

func mergeInherited(parent inherited, node model.Dict) inherited {
	out := parent
	if res, ok := node.DictOf("Resources"); ok {
		out.resources = res
	}
	if mb, ok := rectangleOf(node, "MediaBox"); ok {
		out.mediaBox, out.hasMediaBox = mb, true
	}
	if cb, ok := rectangleOf(node, "CropBox"); ok {
		out.cropBox, out.hasCropBox = cb, true
	}
	if rot, ok := node.IntOf("Rotate"); ok {
		out.rotate = model.NewRotation(rot)
	}
	return out
}

func rectangleOf(d model.Dict, key model.Name) (model.Rectangle, bool) {
	arr, ok := d.ArrayOf(key)
	if !ok || len(arr) != 4 {
		return model.Rectangle{}, false
	}
	vals := make([]float64, 4)
	for i, o := range arr {
		v, ok := model.Number(o)
		if !ok {
			return model.Rectangle{}, false
		}
		vals[i] = v
	}
	return model.Rectangle{Llx: vals[0], Lly: vals[1], Urx: vals[2], Ury: vals[3]}, true
}

func orDefault(r model.Rectangle, has bool) model.Rectangle {
	if !has {
		return defaultMediaBox
	}
	return r
}

func orCropDefault(crop model.Rectangle, hasCrop bool, media model.Rectangle, hasMedia bool) model.Rectangle {
	if hasCrop {
		return crop
	}
	if hasMedia {
		return media
	}
	return defaultMediaBox
}
