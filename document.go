// Package pdf is the public entry point: open a PDF from a seekable
// byte source, walk its page tree, resolve objects, and pull text out
// of content streams. It composes the lower-level packages (parser,
// filter, xref, crypt, store, cmap, font, content, text) into the
// external interface described by spec.md §6.
package pdf

import (
	"io"

	"github.com/vellumdoc/pdf/cmap"
	"github.com/vellumdoc/pdf/content"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/store"
	"github.com/vellumdoc/pdf/text"
	"github.com/vellumdoc/pdf/xref"
)

// Document is an opened PDF file. It is not safe for concurrent use:
// its methods take an exclusive reference to the underlying store and
// must not be entered recursively (spec.md §5).
type Document struct {
	rs      io.ReadSeeker
	opts    OpenOptions
	store   *store.Store
	table   xref.Table
	trailer xref.Trailer

	versionMajor, versionMinor uint8

	cmapCache  *cmap.Cache
	contentOpt content.Options
	asmOpt     text.AssembleOptions

	catalog     model.Dict
	hasCatalog  bool
	structTree  *text.Tree
	structTried bool

	authenticated bool
}

// Version returns the PDF version claimed by the file header, as
// (major, minor) digits (spec.md §6, scenario 1).
func (d *Document) Version() (uint8, uint8) {
	return d.versionMajor, d.versionMinor
}

// Trailer returns the merged trailer dictionary, keyed the way a
// parsed trailer object would be (Size, Root, Info, ID, Encrypt are
// exposed via the typed xref.Trailer rather than re-boxed into a
// model.Dict, since nothing else in this module needs the latter).
func (d *Document) Trailer() xref.Trailer {
	return d.trailer
}

// Catalog resolves and returns the document catalog (the trailer's
// /Root entry).
func (d *Document) Catalog() (model.Dict, error) {
	if d.hasCatalog {
		return d.catalog, nil
	}
	if d.trailer.Root == nil {
		return nil, model.NewError(model.InvalidPdf, "trailer has no /Root entry")
	}
	obj, err := d.store.Resolve(*d.trailer.Root)
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(model.Dict)
	if !ok {
		return nil, model.InvalidObjectTypeError("dict", "other")
	}
	d.catalog, d.hasCatalog = dict, true
	return dict, nil
}

// LoadObject resolves ref to its object, following the same guards as
// every other access path: cache, cycle detection, recursion depth.
func (d *Document) LoadObject(ref model.Reference) (model.Object, error) {
	return d.store.Load(ref)
}

// PageCount returns the number of leaf pages in the document.
func (d *Document) PageCount() (int, error) {
	cat, err := d.Catalog()
	if err != nil {
		return 0, err
	}
	return d.store.PageCount(cat)
}

func (d *Document) page(index int) (store.Page, error) {
	cat, err := d.Catalog()
	if err != nil {
		return store.Page{}, err
	}
	return d.store.GetPage(cat, index)
}

// GetPageContentData returns the fully decoded content stream bytes
// for page index, concatenating multiple content streams (an Array of
// stream references, per 7.8.2) with an interleaving newline.
func (d *Document) GetPageContentData(pageIndex int) ([]byte, error) {
	page, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}
	return d.loadContents(page.Dict["Contents"])
}

func (d *Document) loadContents(o model.Object) ([]byte, error) {
	resolved, err := d.store.Resolve(o)
	if err != nil {
		return nil, err
	}
	switch v := resolved.(type) {
	case model.Stream:
		return v.Content, nil
	case model.Array:
		var out []byte
		for i, item := range v {
			itemObj, err := d.store.Resolve(item)
			if err != nil {
				d.opts.Logger.Printf("pdf: skipping unreadable content stream entry %d: %v", i, err)
				continue
			}
			stm, ok := itemObj.(model.Stream)
			if !ok {
				continue
			}
			if len(out) > 0 {
				out = append(out, '\n')
			}
			out = append(out, stm.Content...)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, model.InvalidObjectTypeError("stream or array", "other")
	}
}
