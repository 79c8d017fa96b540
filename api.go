package pdf

import (
	"github.com/vellumdoc/pdf/content"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/text"
)

// ExtractSpans runs the content-stream interpreter over page
// pageIndex's content streams and returns the positioned text spans it
// produced, in content-stream execution order (spec.md §4.9/§8).
func (d *Document) ExtractSpans(pageIndex int) ([]content.TextSpan, error) {
	page, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}
	data, err := d.loadContents(page.Dict["Contents"])
	if err != nil {
		return nil, err
	}
	ctm := model.Identity.Mul(model.PageCTM(page.MediaBox, page.Rotate))
	it := content.NewInterpreter(d.store, page.Resources, ctm, d.cmapCache, d.contentOpt)
	spans, err := it.Run(data)
	if err != nil {
		d.opts.Logger.Printf("pdf: page %d: content stream interpretation stopped early: %v", pageIndex, err)
	}
	return spans, nil
}

// ExtractText assembles page pageIndex's spans into a single string,
// per spec.md §4.10: MCID-grouped through the structure tree when the
// document is tagged, position-inferred layout otherwise.
func (d *Document) ExtractText(pageIndex int) (string, error) {
	page, err := d.page(pageIndex)
	if err != nil {
		return "", err
	}
	spans, err := d.ExtractSpans(pageIndex)
	if err != nil {
		return "", err
	}

	tree, err := d.structureTree()
	if err != nil {
		d.opts.Logger.Printf("pdf: ignoring unreadable structure tree: %v", err)
		tree = nil
	}
	if tree != nil && len(tree.Roots) > 0 {
		return text.AssembleTagged(spans, tree, page.Ref, func(n int) {
			d.opts.Logger.Printf("pdf: page %d: %d span(s) had no structure-tree MCID, appended at the end", pageIndex, n)
		}, d.asmOpt), nil
	}
	return text.AssembleUntagged(spans, d.asmOpt), nil
}

// StructureTree returns the document's parsed /StructTreeRoot, or nil
// if the document carries none (spec.md §6's Option<StructTree>).
func (d *Document) StructureTree() (*text.Tree, error) {
	return d.structureTree()
}

func (d *Document) structureTree() (*text.Tree, error) {
	if d.structTried {
		return d.structTree, nil
	}
	d.structTried = true

	cat, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	rootObj, ok := cat["StructTreeRoot"]
	if !ok {
		return nil, nil
	}
	resolved, err := d.store.Resolve(rootObj)
	if err != nil {
		return nil, err
	}
	rootDict, ok := resolved.(model.Dict)
	if !ok {
		return nil, nil
	}
	tree, err := text.ParseTree(d.store, rootDict)
	if err != nil {
		return nil, err
	}
	d.structTree = tree
	return tree, nil
}
