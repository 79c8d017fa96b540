package pdf

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// OpenOptions configures Open. The zero value is not ready to use;
// call DefaultOpenOptions and override what you need.
type OpenOptions struct {
	// Password tried against an encrypted document's user and owner
	// passwords, in that order. The empty string is a valid password.
	Password string

	// Strict is accepted but not read: every document is
	// read leniently regardless of this flag, with the lenient-parsing
	// fallbacks (xref-miss file-scan fallback among them) always on.
	Strict bool

	// XrefSanityThreshold is the minimum number of entries a parsed
	// xref table must have before it is trusted over a from-scratch
	// reconstruction (spec.md §9's "current source uses < 5 entries"
	// open question; see DESIGN.md).
	XrefSanityThreshold int `validate:"min=0"`

	// MaxResolutionDepth bounds indirect-reference chains and page-
	// tree/structure-tree recursion (spec.md §9's 100-deep cap).
	MaxResolutionDepth int `validate:"min=1"`

	// CMapCacheCapacity bounds the CMap cache Open creates for the
	// Document; that cache is not shared with other Documents.
	CMapCacheCapacity int `validate:"min=1"`

	// Logger receives recoverable-error diagnostics. Defaults to a
	// no-op logger.
	Logger Logger `validate:"-"`
}

// DefaultOpenOptions returns the options Open uses when none are
// supplied: empty password, lenient parsing, an xref sanity threshold
// of 5, a resolution depth limit of 100 and a 64-entry CMap cache.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		XrefSanityThreshold: 5,
		MaxResolutionDepth:  100,
		CMapCacheCapacity:   64,
		Logger:              nopLogger{},
	}
}

func (o *OpenOptions) fillDefaults() {
	d := DefaultOpenOptions()
	if o.XrefSanityThreshold == 0 {
		o.XrefSanityThreshold = d.XrefSanityThreshold
	}
	if o.MaxResolutionDepth == 0 {
		o.MaxResolutionDepth = d.MaxResolutionDepth
	}
	if o.CMapCacheCapacity == 0 {
		o.CMapCacheCapacity = d.CMapCacheCapacity
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
}

func (o OpenOptions) validateSelf() error {
	return validate.Struct(o)
}
