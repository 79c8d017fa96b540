package pdf

import (
	"io"
	"strconv"

	"github.com/vellumdoc/pdf/cmap"
	"github.com/vellumdoc/pdf/content"
	"github.com/vellumdoc/pdf/crypt"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/store"
	"github.com/vellumdoc/pdf/text"
	"github.com/vellumdoc/pdf/xref"
)

// Open reads source's header, cross-reference information and (if
// present) encryption dictionary, and returns a Document ready for
// LoadObject/ExtractText/etc. calls. opts may be nil, in which case
// DefaultOpenOptions is used.
//
// Open is the only call that can fail the whole document (spec.md
// §7's "open-time errors are fatal for that document"); per-page
// failures afterward are isolated to the page that triggered them.
func Open(source io.ReadSeeker, opts *OpenOptions) (*Document, error) {
	var o OpenOptions
	if opts != nil {
		o = *opts
	}
	o.fillDefaults()
	if err := o.validateSelf(); err != nil {
		return nil, model.WrapError(model.InvalidPdf, "invalid OpenOptions", err)
	}

	major, minor, err := readHeaderVersion(source)
	if err != nil {
		return nil, err
	}

	table, trailer, err := xref.Parse(source, o.XrefSanityThreshold)
	if err != nil {
		return nil, model.WrapError(model.InvalidXref, "parsing cross-reference information", err)
	}

	var handler *crypt.Handler
	if trailer.Encrypt != nil {
		handler, err = setupEncryption(source, table, trailer, o.Password)
		if err != nil {
			// Neither a wrong password nor a recognized-but-unsupported
			// (Public-Key) handler aborts Open: the document is still
			// readable for its unencrypted parts, and AuthenticatePassword
			// gives the caller a second chance at the former.
			o.Logger.Printf("pdf: opening without decryption: %v", err)
			handler, err = nil, nil
		}
	}

	st := store.New(source, table, trailer, handler)
	st.SetMaxResolutionDepth(o.MaxResolutionDepth)

	doc := &Document{
		rs:            source,
		opts:          o,
		store:         st,
		table:         table,
		trailer:       trailer,
		versionMajor:  major,
		versionMinor:  minor,
		cmapCache:     cmap.NewCache(o.CMapCacheCapacity),
		contentOpt:    content.DefaultOptions(),
		asmOpt:        text.DefaultAssembleOptions(),
		authenticated: handler != nil || trailer.Encrypt == nil,
	}
	return doc, nil
}

// readHeaderVersion validates and parses the %PDF-M.m header (spec.md
// §6/§8: 8 bytes at offset 0, M in {1, 2}).
func readHeaderVersion(rs io.ReadSeeker) (major, minor uint8, err error) {
	if _, err = rs.Seek(0, io.SeekStart); err != nil {
		return 0, 0, model.WrapError(model.Io, "seeking to header", err)
	}
	buf := make([]byte, 8)
	if _, err = io.ReadFull(rs, buf); err != nil {
		return 0, 0, model.NewError(model.InvalidHeader, "file shorter than the 8-byte %PDF-M.m header")
	}
	const prefix = "%PDF-"
	if string(buf[:len(prefix)]) != prefix {
		return 0, 0, model.NewError(model.InvalidHeader, "missing %PDF- header")
	}
	if buf[6] != '.' {
		return 0, 0, model.NewError(model.InvalidHeader, "malformed %PDF-M.m header")
	}
	m, err1 := strconv.Atoi(string(buf[5]))
	n, err2 := strconv.Atoi(string(buf[7]))
	if err1 != nil || err2 != nil {
		return 0, 0, model.NewError(model.InvalidHeader, "non-digit version in %PDF-M.m header")
	}
	if m != 1 && m != 2 {
		return 0, 0, model.NewErrorf(model.UnsupportedVersion, "unsupported PDF major version %d", m)
	}
	return uint8(m), uint8(n), nil
}

// setupEncryption resolves the trailer's /Encrypt dictionary and
// authenticates password against it, mirroring the teacher's
// ctx.setupEncryption ordering (resolve dict, derive key, try the
// password as user then as owner password, including the empty password).
func setupEncryption(rs io.ReadSeeker, table xref.Table, trailer xref.Trailer, password string) (*crypt.Handler, error) {
	st := store.New(rs, table, trailer, nil)

	encObj, err := st.Resolve(trailer.Encrypt)
	if err != nil {
		return nil, model.WrapError(model.InvalidPdf, "resolving /Encrypt dictionary", err)
	}
	encDict, ok := encObj.(model.Dict)
	if !ok {
		return nil, model.InvalidObjectTypeError("dict", "other")
	}

	enc, err := crypt.ParseDict(encDict, st)
	if err != nil {
		return nil, model.WrapError(model.InvalidPdf, "parsing /Encrypt dictionary", err)
	}

	var fileID []byte
	if len(trailer.ID) > 0 {
		if s, ok := model.StringValue(trailer.ID[0]); ok {
			fileID = []byte(s)
		}
	}

	handler, err := crypt.New(enc, fileID, password)
	if err != nil {
		return nil, err
	}
	return handler, nil
}

// AuthenticatePassword retries authentication against the document's
// encryption dictionary with a new password, returning whether it
// succeeded. It is a no-op returning true for a document that was
// never encrypted.
func (d *Document) AuthenticatePassword(password string) (bool, error) {
	if d.trailer.Encrypt == nil {
		return true, nil
	}
	handler, err := setupEncryption(d.rs, d.table, d.trailer, password)
	if err != nil {
		if err == crypt.ErrAuthenticationFailed {
			return false, nil
		}
		return false, err
	}
	d.store.SetHandler(handler)
	d.authenticated = true
	return true, nil
}
