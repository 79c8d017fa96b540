// Package filter decodes the bytes of a PDF stream according to its
// /Filter chain (and /DecodeParms), turning the encoded bytes stored
// in a model.Stream into the payload an upstream reader actually
// wants (page content, an embedded font program, an ICC profile...).
package filter

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/hhrutter/lzw"
	"github.com/vellumdoc/pdf/model"
)

// Name constants for the filters named in 7.4 of the PDF spec.
const (
	ASCII85   model.Name = "ASCII85Decode"
	ASCIIHex  model.Name = "ASCIIHexDecode"
	RunLength model.Name = "RunLengthDecode"
	LZW       model.Name = "LZWDecode"
	Flate     model.Name = "FlateDecode"
	DCT       model.Name = "DCTDecode"
	CCITTFax  model.Name = "CCITTFaxDecode"
	JBIG2     model.Name = "JBIG2Decode"
	JPX       model.Name = "JPXDecode"
	Crypt     model.Name = "Crypt"
)

// imageFilters produce data this package does not attempt to decode
// further: the caller gets the still-encoded bytes back, since turning
// them into pixels needs an image decoder outside this core's scope
// (spec Non-goal: image extraction beyond the XObject interface).
var imageFilters = map[model.Name]bool{
	DCT: true, CCITTFax: true, JBIG2: true, JPX: true,
}

// Decode applies every filter in a stream's /Filter chain (in order)
// to content, using the matching /DecodeParms entries, and returns the
// final bytes.
//
// If the chain ends in an image filter (DCTDecode, CCITTFaxDecode,
// JBIG2Decode, JPXDecode), the bytes right before that filter are
// returned unchanged along with the name of the filter left undecoded,
// so the caller can hand them to an image decoder itself.
func Decode(content []byte, dict model.Dict) (data []byte, remainingFilter model.Name, err error) {
	names, parms, err := filterChain(dict)
	if err != nil {
		return nil, "", err
	}

	data = content
	for i, name := range names {
		if imageFilters[name] {
			return data, name, nil
		}
		if name == Crypt {
			continue // decryption already applied upstream
		}
		data, err = decodeOne(name, data, parms[i])
		if err != nil {
			return nil, "", fmt.Errorf("filter %s: %w", name, err)
		}
	}
	return data, "", nil
}

func filterChain(dict model.Dict) (names []model.Name, parms []map[model.Name]model.Object, err error) {
	switch f := dict["Filter"].(type) {
	case nil:
		return nil, nil, nil
	case model.Name:
		names = []model.Name{f}
	case model.Array:
		for _, o := range f {
			n, ok := o.(model.Name)
			if !ok {
				return nil, nil, fmt.Errorf("invalid entry in /Filter array: %T", o)
			}
			names = append(names, n)
		}
	default:
		return nil, nil, fmt.Errorf("invalid /Filter: %T", f)
	}

	parms = make([]map[model.Name]model.Object, len(names))
	switch p := dict["DecodeParms"].(type) {
	case nil:
	case model.Dict:
		if len(names) != 1 {
			return nil, nil, fmt.Errorf("/DecodeParms is a single dict but /Filter has %d entries", len(names))
		}
		parms[0] = map[model.Name]model.Object(p)
	case model.Array:
		for i, o := range p {
			if i >= len(parms) {
				break
			}
			if d, ok := o.(model.Dict); ok {
				parms[i] = map[model.Name]model.Object(d)
			}
		}
	}
	return names, parms, nil
}

func decodeOne(name model.Name, data []byte, parms map[model.Name]model.Object) ([]byte, error) {
	switch name {
	case Flate:
		return decodeFlate(data, parms)
	case LZW:
		return decodeLZW(data, parms)
	case ASCII85:
		return decodeASCII85(data)
	case ASCIIHex:
		return decodeASCIIHex(data)
	case RunLength:
		return decodeRunLength(data)
	default:
		return nil, fmt.Errorf("unsupported filter: %s", name)
	}
}

func decodeFlate(data []byte, parms map[model.Name]model.Object) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	pp, err := newPredictorParams(parms)
	if err != nil {
		return nil, err
	}
	return pp.apply(raw)
}

func decodeLZW(data []byte, parms map[model.Name]model.Object) ([]byte, error) {
	earlyChange := true
	if ec, ok := intParam(parms, "EarlyChange"); ok && ec == 0 {
		earlyChange = false
	}
	rc := lzw.NewReader(bytes.NewReader(data), earlyChange)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	pp, err := newPredictorParams(parms)
	if err != nil {
		return nil, err
	}
	return pp.apply(raw)
}

func intParam(parms map[model.Name]model.Object, key model.Name) (int, bool) {
	v, ok := Number(parms, key)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// Number reads a numeric entry out of a decode-parameters map.
func Number(parms map[model.Name]model.Object, key model.Name) (float64, bool) {
	if parms == nil {
		return 0, false
	}
	return model.Number(parms[key])
}
