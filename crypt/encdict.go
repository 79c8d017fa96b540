package crypt

import (
	"fmt"

	"github.com/vellumdoc/pdf/model"
)

// Resolver fetches the object behind an indirect reference. The crypt
// package needs it because a /CF entry's /Length, or the /Encrypt
// dictionary itself, may be written as an indirect reference.
type Resolver interface {
	Resolve(model.Object) (model.Object, error)
}

// ParseDict builds a model.Encrypt from a document's (already resolved)
// /Encrypt dictionary. Entries that are themselves indirect references
// are resolved through r.
func ParseDict(d model.Dict, r Resolver) (model.Encrypt, error) {
	var enc model.Encrypt

	if name, ok := d.NameOf("Filter"); ok {
		enc.Filter = name
	}
	if name, ok := d.NameOf("SubFilter"); ok {
		enc.SubFilter = name
	}
	if v, ok := d.IntOf("V"); ok {
		enc.V = model.EncryptionAlgorithm(v)
	} else {
		enc.V = model.Key40
	}
	enc.Length = 5
	if l, ok := d.IntOf("Length"); ok {
		enc.Length = uint8(l / 8) // /Length is given in bits
	}
	if p, ok := d.IntOf("P"); ok {
		enc.P = model.UserPermissions(uint32(p))
	}
	if name, ok := d.NameOf("StmF"); ok {
		enc.StmF = name
	} else {
		enc.StmF = "Identity"
	}
	if name, ok := d.NameOf("StrF"); ok {
		enc.StrF = name
	} else {
		enc.StrF = "Identity"
	}

	if cfDict, ok := d.DictOf("CF"); ok {
		enc.CF = make(map[model.Name]model.CryptFilter, len(cfDict))
		for name, o := range cfDict {
			sub, err := resolveDict(r, o)
			if err != nil {
				continue // a single malformed /CF entry does not sink the whole handler
			}
			var cf model.CryptFilter
			if cfm, ok := sub.NameOf("CFM"); ok {
				cf.CFM = model.CryptFilterMethod(cfm)
			}
			if l, ok := sub.IntOf("Length"); ok {
				cf.Length = int(l)
			}
			if em, ok := sub["EncryptMetadata"].(model.Boolean); ok {
				cf.DontEncryptMetadata = !bool(em)
			}
			enc.CF[name] = cf
		}
	}

	if v, ok := d["R"]; ok {
		iv, _ := model.Number(v)
		enc.R = uint8(iv)
	}
	if s, ok := model.StringValue(firstOf(r, d["O"])); ok {
		enc.O = []byte(s)
	}
	if s, ok := model.StringValue(firstOf(r, d["U"])); ok {
		enc.U = []byte(s)
	}
	if oe, ok := d["OE"]; ok {
		s, _ := model.StringValue(firstOf(r, oe))
		enc.OE = []byte(s)
	}
	if ue, ok := d["UE"]; ok {
		s, _ := model.StringValue(firstOf(r, ue))
		enc.UE = []byte(s)
	}
	if perms, ok := d["Perms"]; ok {
		s, _ := model.StringValue(firstOf(r, perms))
		enc.Perms = []byte(s)
	}
	if em, ok := d["EncryptMetadata"].(model.Boolean); ok {
		enc.DontEncryptMetadata = !bool(em)
	}

	if recipients, ok := d.ArrayOf("Recipients"); ok {
		for _, ro := range recipients {
			s, _ := model.StringValue(firstOf(r, ro))
			enc.Recipients = append(enc.Recipients, []byte(s))
		}
	}

	return enc, nil
}

// firstOf resolves o if r is non-nil, otherwise returns it unchanged;
// errors are swallowed since a missing ancillary field should degrade
// gracefully rather than abort building the whole Encrypt dictionary.
func firstOf(r Resolver, o model.Object) model.Object {
	if r == nil || o == nil {
		return o
	}
	resolved, err := r.Resolve(o)
	if err != nil {
		return o
	}
	return resolved
}

func resolveDict(r Resolver, o model.Object) (model.Dict, error) {
	resolved := firstOf(r, o)
	d, ok := resolved.(model.Dict)
	if !ok {
		return nil, fmt.Errorf("crypt: expected dict, got %T", resolved)
	}
	return d, nil
}
