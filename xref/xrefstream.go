package xref

import (
	"fmt"

	tkn "github.com/benoitkugler/pstokenizer"
	"github.com/vellumdoc/pdf/filter"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/parser"
)

// streamDictHeader is the parsed "N G obj <<dict>> stream" header of a
// stream object, with the offset of its content (right after the
// "stream" keyword and its mandatory EOL).
type streamDictHeader struct {
	dict          model.Dict
	contentOffset int64
}

func parseStreamDictAt(r *reader, offset int64) (streamDictHeader, error) {
	var out streamDictHeader
	buf, err := r.readAt(offset, int(r.fileSize-offset))
	if err != nil {
		return out, err
	}
	tk := tkn.NewTokenizer(buf)

	if _, err := tk.NextToken(); err != nil { // object number
		return out, err
	}
	if _, err := tk.NextToken(); err != nil { // generation number
		return out, err
	}
	objKw, err := tk.NextToken()
	if err != nil || !objKw.IsOther("obj") {
		return out, fmt.Errorf("expected \"obj\" keyword at offset %d", offset)
	}

	p := parser.NewFromTokenizer(tk)
	obj, err := p.ParseObject()
	if err != nil {
		return out, fmt.Errorf("parsing stream dict: %w", err)
	}
	dict, ok := obj.(model.Dict)
	if !ok {
		return out, fmt.Errorf("expected dict, got %T", obj)
	}

	streamKw, err := tk.NextToken()
	if err != nil || !streamKw.IsOther("stream") {
		return out, fmt.Errorf("expected \"stream\" keyword at offset %d", offset)
	}

	out.dict = dict
	out.contentOffset = offset + int64(tk.StreamPosition())
	return out, nil
}

type xrefStreamDict struct {
	index  [][2]int64
	w      [3]int
	length int64
	size   int64
	prev   int64
}

func (x xrefStreamDict) entrySize() int { return x.w[0] + x.w[1] + x.w[2] }
func (x xrefStreamDict) count() int64 {
	var total int64
	for _, s := range x.index {
		total += s[1]
	}
	return total
}

func parseXRefStreamDict(d model.Dict) (xrefStreamDict, error) {
	var out xrefStreamDict
	out.prev, _ = offsetFromObject(d["Prev"])

	length, ok := d["Length"].(model.Integer)
	if !ok {
		return out, fmt.Errorf("xref stream: missing /Length")
	}
	out.length = int64(length)

	size, ok := d.IntOf("Size")
	if !ok {
		return out, fmt.Errorf("xref stream: missing /Size")
	}
	out.size = size

	if indArr, ok := d["Index"].(model.Array); ok && len(indArr) != 0 {
		if len(indArr)%2 != 0 {
			return out, fmt.Errorf("xref stream: corrupt /Index")
		}
		out.index = make([][2]int64, 0, len(indArr)/2)
		for i := 0; i < len(indArr); i += 2 {
			start, ok1 := indArr[i].(model.Integer)
			cnt, ok2 := indArr[i+1].(model.Integer)
			if !ok1 || !ok2 {
				return out, fmt.Errorf("xref stream: corrupt /Index")
			}
			out.index = append(out.index, [2]int64{int64(start), int64(cnt)})
		}
	} else {
		out.index = [][2]int64{{0, out.size}}
	}

	w, ok := d["W"].(model.Array)
	if !ok || len(w) < 3 {
		return out, fmt.Errorf("xref stream: missing or corrupt /W")
	}
	for i := 0; i < 3; i++ {
		v, ok := w[i].(model.Integer)
		if !ok || v < 0 {
			return out, fmt.Errorf("xref stream: corrupt /W")
		}
		out.w[i] = int(v)
	}
	return out, nil
}

func bufToInt64(buf []byte) (v int64) {
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v
}

// parseXRefStreamAt parses the cross-reference stream object located
// at offset, merging its entries into table (first writer for a given
// object number wins, matching the traditional-table semantics) and
// its trailer-equivalent fields into trailer. It returns the /Prev
// offset found in its dictionary.
func parseXRefStreamAt(r *reader, offset int64, table Table, trailer *Trailer) (int64, error) {
	header, err := parseStreamDictAt(r, offset)
	if err != nil {
		return 0, err
	}

	details, err := parseXRefStreamDict(header.dict)
	if err != nil {
		return 0, err
	}

	raw, err := r.readAt(header.contentOffset, int(details.length))
	if err != nil {
		return 0, err
	}

	decoded, _, err := filter.Decode(raw, header.dict)
	if err != nil {
		return 0, fmt.Errorf("decoding xref stream: %w", err)
	}

	if err := extractEntries(decoded, details, table); err != nil {
		return 0, err
	}

	if _, err := mergeTrailerDict(r, header.dict, table, trailer); err != nil {
		return 0, err
	}

	return details.prev, nil
}

func extractEntries(buf []byte, d xrefStreamDict, table Table) error {
	entrySize, count := d.entrySize(), d.count()
	total := int64(entrySize) * count
	if int64(len(buf)) < total {
		return fmt.Errorf("xref stream: corrupt (have %d bytes, need %d)", len(buf), total)
	}
	buf = buf[:total]

	i1, i2, i3 := d.w[0], d.w[1], d.w[2]
	j := int64(0)
	for _, sub := range d.index {
		first, n := sub[0], sub[1]
		for i := int64(0); i < n; i++ {
			objNum := first + i
			base := j * int64(entrySize)
			c1 := byte(1)
			if i1 > 0 {
				c1 = buf[base]
			}
			c2 := bufToInt64(buf[base+int64(i1) : base+int64(i1+i2)])
			c3 := bufToInt64(buf[base+int64(i1+i2) : base+int64(i1+i2+i3)])

			var entry Entry
			switch c1 {
			case 0:
				entry = Entry{Kind: Free, Offset: c2, Generation: c3}
			case 1:
				entry = Entry{Kind: InUse, Offset: c2, Generation: c3}
			case 2:
				entry = Entry{Kind: Compressed, StreamNumber: c2, StreamIndex: c3}
			default:
				j++
				continue
			}

			if _, exists := table[objNum]; !exists {
				table[objNum] = entry
			}
			j++
		}
	}
	return nil
}
