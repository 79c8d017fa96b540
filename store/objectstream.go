package store

import (
	"bytes"
	"fmt"

	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/parser"
)

// maxObjStmMembers and maxObjStmFirst bound /N and /First the same way
// xref.maxSubsections bounds a subsection count: a crafted value must
// not be trusted far past what a legitimate object stream ever needs,
// even though it is also implicitly bounded by the decoded stream
// length.
const (
	maxObjStmMembers = 1_000_000
	maxObjStmFirst   = 10_000_000
)

// loadCompressed loads the object at position index within the object
// stream streamNum, decoding and caching every sibling it contains
// opportunistically (they are free once the stream is decoded).
func (s *Store) loadCompressed(ref model.Reference, streamNum, index int64) (model.Object, error) {
	members, err := s.objectStream(streamNum)
	if err != nil {
		return nil, model.WrapError(model.ParseError, fmt.Sprintf("loading object stream %d", streamNum), err)
	}

	var found model.Object
	foundOK := false
	for _, m := range members {
		if _, exists := s.cache[m.ref]; !exists {
			s.cache[m.ref] = m.object
		}
		if m.ref == ref {
			found = m.object
			foundOK = true
		}
	}
	if !foundOK {
		if int(index) >= 0 && int(index) < len(members) {
			found = members[index].object
			foundOK = true
		}
	}
	if !foundOK {
		return nil, model.ObjectNotFoundError(ref)
	}
	return found, nil
}

// objectStream decodes (or returns the cached decoding of) the object
// stream numbered streamNum, per §4.7 step 6's Compressed dispatch:
// load it as an ordinary uncompressed object (it is never itself
// compressed), decrypt and filter-decode its content, then split it
// into its N leading (obj_num, offset) pairs followed by the objects
// themselves.
func (s *Store) objectStream(streamNum int64) ([]parsedMember, error) {
	if members, ok := s.objStms[streamNum]; ok {
		return members, nil
	}

	// an object stream is always itself an uncompressed object (never
	// nested inside another object stream).
	obj, err := s.Load(model.Reference{Number: streamNum, Generation: 0})
	if err != nil {
		return nil, fmt.Errorf("loading object stream container: %w", err)
	}
	stm, ok := obj.(model.Stream)
	if !ok {
		return nil, fmt.Errorf("object %d is not a stream", streamNum)
	}

	n, _ := stm.Dict.IntOf("N")
	if n < 0 || n > maxObjStmMembers {
		return nil, fmt.Errorf("object stream %d: /N %d exceeds the maximum of %d", streamNum, n, maxObjStmMembers)
	}
	first, ok := stm.Dict.IntOf("First")
	if !ok {
		return nil, fmt.Errorf("object stream %d: missing /First", streamNum)
	}
	if first < 0 || first > maxObjStmFirst {
		return nil, fmt.Errorf("object stream %d: /First %d exceeds the maximum of %d", streamNum, first, maxObjStmFirst)
	}
	if int(first) > len(stm.Content) {
		return nil, fmt.Errorf("object stream %d: /First out of bounds", streamNum)
	}

	prolog := bytes.ReplaceAll(stm.Content[:first], []byte{0x00}, []byte{0x20})
	fields := bytes.Fields(prolog)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("object stream %d: corrupt prolog", streamNum)
	}
	pairCount := len(fields) / 2
	if int64(pairCount) != n && n != 0 {
		pairCount = int(n) // trust /N when it disagrees with a corrupted prolog tail
		if pairCount > len(fields)/2 {
			pairCount = len(fields) / 2
		}
	}

	members := make([]parsedMember, 0, pairCount)
	for i := 0; i < pairCount; i++ {
		var num, offset int64
		if _, err := fmt.Sscanf(string(fields[2*i]), "%d", &num); err != nil {
			return nil, fmt.Errorf("object stream %d: corrupt object number in prolog", streamNum)
		}
		if _, err := fmt.Sscanf(string(fields[2*i+1]), "%d", &offset); err != nil {
			return nil, fmt.Errorf("object stream %d: corrupt offset in prolog", streamNum)
		}

		start := int(first) + int(offset)
		if start < 0 || start > len(stm.Content) {
			return nil, fmt.Errorf("object stream %d: object offset out of bounds", streamNum)
		}
		end := len(stm.Content)
		if i+1 < pairCount {
			var nextOffset int64
			fmt.Sscanf(string(fields[2*(i+1)+1]), "%d", &nextOffset)
			candidateEnd := int(first) + int(nextOffset)
			if candidateEnd >= start && candidateEnd <= len(stm.Content) {
				end = candidateEnd
			}
		}

		embeddedObj, err := parser.ParseObject(stm.Content[start:end])
		if err != nil {
			return nil, fmt.Errorf("object stream %d: parsing member %d: %w", streamNum, num, err)
		}

		members = append(members, parsedMember{
			ref:    model.Reference{Number: num, Generation: 0},
			object: embeddedObj,
		})
	}

	s.objStms[streamNum] = members
	return members, nil
}
