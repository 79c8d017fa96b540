package filter

import (
	"bytes"
	"encoding/ascii85"
	"errors"
	"io"
)

func decodeASCII85(data []byte) ([]byte, error) {
	// ascii85.NewDecoder doesn't understand PDF's leading "<~" or
	// trailing "~>" delimiters; strip them if present.
	data = bytes.TrimPrefix(data, []byte("<~"))
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	dec := ascii85.NewDecoder(bytes.NewReader(data))
	return io.ReadAll(dec)
}

func decodeASCIIHex(data []byte) ([]byte, error) {
	if i := bytes.IndexByte(data, '>'); i >= 0 {
		data = data[:i]
	}
	out := make([]byte, 0, len(data)/2+1)
	hi, haveHi := byte(0), false
	for _, b := range data {
		var v byte
		switch {
		case b >= '0' && b <= '9':
			v = b - '0'
		case b >= 'a' && b <= 'f':
			v = b - 'a' + 10
		case b >= 'A' && b <= 'F':
			v = b - 'A' + 10
		case b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f':
			continue
		default:
			return nil, errors.New("invalid character in ASCIIHexDecode stream")
		}
		if !haveHi {
			hi, haveHi = v, true
			continue
		}
		out = append(out, hi<<4|v)
		haveHi = false
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return out, nil
}

const eodRunLength = 0x80

// decodeRunLength implements the TIFF PackBits-derived scheme of 7.4.5.
func decodeRunLength(data []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		b := data[i]
		i++
		if b == eodRunLength {
			return out.Bytes(), nil
		}
		if b < 0x80 {
			n := int(b) + 1
			if i+n > len(data) {
				return nil, errors.New("RunLengthDecode: truncated literal run")
			}
			out.Write(data[i : i+n])
			i += n
			continue
		}
		if i >= len(data) {
			return nil, errors.New("RunLengthDecode: truncated repeat run")
		}
		n := 257 - int(b)
		rb := data[i]
		i++
		for j := 0; j < n; j++ {
			out.WriteByte(rb)
		}
	}
	// Missing EOD marker: accept what was decoded, matching lenient
	// readers that tolerate a missing trailing 0x80.
	return out.Bytes(), nil
}
