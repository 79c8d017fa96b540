package filter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vellumdoc/pdf/model"
)

// predictorParams holds the /DecodeParms entries relevant to Flate and
// LZW's optional PNG/TIFF predictor post-processing step (7.4.4.4).
type predictorParams struct {
	predictor int
	colors    int
	bpc       int
	columns   int
}

func newPredictorParams(parms map[model.Name]model.Object) (predictorParams, error) {
	predictor := 1
	if v, ok := intParam(parms, "Predictor"); ok {
		predictor = v
	}
	switch predictor {
	case 1, 2, 10, 11, 12, 13, 14, 15:
	default:
		return predictorParams{}, fmt.Errorf("unexpected Predictor: %d", predictor)
	}

	colors := 1
	if v, ok := intParam(parms, "Colors"); ok {
		if v <= 0 {
			return predictorParams{}, fmt.Errorf("Colors must be > 0, got %d", v)
		}
		colors = v
	}

	bpc := 8
	if v, ok := intParam(parms, "BitsPerComponent"); ok {
		switch v {
		case 1, 2, 4, 8, 16:
			bpc = v
		default:
			return predictorParams{}, fmt.Errorf("unexpected BitsPerComponent: %d", v)
		}
	}

	columns := 1
	if v, ok := intParam(parms, "Columns"); ok {
		columns = v
	}

	return predictorParams{predictor: predictor, colors: colors, bpc: bpc, columns: columns}, nil
}

func (p predictorParams) rowSize() int {
	return p.bpc * p.colors * p.columns / 8
}

// apply reverses the predictor applied by the producer, if any. When
// predictor is 1 (the default, meaning "no prediction"), raw is
// returned unchanged.
func (p predictorParams) apply(raw []byte) ([]byte, error) {
	if p.predictor == 1 {
		return raw, nil
	}

	bytesPerPixel := (p.bpc*p.colors + 7) / 8
	rowSize := p.rowSize()
	if p.predictor != 2 {
		rowSize++ // PNG prediction prefixes each row with a filter-type byte
	}

	cr := make([]byte, rowSize)
	pr := make([]byte, rowSize)
	var out []byte

	r := bytes.NewReader(raw)
	for {
		_, err := io.ReadFull(r, cr)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, err
		}

		d, err := processRow(pr, cr, p.predictor, p.colors, bytesPerPixel)
		if err != nil {
			return nil, err
		}
		out = append(out, d...)
		pr, cr = cr, pr
	}

	if p.rowSize() > 0 && len(out)%p.rowSize() != 0 {
		return nil, fmt.Errorf("predictor postprocessing failed: got %d bytes, row size %d", len(out), p.rowSize())
	}
	return out, nil
}

func processRow(pr, cr []byte, predictor, colors, bytesPerPixel int) ([]byte, error) {
	if predictor == 2 { // TIFF
		return applyHorizontalDiff(cr, colors), nil
	}

	// PNG predictor: first byte of the row names the per-row filter.
	cdat := cr[1:]
	pdat := pr[1:]

	switch f := cr[0]; f {
	case 0: // None
	case 1: // Sub
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += cdat[i-bytesPerPixel]
		}
	case 2: // Up
		for i, b := range pdat {
			cdat[i] += b
		}
	case 3: // Average
		for i := 0; i < bytesPerPixel; i++ {
			cdat[i] += pdat[i] / 2
		}
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += uint8((int(cdat[i-bytesPerPixel]) + int(pdat[i])) / 2)
		}
	case 4: // Paeth
		filterPaeth(cdat, pdat, bytesPerPixel)
	default:
		return nil, fmt.Errorf("unknown PNG row filter: %d", f)
	}
	return cdat, nil
}

func applyHorizontalDiff(row []byte, colors int) []byte {
	for i := 1; i < len(row)/colors; i++ {
		for j := 0; j < colors; j++ {
			row[i*colors+j] += row[(i-1)*colors+j]
		}
	}
	return row
}

func abs32(x int32) int32 {
	m := x >> 31
	return (x ^ m) - m
}

func filterPaeth(cdat, pdat []byte, bytesPerPixel int) {
	var a, b, c, pa, pb, pc int32
	for i := 0; i < bytesPerPixel; i++ {
		a, c = 0, 0
		for j := i; j < len(cdat); j += bytesPerPixel {
			b = int32(pdat[j])
			pa = abs32(b - c)
			pb = abs32(a - c)
			pc = abs32(b - c + a - c)
			var pred int32
			switch {
			case pa <= pb && pa <= pc:
				pred = a
			case pb <= pc:
				pred = b
			default:
				pred = c
			}
			a = (pred + int32(cdat[j])) & 0xff
			cdat[j] = uint8(a)
			c = b
		}
	}
}
