package LogSRCi

import (
	"fmt"

	"RangeSSE/pkg/utils"
)

// Summary tells where the records of one keyword range sit in the position
// domain.
type Summary struct {
	Keywords  utils.Range
	Positions utils.Range
}

type SummaryCodec struct{}

func (SummaryCodec) Size() int { return 32 }

func (SummaryCodec) Encode(s Summary) []byte {
	return append(s.Keywords.Bytes(), s.Positions.Bytes()...)
}

func (SummaryCodec) Decode(b []byte) (Summary, error) {
	if len(b) != 32 {
		return Summary{}, fmt.Errorf("%w: summary of %d bytes", utils.ErrMalformedEncoding, len(b))
	}
	var c utils.RangeCodec
	kw, err := c.Decode(b[:16])
	if err != nil {
		return Summary{}, err
	}
	pos, err := c.Decode(b[16:])
	if err != nil {
		return Summary{}, err
	}
	return Summary{Keywords: kw, Positions: pos}, nil
}

// summarize returns one summary per distinct keyword of records sorted by keyword.
func summarize(sorted []utils.Record) []Summary {
	var out []Summary
	for pos, r := range sorted {
		p := uint64(pos)
		if n := len(out); n > 0 && out[n-1].Keywords.Start == r.Keyword {
			out[n-1].Positions.End = p
			continue
		}
		out = append(out, Summary{Keywords: utils.Unit(r.Keyword), Positions: utils.Unit(p)})
	}
	return out
}
