// Package Database loads plaintext record datasets for the schemes.
package Database

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"RangeSSE/pkg/utils"
)

// ParseOperation accepts INS/DEL, insert/delete and 0/1.
func ParseOperation(s string) (utils.Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ins", "insert", "0":
		return utils.Insert, nil
	case "del", "delete", "1":
		return utils.Delete, nil
	}
	return 0, fmt.Errorf("%w: operation %q", utils.ErrMalformedEncoding, s)
}

// ReadCSV parses rows of id,keyword[,op]. A first row that does not start with
// a number is a header.
func ReadCSV(r io.Reader) ([]utils.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records []utils.Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) < 2 || len(row) > 3 {
			return nil, fmt.Errorf("line %d: %w: %d fields", line, utils.ErrMalformedEncoding, len(row))
		}
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w: id %q", line, utils.ErrMalformedEncoding, row[0])
		}
		kw, err := strconv.ParseUint(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: keyword %q", line, utils.ErrMalformedEncoding, row[1])
		}
		op := utils.Insert
		if len(row) == 3 {
			if op, err = ParseOperation(row[2]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		records = append(records, utils.Record{ID: id, Keyword: kw, Op: op})
	}
}

func LoadCSV(path string) ([]utils.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes a header and one id,keyword,op row per record.
func WriteCSV(w io.Writer, records []utils.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "keyword", "op"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{strconv.FormatUint(r.ID, 10), strconv.FormatUint(r.Keyword, 10), r.Op.String()}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
