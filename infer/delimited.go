package infer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/types"
)

// Delimited infers a schema from delimited text and materializes every
// record against it.
//
// Records are lines; fields are split on the delimiter, honoring the quote
// character for fields that contain delimiters or doubled quotes. The field
// splitter is hand-rolled because encoding/csv hardcodes '"' and the options
// contract requires a configurable quote. With Header set, the first
// record's values become field names; otherwise names are synthesized as
// c0..cN. Column types are inferred over the sample as the narrowest of
// Long, Double, Boolean, and String that fits every sampled value; empty
// fields are null, so every column is nullable.
func Delimited(r io.Reader, opts Options) (schema.Schema, []row.Row, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, nil, err
	}

	records, err := readRecords(r, opts)
	if err != nil {
		return nil, nil, err
	}

	var header []string
	if opts.Header && len(records) > 0 {
		header = records[0]
		records = records[1:]
	}

	width := len(header)
	if width == 0 && len(records) > 0 {
		width = len(records[0])
	}
	for i, record := range records {
		if len(record) != width {
			return nil, nil, errors.WrapInvalid(
				fmt.Errorf("record %d has %d fields, expected %d", i, len(record), width),
				"infer", "Delimited", "record width check")
		}
	}

	var sch schema.Schema
	if opts.Schema != nil {
		sch = *opts.Schema
		if len(sch) != width && len(records) > 0 {
			return nil, nil, errors.WrapInvalid(
				fmt.Errorf("%w: override schema has %d fields, records have %d",
					errors.ErrInvalidConfig, len(sch), width),
				"infer", "Delimited", "override schema check")
		}
	} else {
		sch = inferDelimitedSchema(header, records, width, opts.sampleSize(len(records)))
	}

	rows := make([]row.Row, len(records))
	for i, record := range records {
		r, err := delimitedRow(record, sch)
		if err != nil {
			return nil, nil, errors.Wrap(err, "infer", "Delimited",
				fmt.Sprintf("record %d materialization", i))
		}
		rows[i] = r
	}

	return sch, rows, nil
}

func readRecords(r io.Reader, opts Options) ([][]string, error) {
	var records [][]string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields, err := splitLine(line, opts.Delimiter, opts.Quote)
		if err != nil {
			return nil, errors.WrapInvalid(err, "infer", "Delimited", "line splitting")
		}
		records = append(records, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapTransient(err, "infer", "Delimited", "input reading")
	}
	return records, nil
}

// splitLine splits one record on delim. A field may be wrapped in quote
// runes, inside which delimiters are literal and a doubled quote encodes one
// quote rune.
func splitLine(line string, delim, quote rune) ([]string, error) {
	var fields []string
	var field []rune
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes:
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					field = append(field, quote)
					i++
					continue
				}
				inQuotes = false
				continue
			}
			field = append(field, r)
		case r == quote && len(field) == 0:
			inQuotes = true
		case r == delim:
			fields = append(fields, string(field))
			field = field[:0]
		default:
			field = append(field, r)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quote in record %q", line)
	}

	fields = append(fields, string(field))
	return fields, nil
}

func inferDelimitedSchema(header []string, records [][]string, width, sample int) schema.Schema {
	sch := make(schema.Schema, width)
	for col := 0; col < width; col++ {
		name := fmt.Sprintf("c%d", col)
		if header != nil {
			name = header[col]
		}
		sch[col] = schema.Field{
			Name:     name,
			DataType: inferColumnKind(records, col, sample),
			Nullable: true,
		}
	}
	return sch
}

// inferColumnKind returns the narrowest kind that fits every sampled,
// non-empty value of the column
func inferColumnKind(records [][]string, col, sample int) types.CanonicalType {
	isLong, isDouble, isBool := true, true, true
	seen := false

	for _, record := range records[:sample] {
		v := record[col]
		if v == "" {
			continue
		}
		seen = true

		if isLong {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isLong = false
			}
		}
		if isDouble {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isDouble = false
			}
		}
		if isBool && v != "true" && v != "false" {
			isBool = false
		}
	}

	switch {
	case !seen:
		return types.String
	case isLong:
		return types.Long
	case isDouble:
		return types.Double
	case isBool:
		return types.Boolean
	default:
		return types.String
	}
}

func delimitedRow(record []string, sch schema.Schema) (row.Row, error) {
	r := make(row.Row, len(sch))
	for i, f := range sch {
		v := record[i]
		if v == "" {
			r[i] = nil
			continue
		}

		switch f.DataType {
		case types.String:
			r[i] = v
		case types.Long:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, parseError(v, f, err)
			}
			r[i] = n
		case types.Double:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, parseError(v, f, err)
			}
			r[i] = n
		case types.Boolean:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, parseError(v, f, err)
			}
			r[i] = b
		case types.Integer:
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return nil, parseError(v, f, err)
			}
			r[i] = int32(n)
		case types.Byte:
			n, err := strconv.ParseInt(v, 10, 8)
			if err != nil {
				return nil, parseError(v, f, err)
			}
			r[i] = int8(n)
		case types.Short:
			n, err := strconv.ParseInt(v, 10, 16)
			if err != nil {
				return nil, parseError(v, f, err)
			}
			r[i] = int16(n)
		case types.Float:
			n, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return nil, parseError(v, f, err)
			}
			r[i] = float32(n)
		}
	}
	return r, nil
}

func parseError(value string, f schema.Field, err error) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: value %q for field %s: %v", errors.ErrRecordTypeMismatch, value, f, err),
		"infer", "Delimited", "value parsing")
}
