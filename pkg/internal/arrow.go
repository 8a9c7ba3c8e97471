// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/schema"
)

// ToArrow executes the frame and converts the matching rows to a flat
// Arrow record. Nested objects become dot-joined columns; documents
// lacking a column yield nulls.
func (df *DataFrame) ToArrow(ctx context.Context, options *contracts.CollectOptions) (arrow.Record, error) {
	rows, err := df.Collect(ctx, options)
	if err != nil {
		return nil, err
	}

	flattened := make([]contracts.Row, len(rows))
	columnSet := map[string]struct{}{}
	for i, row := range rows {
		flat := FlattenRow(row)
		flattened[i] = flat
		for name := range flat {
			columnSet[name] = struct{}{}
		}
	}

	columns := make([]string, 0, len(columnSet))
	for name := range columnSet {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{
			Name:     name,
			Type:     df.columnType(name, flattened),
			Nullable: true,
		}
	}

	pool := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(pool, arrow.NewSchema(fields, nil))
	defer builder.Release()

	for _, row := range flattened {
		for i, name := range columns {
			if err := appendValue(builder.Field(i), row[name]); err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
		}
	}
	return builder.NewRecord(), nil
}

// columnType picks an Arrow type from the mapping dtype, falling back to
// the first observed value for synthetic columns like the score.
func (df *DataFrame) columnType(name string, rows []contracts.Row) arrow.DataType {
	if field, err := df.schema.Field(name); err == nil {
		switch field.Dtype() {
		case schema.DtypeInteger:
			return arrow.PrimitiveTypes.Int64
		case schema.DtypeFloat, schema.DtypeDecimal:
			return arrow.PrimitiveTypes.Float64
		case schema.DtypeBoolean:
			return arrow.FixedWidthTypes.Boolean
		case schema.DtypeDate:
			return arrow.FixedWidthTypes.Timestamp_ms
		default:
			return arrow.BinaryTypes.String
		}
	}

	for _, row := range rows {
		switch row[name].(type) {
		case nil:
			continue
		case float64, json.Number:
			return arrow.PrimitiveTypes.Float64
		case bool:
			return arrow.FixedWidthTypes.Boolean
		default:
			return arrow.BinaryTypes.String
		}
	}
	return arrow.BinaryTypes.String
}

func appendValue(builder array.Builder, value interface{}) error {
	if value == nil {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.Int64Builder:
		number, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("cannot convert %T to int64", value)
		}
		b.Append(int64(number))
	case *array.Float64Builder:
		number, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("cannot convert %T to float64", value)
		}
		b.Append(number)
	case *array.BooleanBuilder:
		flag, ok := value.(bool)
		if !ok {
			return fmt.Errorf("cannot convert %T to bool", value)
		}
		b.Append(flag)
	case *array.TimestampBuilder:
		millis, err := asMillis(value)
		if err != nil {
			return err
		}
		b.Append(arrow.Timestamp(millis))
	case *array.StringBuilder:
		if text, ok := value.(string); ok {
			b.Append(text)
			return nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("cannot encode %T as string: %w", value, err)
		}
		b.Append(string(encoded))
	default:
		return fmt.Errorf("unsupported column type %T", builder)
	}
	return nil
}

func asFloat(value interface{}) (float64, bool) {
	switch number := value.(type) {
	case float64:
		return number, true
	case json.Number:
		parsed, err := number.Float64()
		return parsed, err == nil
	case int:
		return float64(number), true
	case int64:
		return float64(number), true
	}
	return 0, false
}

// asMillis decodes the date representations documents carry: epoch millis
// or an RFC 3339 style string.
func asMillis(value interface{}) (int64, error) {
	if number, ok := asFloat(value); ok {
		return int64(number), nil
	}
	text, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("cannot convert %T to timestamp", value)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("cannot parse %q as timestamp", text)
}
