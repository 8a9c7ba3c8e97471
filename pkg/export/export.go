// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

// Package export writes collected rows to object storage as NDJSON or CSV.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/internal"
)

// Format selects the serialization of exported rows.
type Format string

const (
	FormatNDJSON Format = "ndjson"
	FormatCSV    Format = "csv"
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Exporter uploads collected rows to an S3 compatible store.
type Exporter struct {
	client *minio.Client
}

// NewExporter connects to the configured object store.
func NewExporter(config Config) (*Exporter, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &Exporter{client: client}, nil
}

// Export collects the frame and uploads the rows as one object.
func (e *Exporter) Export(ctx context.Context, df contracts.IDataFrame, bucket, object string, format Format, options *contracts.CollectOptions) error {
	rows, err := df.Collect(ctx, options)
	if err != nil {
		return err
	}
	return e.Upload(ctx, bucket, object, rows, format)
}

// Upload serializes rows and writes them to bucket/object, creating the
// bucket when needed.
func (e *Exporter) Upload(ctx context.Context, bucket, object string, rows []contracts.Row, format Format) error {
	var buffer bytes.Buffer
	contentType, err := Write(&buffer, rows, format)
	if err != nil {
		return err
	}

	exists, err := e.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := e.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	_, err = e.client.PutObject(ctx, bucket, object, &buffer, int64(buffer.Len()), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, object, err)
	}
	return nil
}

// Write serializes rows in the given format and returns the content type.
func Write(w io.Writer, rows []contracts.Row, format Format) (string, error) {
	switch format {
	case FormatNDJSON:
		return "application/x-ndjson", writeNDJSON(w, rows)
	case FormatCSV:
		return "text/csv", writeCSV(w, rows)
	}
	return "", fmt.Errorf("unsupported export format %q", format)
}

func writeNDJSON(w io.Writer, rows []contracts.Row) error {
	encoder := json.NewEncoder(w)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
	}
	return nil
}

// writeCSV flattens nested rows and writes them under a sorted header.
// Rows missing a column yield empty cells.
func writeCSV(w io.Writer, rows []contracts.Row) error {
	flattened := make([]contracts.Row, len(rows))
	columnSet := map[string]struct{}{}
	for i, row := range rows {
		flat := internal.FlattenRow(row)
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

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range flattened {
		for i, name := range columns {
			record[i] = cellValue(row[name])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func cellValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// Integral values print without a trailing .0
		return fmt.Sprintf("%g", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
