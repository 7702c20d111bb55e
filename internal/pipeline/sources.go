package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/gcs"
	"github.com/dvloznov/txclean/internal/rawcsv"
)

// BigQuerySourcePrefix marks a raw staging table as batch input, e.g. "bq:raw_transactions".
const BigQuerySourcePrefix = "bq:"

// FileSource reads a CSV batch from the local filesystem.
type FileSource struct {
	Path string
}

func (s *FileSource) Load(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("FileSource.Load: open %q: %w", s.Path, err)
	}
	defer f.Close()

	records, err := rawcsv.Read(f)
	if err != nil {
		return nil, fmt.Errorf("FileSource.Load: %w", err)
	}
	return records, nil
}

func (s *FileSource) Describe() string { return s.Path }

// GCSSource reads a CSV batch from a gs:// object.
type GCSSource struct {
	URI     string
	Storage gcs.StorageService
}

func (s *GCSSource) Load(ctx context.Context) ([]domain.RawRecord, error) {
	data, err := s.Storage.FetchFromGCS(ctx, s.URI)
	if err != nil {
		return nil, fmt.Errorf("GCSSource.Load: %w", err)
	}
	records, err := rawcsv.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("GCSSource.Load: %s: %w", gcs.ExtractFilename(s.URI), err)
	}
	return records, nil
}

func (s *GCSSource) Describe() string { return s.URI }

// BigQuerySource reads a raw staging table.
type BigQuerySource struct {
	Table string
	Repo  WarehouseRepository
}

func (s *BigQuerySource) Load(ctx context.Context) ([]domain.RawRecord, error) {
	records, err := s.Repo.QueryRawRecords(ctx, s.Table)
	if err != nil {
		return nil, fmt.Errorf("BigQuerySource.Load: %w", err)
	}
	return records, nil
}

func (s *BigQuerySource) Describe() string { return BigQuerySourcePrefix + s.Table }

// ReaderSource decodes a CSV batch already held in memory, such as an HTTP
// request body.
type ReaderSource struct {
	Name string
	Data []byte
}

func (s *ReaderSource) Load(ctx context.Context) ([]domain.RawRecord, error) {
	records, err := rawcsv.Read(bytes.NewReader(s.Data))
	if err != nil {
		return nil, fmt.Errorf("ReaderSource.Load: %w", err)
	}
	return records, nil
}

func (s *ReaderSource) Describe() string { return s.Name }

// SourceDeps supplies the clients a source may need.
type SourceDeps struct {
	Storage gcs.StorageService
	Repo    WarehouseRepository
}

// ResolveSource picks the source for an --input style argument: gs:// URIs
// read from Cloud Storage, "bq:<table>" reads a raw staging table and
// anything else is a local file.
func ResolveSource(input string, deps SourceDeps) (RecordSource, error) {
	switch {
	case gcs.IsURI(input):
		if deps.Storage == nil {
			return nil, fmt.Errorf("ResolveSource: %s: no storage client", input)
		}
		return &GCSSource{URI: input, Storage: deps.Storage}, nil
	case strings.HasPrefix(input, BigQuerySourcePrefix):
		if deps.Repo == nil {
			return nil, fmt.Errorf("ResolveSource: %s: no BigQuery repository", input)
		}
		return &BigQuerySource{Table: strings.TrimPrefix(input, BigQuerySourcePrefix), Repo: deps.Repo}, nil
	case input == "":
		return nil, fmt.Errorf("ResolveSource: empty input")
	default:
		return &FileSource{Path: input}, nil
	}
}
