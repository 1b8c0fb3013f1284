package dataset

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// FormatVersion is the bundle layout version stored in the schema metadata.
// Bump it whenever the column layout or metadata keys change.
const FormatVersion = 1

// Schema metadata keys.
const (
	MetaFormatVersion = "spexplore.format_version"
	MetaUniqueness    = "uniqueness"
	MetaOverlap       = "overlap"
	MetaCorrelation   = "correlation"
)

// SampleColumn is the name of the single data column.
const SampleColumn = "sample"

// Bundle is the dataset shared by every configuration of a batch together
// with its precomputed metrics.
type Bundle struct {
	Data    *Matrix
	Metrics Metrics
}

// NewBundle computes the metrics for data.
func NewBundle(data *Matrix) *Bundle {
	return &Bundle{Data: data, Metrics: ComputeMetrics(data)}
}

// WriteBundle writes b to path as an Arrow IPC stream: one record batch with
// a fixed_size_list<uint8> column, metrics in the schema metadata.
func WriteBundle(path string, b *Bundle) error {
	rows, cols := b.Data.Dims()
	if cols < 1 {
		return errors.New("writing bundle: dataset has no columns")
	}

	mem := memory.NewGoAllocator()
	md := arrow.NewMetadata(
		[]string{MetaFormatVersion, MetaUniqueness, MetaOverlap, MetaCorrelation},
		[]string{
			strconv.Itoa(FormatVersion),
			formatFloat(b.Metrics.Uniqueness),
			formatFloat(b.Metrics.Overlap),
			formatFloat(b.Metrics.Correlation),
		},
	)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: SampleColumn, Type: arrow.FixedSizeListOf(int32(cols), arrow.PrimitiveTypes.Uint8)},
	}, &md)

	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	lb := bldr.Field(0).(*array.FixedSizeListBuilder)
	vb := lb.ValueBuilder().(*array.Uint8Builder)
	for i := 0; i < rows; i++ {
		lb.Append(true)
		vb.AppendValues(b.Data.Row(i), nil)
	}
	rec := bldr.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating bundle: %w", err)
	}
	defer f.Close()

	w := ipc.NewWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing bundle records: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing bundle writer: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing bundle: %w", err)
	}
	return nil
}

// ReadBundle reads a bundle written by WriteBundle.
func ReadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("reading bundle schema: %w", err)
	}
	defer r.Release()

	schema := r.Schema()
	md := schema.Metadata()
	version, err := metaValue(md, MetaFormatVersion)
	if err != nil {
		return nil, err
	}
	if version != strconv.Itoa(FormatVersion) {
		return nil, fmt.Errorf("unsupported bundle format version %q", version)
	}

	var metrics Metrics
	for key, dst := range map[string]*float64{
		MetaUniqueness:  &metrics.Uniqueness,
		MetaOverlap:     &metrics.Overlap,
		MetaCorrelation: &metrics.Correlation,
	} {
		s, err := metaValue(md, key)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("bundle metadata %q: %w", key, err)
		}
		*dst = v
	}

	if len(schema.Fields()) != 1 || schema.Field(0).Name != SampleColumn {
		return nil, fmt.Errorf("bundle schema: expected single %q column", SampleColumn)
	}
	fsl, ok := schema.Field(0).Type.(*arrow.FixedSizeListType)
	if !ok {
		return nil, fmt.Errorf("bundle schema: %q is %s, want fixed_size_list", SampleColumn, schema.Field(0).Type)
	}
	cols := int(fsl.Len())

	var rows [][]uint8
	for r.Next() {
		rec := r.Record()
		col, ok := rec.Column(0).(*array.FixedSizeList)
		if !ok {
			return nil, fmt.Errorf("bundle column has type %T", rec.Column(0))
		}
		values, ok := col.ListValues().(*array.Uint8)
		if !ok {
			return nil, fmt.Errorf("bundle values have type %T", col.ListValues())
		}
		offset := col.Data().Offset()
		for i := 0; i < col.Len(); i++ {
			row := make([]uint8, cols)
			start := (offset + i) * cols
			for j := range row {
				row[j] = values.Value(start + j)
			}
			rows = append(rows, row)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading bundle records: %w", err)
	}

	data := NewMatrix(0, cols)
	if len(rows) > 0 {
		if data, err = FromRows(rows); err != nil {
			return nil, fmt.Errorf("bundle data: %w", err)
		}
	}
	return &Bundle{Data: data, Metrics: metrics}, nil
}

func metaValue(md arrow.Metadata, key string) (string, error) {
	i := md.FindKey(key)
	if i < 0 {
		return "", fmt.Errorf("bundle metadata is missing %q", key)
	}
	return md.Values()[i], nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
