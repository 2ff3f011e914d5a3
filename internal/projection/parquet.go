package projection

import (
	"io"

	wserrors "github.com/23skdu/wordscope/internal/errors"
	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes points as a single Zstd-compressed Parquet file.
func WriteParquet(w io.Writer, points []Point) error {
	pw := parquet.NewGenericWriter[Point](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(points); err != nil {
		_ = pw.Close()
		return wserrors.WrapExportError(err, "write", "projection rows")
	}
	if err := pw.Close(); err != nil {
		return wserrors.WrapExportError(err, "close", "projection file")
	}
	return nil
}

// ReadParquet loads points written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) ([]Point, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, wserrors.WrapExportError(err, "open", "projection file")
	}

	pr := parquet.NewGenericReader[Point](pf)
	defer func() { _ = pr.Close() }()

	rows := make([]Point, pr.NumRows())
	n, err := pr.Read(rows)
	if err != nil && err != io.EOF {
		return nil, wserrors.WrapExportError(err, "read", "projection rows")
	}
	return rows[:n], nil
}
