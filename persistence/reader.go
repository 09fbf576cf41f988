package persistence

import (
	"context"
	"io"
	"time"

	"github.com/hupe1980/bindex"
)

// Read decodes a complete index from r, consuming it to EOF. Bytes following
// the index fail with ErrTrailingData, input ending inside a structure with
// ErrTruncated. The configured logger and metrics collector are attached to
// the returned index.
func Read(r io.Reader, optFns ...func(o *Options)) (*bindex.Index, error) {
	return readNamed("stream", r, optFns)
}

// ReadContext decodes a complete index from r like Read, checking ctx
// between reads so slow sources can be abandoned.
func ReadContext(ctx context.Context, r io.Reader, optFns ...func(o *Options)) (*bindex.Index, error) {
	return readNamedContext(ctx, "stream", r, optFns)
}

func readNamed(name string, r io.Reader, optFns []func(o *Options)) (*bindex.Index, error) {
	opts := applyOptions(optFns)
	start := time.Now()

	dec := NewDecoder(optFns...)
	idx, err := func() (*bindex.Index, error) {
		if _, err := io.Copy(dec, r); err != nil {
			return nil, err
		}
		return dec.Index()
	}()

	opts.Metrics.RecordRead(dec.BytesRead(), time.Since(start), err)
	if err != nil {
		opts.Logger.LogRead(name, 0, err)
		return nil, err
	}
	opts.Logger.LogRead(name, idx.NumReferences(), nil)
	return idx, nil
}

func readNamedContext(ctx context.Context, name string, r io.Reader, optFns []func(o *Options)) (*bindex.Index, error) {
	opts := applyOptions(optFns)
	start := time.Now()

	dec := NewDecoder(optFns...)
	idx, err := decodeAll(ctx, dec, r)

	opts.Metrics.RecordRead(dec.BytesRead(), time.Since(start), err)
	if err != nil {
		opts.Logger.LogRead(name, 0, err)
		return nil, err
	}
	opts.Logger.LogRead(name, idx.NumReferences(), nil)
	return idx, nil
}

func decodeAll(ctx context.Context, dec *Decoder, r io.Reader) (*bindex.Index, error) {
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := dec.Write(buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if err == io.EOF {
			return dec.Index()
		}
		if err != nil {
			return nil, err
		}
	}
}
