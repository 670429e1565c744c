// Package progress renders byte progress bars for long transfers when a writer
// has been attached to the context.
package progress

import (
	"context"
	"fmt"
	"io"
	"time"

	pb "github.com/schollz/progressbar/v3"
)

type writerKey struct{}

// Open enables progress output to w for every transfer started with the returned context.
func Open(ctx context.Context, w io.Writer) context.Context {
	if w == nil {
		return ctx
	}

	return context.WithValue(ctx, writerKey{}, w)
}

func writerFrom(ctx context.Context) (io.Writer, bool) {
	w, ok := ctx.Value(writerKey{}).(io.Writer)

	return w, ok
}

// Reader wraps r so that reading it advances a bar of size bytes.
// Without a progress writer in ctx, r is returned unchanged.
func Reader(ctx context.Context, r io.Reader, size int64, desc string) io.Reader {
	w, ok := writerFrom(ctx)
	if !ok {
		return r
	}

	bar := pb.NewOptions64(
		size,
		pb.OptionSetDescription(desc),
		pb.OptionSetWriter(w),
		pb.OptionSetWidth(30),
		pb.OptionThrottle(65*time.Millisecond),
		pb.OptionShowBytes(true),
		pb.OptionShowCount(),
		pb.OptionSetTheme(
			pb.Theme{Saucer: "=", SaucerPadding: " ", BarStart: "[", BarEnd: "]"},
		),
		pb.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	_ = bar.RenderBlank()

	return io.TeeReader(r, bar)
}
