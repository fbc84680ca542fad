package stage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Passthrough is the built-in filter registered under type "default". It
// copies the recording byte for byte; the time window and parameters are
// accepted and ignored, so a default-only chain reproduces the source.
type Passthrough struct{}

func (Passthrough) Apply(ctx context.Context, inputPath, outputPath string, begin, end int64, parameters map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input recording: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output recording: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy recording: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output recording: %w", err)
	}
	return nil
}
