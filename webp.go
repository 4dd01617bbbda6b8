package main

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// WebPOptions control a cwebp transcode.
type WebPOptions struct {
	Quality       int // 0-100, ignored when Lossless is set
	Lossless      bool
	Method        int // compression effort, valid range 0-6
	StripMetadata bool
	PreserveAlpha bool // keep exact RGB values in transparent areas
}

// DefaultWebPOptions returns the pipeline's standard transcode settings.
func DefaultWebPOptions() WebPOptions {
	return WebPOptions{
		Quality:       80,
		Method:        4,
		StripMetadata: true,
		PreserveAlpha: true,
	}
}

// WebPEncoder transcodes images to WebP by invoking the cwebp binary.
type WebPEncoder struct {
	binary string
	opts   WebPOptions
}

// NewWebPEncoder creates an encoder. An empty binary defaults to "cwebp" on
// the PATH.
func NewWebPEncoder(binary string, opts WebPOptions) *WebPEncoder {
	if strings.TrimSpace(binary) == "" {
		binary = "cwebp"
	}
	return &WebPEncoder{binary: binary, opts: opts}
}

func (e *WebPEncoder) args(src, dest string) ([]string, error) {
	if e.opts.Method < 0 || e.opts.Method > 6 {
		return nil, fmt.Errorf("method must be between 0 and 6, got %d", e.opts.Method)
	}
	if !e.opts.Lossless && (e.opts.Quality < 0 || e.opts.Quality > 100) {
		return nil, fmt.Errorf("quality must be between 0 and 100, got %d", e.opts.Quality)
	}

	args := []string{"-quiet", "-m", strconv.Itoa(e.opts.Method)}
	if e.opts.Lossless {
		args = append(args, "-lossless")
	} else {
		args = append(args, "-q", strconv.Itoa(e.opts.Quality))
	}
	if e.opts.StripMetadata {
		args = append(args, "-metadata", "none")
	} else {
		args = append(args, "-metadata", "all")
	}
	if e.opts.PreserveAlpha {
		args = append(args, "-exact")
	}
	return append(args, src, "-o", dest), nil
}

// Encode transcodes src into a WebP file at dest.
func (e *WebPEncoder) Encode(ctx context.Context, src, dest string) error {
	args, err := e.args(src, dest)
	if err != nil {
		return fmt.Errorf("webp encode %s: %w", src, err)
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("webp encode %s: %w: %s", src, err, strings.TrimSpace(string(output)))
	}
	return nil
}
