// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// CompressionLevel is the zstd compression level of the archive.
const CompressionLevel = 10

const outputFileMode = 0o644

// Pack writes all files below sourceDir into a compressed archive at output.
//
// The archive is written into a temporary file in the directory of output
// and only renamed to output if packing succeeded.
func Pack(sourceDir, output string) error {
	entries, err := Collect(sourceDir)
	if err != nil {
		return fmt.Errorf("collect %s: %w", sourceDir, err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	err = finish(tmpFile, Write(tmpFile, entries))
	if err == nil {
		err = os.Rename(tmpFile.Name(), output)
	}

	if err != nil {
		_ = os.Remove(tmpFile.Name())
		return err
	}

	slog.Debug("Archive written", slog.String("path", output), slog.Int("entries", len(entries)))

	return nil
}

func finish(file *os.File, writeErr error) error {
	err := errors.Join(
		writeErr,
		file.Chmod(outputFileMode),
		file.Close(),
	)
	if err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	return nil
}

// Write writes the given entries as compressed archive into w.
func Write(w io.Writer, entries []Entry) error {
	encoder, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(CompressionLevel)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}

	archive := NewCPIOWriter(encoder)

	for _, entry := range entries {
		if err := archive.WriteEntry(entry); err != nil {
			_ = encoder.Close()
			return err
		}
	}

	if err := archive.Close(); err != nil {
		_ = encoder.Close()
		return err
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}

	return nil
}
