// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cavaliergopher/cpio"
)

const dirLinks = 2

// CPIOWriter writes [Entry]s into a newc [cpio.Writer].
type CPIOWriter struct {
	cpioWriter *cpio.Writer
}

// NewCPIOWriter creates a new archive writer.
func NewCPIOWriter(w io.Writer) *CPIOWriter {
	return &CPIOWriter{cpio.NewWriter(w)}
}

// Close writes the trailer record and flushes the archive. It does not
// close the underlying [io.Writer].
func (w *CPIOWriter) Close() error {
	if err := w.cpioWriter.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// WriteEntry writes the header and the payload of the given entry.
func (w *CPIOWriter) WriteEntry(entry Entry) error {
	switch entry.Kind {
	case KindDirectory:
		return w.writeDirectory(entry)
	case KindSymlink:
		return w.writeLink(entry)
	case KindRegular:
		return w.writeRegular(entry)
	default:
		return fmt.Errorf("%w: %s: %s", ErrUnsupportedFileType, entry.Name, entry.Kind)
	}
}

func header(entry Entry, typ cpio.FileMode) *cpio.Header {
	return &cpio.Header{
		Name:  entry.Name,
		Inode: entry.Inode,
		Mode:  typ | cpio.FileMode(entry.Perm),
		Uid:   0,
		Guid:  entry.GID,
		Links: 1,
	}
}

func (w *CPIOWriter) writeHeader(hdr *cpio.Header) error {
	if err := w.cpioWriter.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", hdr.Name, err)
	}

	return nil
}

func (w *CPIOWriter) writeDirectory(entry Entry) error {
	hdr := header(entry, cpio.TypeDir)
	hdr.Links = dirLinks

	return w.writeHeader(hdr)
}

func (w *CPIOWriter) writeLink(entry Entry) error {
	hdr := header(entry, cpio.TypeSymlink)
	hdr.Size = int64(len(entry.LinkTarget))

	if err := w.writeHeader(hdr); err != nil {
		return err
	}

	// Body of a link is the path of the target file.
	if _, err := io.WriteString(w.cpioWriter, entry.LinkTarget); err != nil {
		return fmt.Errorf("write body for %s: %w", entry.Name, err)
	}

	return nil
}

func (w *CPIOWriter) writeRegular(entry Entry) error {
	source, err := os.Open(entry.Source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	hdr := header(entry, cpio.TypeReg)
	hdr.Size = entry.Size

	if err := w.writeHeader(hdr); err != nil {
		return err
	}

	if _, err := io.CopyN(w.cpioWriter, source, entry.Size); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrFileChanged
		}

		return fmt.Errorf("write body for %s: %w", entry.Name, err)
	}

	return nil
}
