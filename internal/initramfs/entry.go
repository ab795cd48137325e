// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"syscall"
)

// Kind is the type of an archive entry.
type Kind int

// Supported entry kinds.
const (
	KindRegular Kind = iota + 1
	KindSymlink
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindSymlink:
		return "symlink"
	case KindDirectory:
		return "directory"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is a single archive member.
type Entry struct {
	// Inode is the archive local inode number.
	Inode int64

	// Kind is the entry type.
	Kind Kind

	// Name is the slash separated path relative to the archive root.
	Name string

	// Source is the path of the file the entry is created from.
	Source string

	// LinkTarget is the target of a [KindSymlink] entry.
	LinkTarget string

	// GID is the group ID of the source file.
	GID int

	// Perm are the permission bits of the source file.
	Perm fs.FileMode

	// Size is the payload size of a [KindRegular] entry.
	Size int64
}

// Collect walks the tree rooted at dir in lexical order and returns an entry
// for every directory, regular file and symbolic link in it. The root itself
// is not included.
//
// A symbolic link to a directory is recorded as link and the content of its
// target is collected again below the link name. Links to a directory that
// is already being walked are not descended into.
func Collect(dir string) ([]Entry, error) {
	rootID, _, err := directoryID(dir)
	if err != nil {
		return nil, err
	}

	collector := &collector{
		root:      dir,
		ancestors: map[fileID]bool{rootID: true},
	}

	if err := collector.walk(""); err != nil {
		return nil, err
	}

	return collector.entries, nil
}

// fileID identifies a file independent of the path it is reached by.
type fileID struct {
	dev uint64
	ino uint64
}

// directoryID returns the ID of the file at path after resolving symbolic
// links and whether it is a directory.
func directoryID(path string) (fileID, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileID{}, false, fmt.Errorf("stat: %w", err)
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, info.IsDir(), nil
	}

	//nolint:unconvert // Not uint64 on all platforms.
	return fileID{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, info.IsDir(), nil
}

type collector struct {
	root      string
	entries   []Entry
	inode     int64
	ancestors map[fileID]bool
}

// descend walks the directory the entry resolves to, unless it is a link to
// a directory on the current walk path.
func (c *collector) descend(entry Entry) error {
	id, isDir, err := directoryID(entry.Source)
	if err != nil {
		if entry.Kind == KindSymlink {
			// Dangling link.
			return nil
		}

		return err
	}

	if !isDir || c.ancestors[id] {
		return nil
	}

	c.ancestors[id] = true
	defer delete(c.ancestors, id)

	return c.walk(entry.Name)
}

func (c *collector) walk(name string) error {
	dirEntries, err := os.ReadDir(filepath.Join(c.root, filepath.FromSlash(name)))
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}

	for _, dirEntry := range dirEntries {
		entryName := path.Join(name, dirEntry.Name())

		entry, err := c.newEntry(entryName)
		if err != nil {
			return err
		}

		c.entries = append(c.entries, entry)

		if entry.Kind == KindRegular {
			continue
		}

		if err := c.descend(entry); err != nil {
			return err
		}
	}

	return nil
}

func (c *collector) newEntry(name string) (Entry, error) {
	source := filepath.Join(c.root, filepath.FromSlash(name))

	info, err := os.Lstat(source)
	if err != nil {
		return Entry{}, fmt.Errorf("stat: %w", err)
	}

	entry := Entry{
		Name:   name,
		Source: source,
		GID:    groupID(info),
		Perm:   info.Mode().Perm(),
	}

	switch info.Mode().Type() {
	case 0:
		entry.Kind = KindRegular
		entry.Size = info.Size()
	case fs.ModeDir:
		entry.Kind = KindDirectory
	case fs.ModeSymlink:
		entry.Kind = KindSymlink

		entry.LinkTarget, err = os.Readlink(source)
		if err != nil {
			return Entry{}, fmt.Errorf("read link: %w", err)
		}
	default:
		return Entry{}, fmt.Errorf("%w: %s: %s", ErrUnsupportedFileType, source, info.Mode().Type())
	}

	c.inode++
	entry.Inode = c.inode

	return entry, nil
}

func groupID(info fs.FileInfo) int {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(stat.Gid)
	}

	return 0
}
