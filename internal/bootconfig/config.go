// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootconfig

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Well known locations and defaults.
const (
	// Path is the location of the configuration inside the image.
	Path = "/etc/microhop.conf"

	DefaultInit    = "/sbin/init"
	DefaultSysroot = "/sysroot"
	DefaultLog     = "info"
)

const header = "# This file is generated by microgen and read by microhop on boot.\n" +
	"# Changes take effect only after the image is regenerated."

// Config is the microhop configuration.
type Config struct {
	// Modules are kernel module names in load order. Dependencies come
	// before their dependents.
	Modules []string

	// Disks are mounted below the sysroot. The first disk with mountpoint
	// "/" becomes the new root.
	Disks []Disk

	// Init is the program executed in the new root.
	Init string

	// Sysroot is the temporary mount point of the new root.
	Sysroot string

	// Log is the log verbosity.
	Log string
}

// Default returns a [Config] with all scalar fields set to their defaults.
func Default() *Config {
	return &Config{
		Init:    DefaultInit,
		Sysroot: DefaultSysroot,
		Log:     DefaultLog,
	}
}

// Load reads the configuration file at the given path.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Parse reads a configuration document from r. Fields that are not present
// keep their defaults.
func Parse(r io.Reader) (*Config, error) {
	var doc yaml.Node

	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty", ErrInvalidDocument)
		}

		return nil, fmt.Errorf("decode: %w", err)
	}

	if len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDocument)
	}

	cfg := Default()
	root := doc.Content[0]

	for idx := 0; idx+1 < len(root.Content); idx += 2 {
		key, value := root.Content[idx], root.Content[idx+1]
		if isNull(value) {
			continue
		}

		var err error

		switch key.Value {
		case "modules":
			err = value.Decode(&cfg.Modules)
		case "disks":
			cfg.Disks, err = parseDisks(value)
		case "init":
			err = value.Decode(&cfg.Init)
		case "sysroot":
			err = value.Decode(&cfg.Sysroot)
		case "log":
			err = value.Decode(&cfg.Log)
		}

		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
	}

	return cfg, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func parseDisks(node *yaml.Node) ([]Disk, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: disks must be a mapping", ErrInvalidDocument)
	}

	disks := make([]Disk, 0, len(node.Content)/2)

	for idx := 0; idx+1 < len(node.Content); idx += 2 {
		var device, value string

		if err := node.Content[idx].Decode(&device); err != nil {
			return nil, fmt.Errorf("device: %w", err)
		}

		if err := node.Content[idx+1].Decode(&value); err != nil {
			return nil, fmt.Errorf("disk %s: %w", device, err)
		}

		disk, err := ParseDisk(device, value)
		if err != nil {
			return nil, err
		}

		disks = append(disks, disk)
	}

	return disks, nil
}

// Write writes the configuration as YAML document to w.
func (c *Config) Write(w io.Writer) error {
	modules := &yaml.Node{Kind: yaml.SequenceNode}
	for _, name := range c.Modules {
		modules.Content = append(modules.Content, scalar(name))
	}

	disks := &yaml.Node{Kind: yaml.MappingNode}
	for _, disk := range c.Disks {
		disks.Content = append(disks.Content, scalar(disk.Device), scalar(disk.Options()))
	}

	modulesKey := scalar("modules")
	modulesKey.HeadComment = header

	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			modulesKey, modules,
			scalar("disks"), disks,
			scalar("init"), scalar(c.Init),
			scalar("sysroot"), scalar(c.Sysroot),
			scalar("log"), scalar(c.Log),
		},
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(root); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	return nil
}

// WriteFile writes the configuration to the file at path. The file must not
// exist yet.
func (c *Config) WriteFile(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}

	if err := c.Write(file); err != nil {
		_ = file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}

	return nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
