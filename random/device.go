// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package random

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/verificatum/vcr/vcrerr"
)

// Device reads raw randomness from an OS device file, typically
// /dev/urandom. The OS serializes concurrent reads, so Device itself
// only needs to guard the lazily-opened file handle.
type Device struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewDevice returns a Device reading from path. The file is opened lazily
// on first Fill.
func NewDevice(path string) *Device {
	return &Device{path: path}
}

// Fill implements Source.
func (d *Device) Fill(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		f, err := os.Open(d.path)
		if err != nil {
			return fmt.Errorf("%w: open random device %s: %v", vcrerr.ErrResource, d.path, err)
		}
		d.file = f
	}
	if _, err := io.ReadFull(d.file, b); err != nil {
		return fmt.Errorf("%w: read random device %s: %v", vcrerr.ErrResource, d.path, err)
	}
	return nil
}

// Close releases the underlying file handle, if open.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
