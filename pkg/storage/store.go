// Copyright © 2018 One Concern

package storage

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
)

// Store implementations know how to write entries to a K/V store.
//
// Typically this is something file system-like. Implementations of
// this interface are assumed to be fairly simple.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// ReadAll fetches an object fully into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	reader, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return ioutil.ReadAll(reader)
}

// WriteAll stores a byte payload under a key.
func WriteAll(ctx context.Context, s Store, key string, object []byte) error {
	return s.Put(ctx, key, bytes.NewReader(object))
}

// Copy streams one object from a source store to a destination store.
func Copy(ctx context.Context, sStore Store, source string, dStore Store, destination string) error {
	reader, err := sStore.Get(ctx, source)
	if err != nil {
		return err
	}
	defer reader.Close()
	return dStore.Put(ctx, destination, reader)
}
