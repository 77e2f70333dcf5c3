// Package ck3tokens defines the caller-supplied token dictionary
// interface: a mapping from 16-bit binary identifier codes to
// human-readable names. The dictionary contents are proprietary to the
// game and are never embedded in this module; only loaders are provided.
package ck3tokens

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Resolver maps a binary token id to its resolved identifier string.
type Resolver interface {
	Resolve(id uint16) (string, bool)
}

// Map is an in-memory Resolver backed by a plain map.
type Map map[uint16]string

// Resolve implements Resolver.
func (m Map) Resolve(id uint16) (string, bool) {
	name, ok := m[id]
	return name, ok
}

// Load parses a line-delimited dictionary file where each non-empty
// line is "<hex_id> <identifier>" (hex accepts a "0x" prefix, trailing
// whitespace is ignored). Lines that are empty after trimming are
// skipped; this allows blank-line separated sections in hand-maintained
// dictionaries.
func Load(r io.Reader) (Map, error) {
	m := make(Map)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			return nil, errors.Newf("ck3tokens: malformed dictionary line %d: %q", lineNo, line)
		}

		idField := strings.TrimSpace(fields[0])
		idField = strings.TrimPrefix(idField, "0x")
		idField = strings.TrimPrefix(idField, "0X")
		id, err := strconv.ParseUint(idField, 16, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "ck3tokens: invalid token id on line %d", lineNo)
		}

		name := strings.TrimSpace(fields[1])
		if name == "" {
			return nil, errors.Newf("ck3tokens: empty identifier on line %d", lineNo)
		}

		m[uint16(id)] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "ck3tokens: reading dictionary")
	}
	return m, nil
}

// LoadFile opens and parses a dictionary file at path.
func LoadFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ck3tokens: opening dictionary %q", path)
	}
	defer f.Close()
	return Load(f)
}

// LoadFromEnv loads the dictionary whose path is given by the named
// environment variable. It is an error for the variable to be unset.
func LoadFromEnv(varName string) (Map, error) {
	path := os.Getenv(varName)
	if path == "" {
		return nil, errors.Newf("ck3tokens: environment variable %s is not set", varName)
	}
	m, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ck3tokens: loading dictionary from %s=%q: %w", varName, path, err)
	}
	return m, nil
}
