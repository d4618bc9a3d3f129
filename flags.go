package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseBool accepts the spellings people type on a command line:
// yes/no, true/false, t/f, y/n, 1/0 (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "t", "y", "1":
		return true, nil
	case "no", "false", "f", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("boolean value expected, got %q", s)
	}
}

// toggleFlag is a boolean flag that remembers whether it was given
type toggleFlag struct {
	value bool
	set   bool
}

func (f *toggleFlag) String() string {
	if f == nil {
		return "true"
	}
	return strconv.FormatBool(f.value)
}

func (f *toggleFlag) Set(s string) error {
	v, err := parseBool(s)
	if err != nil {
		return err
	}
	f.value, f.set = v, true
	return nil
}

// IsBoolFlag lets "-rotation" stand for "-rotation=true"
func (f *toggleFlag) IsBoolFlag() bool { return true }

// get returns the flag value, or def when the flag was not given
func (f *toggleFlag) get(def bool) bool {
	if f.set {
		return f.value
	}
	return def
}
