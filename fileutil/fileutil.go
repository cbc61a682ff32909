// Package fileutil has small path helpers.
package fileutil

import (
	"strconv"
	"strings"
)

const maxFilenameBytes = 200

// SafeFilename strips the characters that are illegal in filenames on some
// common filesystem, collapses the gaps they leave, and bounds the length
// so an appended extension still fits a 255 byte name limit.
func SafeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		case '\x00':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)

	mapped = strings.Join(strings.Fields(mapped), " ")
	mapped = strings.Trim(mapped, ". ")

	for len(mapped) > maxFilenameBytes {
		runes := []rune(mapped)
		mapped = strings.TrimRight(string(runes[:len(runes)-1]), ". ")
	}
	return mapped
}

// UniqueSuffix returns name unchanged when exists reports it free, else the
// first "name (n)" that is.
func UniqueSuffix(name string, exists func(string) bool) string {
	if !exists(name) {
		return name
	}
	base, ext := cutExt(name)
	for i := 1; ; i++ {
		candidate := base + " (" + strconv.Itoa(i) + ")" + ext
		if !exists(candidate) {
			return candidate
		}
	}
}

func cutExt(name string) (base, ext string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
