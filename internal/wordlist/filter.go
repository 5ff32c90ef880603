package wordlist

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// MinComplexLength is the shortest password Complex accepts.
const MinComplexLength = 8

// complexSpecials are the symbols that satisfy the special-character rule.
const complexSpecials = "@#$%^&+="

// Complex reports whether pw meets the default SQL Server password policy
// approximation: at least MinComplexLength characters with a digit, a
// lower-case letter, an upper-case letter and one of @#$%^&+=.
func Complex(pw string) bool {
	if len(pw) < MinComplexLength {
		return false
	}

	var digit, lower, upper, special bool
	for _, r := range pw {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r <= unicode.MaxASCII && unicode.IsLower(r):
			lower = true
		case r <= unicode.MaxASCII && unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(complexSpecials, r):
			special = true
		}
	}
	return digit && lower && upper && special
}

// Filter copies the candidates of r that satisfy keep to w, one per line,
// and returns how many were written.
func Filter(r io.Reader, w io.Writer, keep func(string) bool) (int, error) {
	bw := bufio.NewWriter(w)
	kept := 0
	var writeErr error
	err := Each(r, func(word string) bool {
		if !keep(word) {
			return true
		}
		if _, writeErr = bw.WriteString(word + "\n"); writeErr != nil {
			return false
		}
		kept++
		return true
	})
	if err != nil {
		return kept, err
	}
	if writeErr != nil {
		return kept, writeErr
	}
	return kept, bw.Flush()
}
