package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// Destination groups that hold metadata, not document text.
var rtfSkipGroups = map[string]bool{
	"fonttbl":           true,
	"colortbl":          true,
	"stylesheet":        true,
	"info":              true,
	"pict":              true,
	"object":            true,
	"header":            true,
	"footer":            true,
	"fldinst":           true,
	"themedata":         true,
	"listtable":         true,
	"listoverridetable": true,
	"generator":         true,
}

// rtfText converts RTF to plain text. It tracks group nesting, decodes
// \'hh and \uN escapes, maps \par, \line and \tab to their plain-text
// equivalents, and drops destination groups such as the font table.
// Input that does not open with an {\rtf group is rejected.
func rtfText(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("{\\rtf")) {
		return "", fmt.Errorf("extract: not an rtf document: %w", apperr.ErrExtraction)
	}

	var b strings.Builder
	depth := 0
	skipDepth := -1  // depth of the destination group being dropped, -1 when none
	ucSkip := 1      // fallback chars to drop after \uN, set by \uc
	pendingSkip := 0 // fallback chars still to drop

	emit := func(r rune) {
		if skipDepth >= 0 {
			return
		}
		if pendingSkip > 0 {
			pendingSkip--
			return
		}
		b.WriteRune(r)
	}

	i := 0
	for i < len(data) {
		c := data[i]
		switch c {
		case '{':
			depth++
			i++
		case '}':
			depth--
			if skipDepth >= 0 && depth < skipDepth {
				skipDepth = -1
			}
			i++
		case '\r', '\n':
			// Raw line breaks are formatting of the RTF source itself.
			i++
		case '\\':
			i++
			if i >= len(data) {
				return b.String(), nil
			}
			switch e := data[i]; {
			case e == '\\' || e == '{' || e == '}':
				emit(rune(e))
				i++
			case e == '~':
				emit(' ')
				i++
			case e == '*':
				// Ignorable destination: drop the enclosing group.
				if skipDepth < 0 {
					skipDepth = depth
				}
				i++
			case e == '\'':
				if i+3 > len(data) {
					return "", fmt.Errorf("extract: truncated rtf hex escape: %w", apperr.ErrExtraction)
				}
				v, err := strconv.ParseUint(string(data[i+1:i+3]), 16, 8)
				if err != nil {
					return "", fmt.Errorf("extract: bad rtf hex escape: %w: %v", apperr.ErrExtraction, err)
				}
				emit(rune(v)) // treated as Latin-1
				i += 3
			case isRTFLetter(e):
				word, param, hasParam, next := rtfControlWord(data, i)
				i = next
				switch {
				case word == "par" || word == "line":
					emit('\n')
				case word == "tab":
					emit('\t')
				case word == "uc" && hasParam:
					ucSkip = param
				case word == "u" && hasParam:
					r := param
					if r < 0 {
						r += 65536
					}
					emit(rune(r))
					if skipDepth < 0 {
						pendingSkip = ucSkip
					}
				case rtfSkipGroups[word]:
					if skipDepth < 0 {
						skipDepth = depth
					}
				}
			default:
				// Unknown escape; drop it.
				i++
			}
		default:
			emit(rune(c)) // high bytes read as Latin-1
			i++
		}
	}
	return b.String(), nil
}

// rtfControlWord parses the control word starting at data[i] (the first
// letter) and its optional signed numeric parameter. A single trailing
// space belongs to the word and is consumed.
func rtfControlWord(data []byte, i int) (word string, param int, hasParam bool, next int) {
	start := i
	for i < len(data) && isRTFLetter(data[i]) {
		i++
	}
	word = string(data[start:i])

	numStart := i
	if i < len(data) && data[i] == '-' {
		i++
	}
	digits := i
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	if i == digits {
		// A sign with no digits is not a parameter.
		i = numStart
	} else if n, err := strconv.Atoi(string(data[numStart:i])); err == nil {
		param, hasParam = n, true
	}

	if i < len(data) && data[i] == ' ' {
		i++
	}
	return word, param, hasParam, i
}

func isRTFLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
