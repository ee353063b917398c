package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC blanks comments and drops trailing commas. Byte offsets and
// line breaks are preserved so decode errors still point at the source.
func normalizeJSONC(content string) (string, error) {
	blanked, err := blankComments(content)
	if err != nil {
		return "", err
	}
	return dropTrailingCommas(blanked), nil
}

// scanString copies the string literal starting at content[i] (an opening
// quote) and returns the index just past its closing quote.
func scanString(out *strings.Builder, content string, i int) int {
	out.WriteByte(content[i])
	for i++; i < len(content); i++ {
		ch := content[i]
		out.WriteByte(ch)
		switch ch {
		case '\\':
			if i+1 < len(content) {
				i++
				out.WriteByte(content[i])
			}
		case '"':
			return i + 1
		}
	}
	return i
}

func blankComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		ch := content[i]
		switch {
		case ch == '"':
			i = scanString(&out, content, i)
		case strings.HasPrefix(content[i:], "//"):
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				out.WriteByte(' ')
				i++
			}
		case strings.HasPrefix(content[i:], "/*"):
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment in JSONC")
			}
			for _, c := range []byte(content[i : i+2+end+2]) {
				if c == '\n' || c == '\r' || c == '\t' {
					out.WriteByte(c)
				} else {
					out.WriteByte(' ')
				}
			}
			i += 2 + end + 2
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return out.String(), nil
}

func dropTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		ch := content[i]
		if ch == '"' {
			i = scanString(&out, content, i)
			continue
		}
		if ch == ',' {
			rest := strings.TrimLeft(content[i+1:], " \t\r\n")
			if strings.HasPrefix(rest, "}") || strings.HasPrefix(rest, "]") {
				out.WriteByte(' ')
				i++
				continue
			}
		}
		out.WriteByte(ch)
		i++
	}
	return out.String()
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return fmt.Errorf("multiple JSON values are not allowed")
	default:
		return err
	}
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	limit := min(int(offset), len(content))

	prefix := content[:max(limit-1, 0)]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndex(prefix, "\n")
	return line, col
}
