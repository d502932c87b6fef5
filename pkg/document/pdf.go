package document

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

func loadPDF(path string) (string, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("document: read pdf %s: %w", path, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return "", fmt.Errorf("document: validate pdf %s: %w", path, err)
	}

	var pages []string
	for i := 1; i <= ctx.PageCount; i++ {
		r, err := pdfcpu.ExtractPageContent(ctx, i)
		if err != nil {
			return "", fmt.Errorf("document: extract page %d of %s: %w", i, path, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("document: read page %d of %s: %w", i, path, err)
		}
		if text := ShowText(string(content)); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// ShowText returns the text drawn by the text-showing operators (Tj, TJ,
// ' and ") of a PDF page content stream. Text positioning operators start a
// new line. Strings in font encodings other than the standard Latin ones
// come out garbled; this is a best-effort reading, not a layout engine.
func ShowText(content string) string {
	var (
		lines   []string
		line    strings.Builder
		operand []string
		inArray bool
		array   strings.Builder
	)
	newline := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	s := content
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '(':
			str, n := readLiteral(s[i:])
			i += n
			if inArray {
				array.WriteString(str)
			} else {
				operand = append(operand, str)
			}
		case c == '<' && i+1 < len(s) && s[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(s) && s[i+1] == '>':
			i += 2
		case c == '<':
			str, n := readHex(s[i:])
			i += n
			if inArray {
				array.WriteString(str)
			} else {
				operand = append(operand, str)
			}
		case c == '[':
			inArray = true
			array.Reset()
			i++
		case c == ']':
			inArray = false
			operand = append(operand, array.String())
			i++
		case c == '%':
			for i < len(s) && s[i] != '\n' && s[i] != '\r' {
				i++
			}
		case isSpace(c):
			i++
		default:
			j := i
			if c == '/' {
				j++
			}
			for j < len(s) && !isSpace(s[j]) && !isDelimiter(s[j]) {
				j++
			}
			if j == i {
				j++
			}
			tok := s[i:j]
			i = j

			if inArray {
				// Large negative kerning in a TJ array is a word gap.
				if f, err := strconv.ParseFloat(tok, 64); err == nil && f < -250 {
					array.WriteByte(' ')
				}
				continue
			}

			switch tok {
			case "Tj", "TJ":
				for _, o := range operand {
					line.WriteString(o)
				}
			case "'", "\"":
				newline()
				for _, o := range operand {
					line.WriteString(o)
				}
			case "Td", "TD", "T*", "Tm", "ET":
				newline()
			}
			if !isNumber(tok) && !strings.HasPrefix(tok, "/") {
				operand = operand[:0]
			}
		}
	}
	newline()
	return strings.Join(lines, "\n")
}

func readLiteral(s string) (string, int) {
	var b strings.Builder
	depth := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return b.String(), i
			}
			b.WriteByte(c)
		case '\\':
			if i+1 >= len(s) {
				i++
				continue
			}
			e := s[i+1]
			i += 2
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\n':
			case '\r':
				if i < len(s) && s[i] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i < len(s) && s[i] >= '0' && s[i] <= '7'; k++ {
						v = v*8 + int(s[i]-'0')
						i++
					}
					b.WriteRune(rune(v & 0xff))
				} else {
					b.WriteByte(e)
				}
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), i
}

func readHex(s string) (string, int) {
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return "", len(s)
	}
	digits := strings.Map(func(r rune) rune {
		if isSpace(byte(r)) {
			return -1
		}
		return r
	}, s[1:end])
	if len(digits)%2 == 1 {
		digits += "0"
	}

	var b strings.Builder
	for k := 0; k+1 < len(digits); k += 2 {
		v, err := strconv.ParseUint(digits[k:k+2], 16, 8)
		if err != nil {
			return "", end + 1
		}
		if v != 0 {
			b.WriteRune(rune(v))
		}
	}
	return b.String(), end + 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isNumber(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}
