package monitor

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DecodePolicy controls what happens to byte sequences that are not valid
// in the page's character set.
type DecodePolicy string

const (
	DecodeIgnore  DecodePolicy = "ignore"
	DecodeReplace DecodePolicy = "replace"
	DecodeStrict  DecodePolicy = "strict"
)

// ParseDecodePolicy maps a config value to a DecodePolicy. Empty means ignore.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch DecodePolicy(strings.ToLower(s)) {
	case "", DecodeIgnore:
		return DecodeIgnore, nil
	case DecodeReplace:
		return DecodeReplace, nil
	case DecodeStrict:
		return DecodeStrict, nil
	default:
		return "", fmt.Errorf("unknown decode policy: %s", s)
	}
}

// DecodeError reports an invalid byte sequence under the strict policy
type DecodeError struct {
	Charset string
	Offset  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s byte sequence at offset %d", e.Charset, e.Offset)
}

// Decode turns a response body into text. The charset is taken from the
// Content-Type header, a <meta> tag or a BOM; pages that declare nothing are
// treated as UTF-8.
func Decode(body []byte, contentType string, policy DecodePolicy) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)

	if name == "utf-8" || enc == encoding.Nop || (!certain && name == "windows-1252" && !declaresCharset(body)) {
		return decodeUTF8(body, policy)
	}

	// x/text decoders substitute U+FFFD for bytes they cannot map.
	text, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		if policy == DecodeStrict {
			return "", &DecodeError{Charset: name, Offset: -1}
		}
		return decodeUTF8(body, policy)
	}
	if !bytes.ContainsRune(text, utf8.RuneError) || policy == DecodeReplace {
		return string(text), nil
	}

	// A charset that can encode U+FFFD may carry it legitimately. Those
	// pages are decoded a character at a time so only failures are dropped.
	if genuine, err := enc.NewEncoder().Bytes([]byte(string(utf8.RuneError))); err == nil && bytes.Contains(body, genuine) {
		return decodeMarked(enc, name, body, genuine, policy)
	}

	if policy == DecodeStrict {
		return "", &DecodeError{Charset: name, Offset: bytes.IndexRune(text, utf8.RuneError)}
	}
	return strings.ReplaceAll(string(text), string(utf8.RuneError), ""), nil
}

// decodeMarked decodes body one character at a time. A U+FFFD is a decode
// failure unless its source bytes are the charset's own encoding of U+FFFD.
func decodeMarked(enc encoding.Encoding, name string, body, genuine []byte, policy DecodePolicy) (string, error) {
	dec := enc.NewDecoder()
	var out strings.Builder

	for pos := 0; pos < len(body); {
		r, nSrc := nextRune(dec, body[pos:])
		if nSrc == 0 {
			break
		}
		if string(r) == string(utf8.RuneError) && !bytes.Equal(body[pos:pos+nSrc], genuine) {
			if policy == DecodeStrict {
				return "", &DecodeError{Charset: name, Offset: pos}
			}
		} else {
			out.Write(r)
		}
		pos += nSrc
	}
	return out.String(), nil
}

// nextRune decodes at most one rune from the front of src. The source and
// destination windows grow until the decoder makes progress, so the returned
// bytes never span two characters. nSrc is 0 when nothing more decodes.
func nextRune(t transform.Transformer, src []byte) (r []byte, nSrc int) {
	var dst [utf8.UTFMax]byte
	for n := 1; ; n++ {
		end := min(n, len(src))
		atEOF := end == len(src)
		for size := 1; size <= len(dst); size++ {
			nDst, nSrc, err := t.Transform(dst[:size], src[:end], atEOF)
			if nSrc > 0 {
				return dst[:nDst], nSrc
			}
			if err != transform.ErrShortDst {
				break
			}
		}
		if atEOF {
			return nil, 0
		}
	}
}

func decodeUTF8(body []byte, policy DecodePolicy) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}

	switch policy {
	case DecodeReplace:
		return strings.ToValidUTF8(string(body), string(utf8.RuneError)), nil
	case DecodeStrict:
		return "", &DecodeError{Charset: "utf-8", Offset: invalidOffset(body)}
	default:
		return strings.ToValidUTF8(string(body), ""), nil
	}
}

// declaresCharset reports whether the first KiB of the page carries a
// charset declaration. DetermineEncoding falls back to windows-1252 when it
// finds none, and that guess must not override UTF-8.
func declaresCharset(body []byte) bool {
	if len(body) > 1024 {
		body = body[:1024]
	}
	return bytes.Contains(bytes.ToLower(body), []byte("charset="))
}

// invalidOffset returns the byte offset of the first invalid sequence
func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
