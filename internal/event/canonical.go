package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of an event.
//
// Differences from json.Marshal:
//  1. Object keys are emitted in sorted order
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. U+2028 and U+2029 are emitted literally
func MarshalCanonical(e Event) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	// Keys in sorted order: content, created_at, id, kind, pubkey, sig, tags.
	fields := []struct {
		key   string
		write func() error
	}{
		{"content", func() error { return writeString(&buf, e.Content) }},
		{"created_at", func() error { buf.WriteString(strconv.FormatInt(e.CreatedAt, 10)); return nil }},
		{"id", func() error { return writeString(&buf, e.ID) }},
		{"kind", func() error { buf.WriteString(strconv.FormatInt(e.Kind, 10)); return nil }},
		{"pubkey", func() error { return writeString(&buf, e.Pubkey) }},
		{"sig", func() error { return writeString(&buf, e.Sig) }},
		{"tags", func() error { return writeTags(&buf, e.Tags) }},
	}

	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, f.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := f.write(); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeTags(buf *bytes.Buffer, tags [][]string) error {
	buf.WriteByte('[')
	for i, tag := range tags {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j, s := range tag {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, s); err != nil {
				return fmt.Errorf("tags[%d][%d]: %w", i, j, err)
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return nil
}

// writeString appends a canonical JSON string with NFC normalization.
// Only control characters, backslash and quote are escaped.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline.
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators rewrites \u2028 and \u2029 escapes produced by
// encoding/json back to literal characters, leaving \\u2028 (an escaped
// backslash followed by text) alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			// An even run of backslashes before us means this one starts an escape.
			run := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				run++
			}
			if run%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}
