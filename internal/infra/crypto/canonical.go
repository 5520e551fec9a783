package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"agenttrust/internal/domain"
)

// Canonicalize serializes a JSON-representable value deterministically:
// mapping keys sorted lexicographically at every depth, array order
// preserved, no inserted whitespace. Numbers use the ES6 serialization so
// the output is byte-compatible with JSON.stringify producers.
//
// Cyclic values fail with domain.ErrCyclicValue instead of recursing.
func Canonicalize(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := &canonicalWriter{seen: map[uintptr]struct{}{}}
	if err := w.write(buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalizePayload builds the canonical payload for a document: the
// subset of top-level sections named in blocks that are actually present,
// canonicalized as one mapping. Absent names are silently skipped; the
// heuristics report them separately.
func CanonicalizePayload(doc domain.Document, blocks []string) ([]byte, error) {
	payload := make(map[string]any, len(blocks))
	for _, name := range blocks {
		if v, ok := doc[name]; ok {
			payload[name] = v
		}
	}
	return Canonicalize(payload)
}

type canonicalWriter struct {
	seen map[uintptr]struct{}
}

func (w *canonicalWriter) write(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeEscapedString(buf, v)
	case json.Number:
		num, err := formatNumberString(v.String())
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float64:
		num, err := formatNumber(v)
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float32:
		return w.write(buf, float64(v))
	case int:
		return w.write(buf, float64(v))
	case int8:
		return w.write(buf, float64(v))
	case int16:
		return w.write(buf, float64(v))
	case int32:
		return w.write(buf, float64(v))
	case int64:
		return w.write(buf, float64(v))
	case uint:
		return w.write(buf, float64(v))
	case uint8:
		return w.write(buf, float64(v))
	case uint16:
		return w.write(buf, float64(v))
	case uint32:
		return w.write(buf, float64(v))
	case uint64:
		return w.write(buf, float64(v))
	case domain.Document:
		return w.writeObject(buf, map[string]any(v))
	case map[string]any:
		return w.writeObject(buf, v)
	case []any:
		return w.writeArray(buf, v)
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		return w.writeArray(buf, arr)
	default:
		// Marshal through encoding/json for anything else (structs from
		// callers that never round-tripped through a decoder), then
		// canonicalize the decoded form.
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("unsupported value %T: %w", value, err)
		}
		var decoded any
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return err
		}
		return w.write(buf, decoded)
	}
	return nil
}

func (w *canonicalWriter) writeObject(buf *bytes.Buffer, obj map[string]any) error {
	ptr := reflect.ValueOf(obj).Pointer()
	if _, ok := w.seen[ptr]; ok {
		return domain.ErrCyclicValue
	}
	w.seen[ptr] = struct{}{}
	defer delete(w.seen, ptr)

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeEscapedString(buf, k)
		buf.WriteByte(':')
		if err := w.write(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (w *canonicalWriter) writeArray(buf *bytes.Buffer, arr []any) error {
	if len(arr) > 0 {
		ptr := reflect.ValueOf(arr).Pointer()
		if _, ok := w.seen[ptr]; ok {
			return domain.ErrCyclicValue
		}
		w.seen[ptr] = struct{}{}
		defer delete(w.seen, ptr)
	}
	buf.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := w.write(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

var hexLower = []byte("0123456789abcdef")

func writeEscapedString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func formatNumberString(number string) (string, error) {
	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return "", fmt.Errorf("invalid JSON number: %w", err)
	}
	return formatNumber(f)
}

// formatNumber renders a float the way ES6 Number#toString does, which is
// what JSON.stringify emits and therefore what signers produce.
func formatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.New("invalid JSON number")
	}
	if f == 0 {
		return "0", nil
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = math.Abs(f)
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	parts := strings.SplitN(sci, "e", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid float format: %q", sci)
	}
	exp, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid float exponent: %w", err)
	}
	digits := strings.ReplaceAll(parts[0], ".", "")

	if exp <= -7 || exp >= 21 {
		expText := strconv.Itoa(exp)
		if exp >= 0 {
			expText = "+" + expText
		}
		if len(digits) == 1 {
			return sign + digits + "e" + expText, nil
		}
		return sign + digits[:1] + "." + digits[1:] + "e" + expText, nil
	}

	point := exp + 1
	if point >= len(digits) {
		return sign + digits + strings.Repeat("0", point-len(digits)), nil
	}
	if point <= 0 {
		return sign + "0." + strings.Repeat("0", -point) + digits, nil
	}
	return sign + digits[:point] + "." + digits[point:], nil
}
