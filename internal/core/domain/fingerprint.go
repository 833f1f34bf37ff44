package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// FingerprintLength is the number of hex characters kept from the SHA-256
// digest. 64 bits is ample for change detection within one domain.
const FingerprintLength = 16

// Fingerprint returns a deterministic digest of an entity's cleaned fields.
//
// Keys are serialised in sorted order at every level, numbers use Go's
// shortest round-trip formatting, and the SHA-256 of the result is truncated
// to FingerprintLength hex characters. Values that cannot be represented in
// JSON (functions, channels, NaN, structs) fail with ErrInvalidInput rather
// than being coerced.
func Fingerprint(fields Fields) (string, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, map[string]any(fields), ""); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])[:FingerprintLength], nil
}

// MustFingerprint is Fingerprint for fields known to be well formed.
func MustFingerprint(fields Fields) string {
	fp, err := Fingerprint(fields)
	if err != nil {
		panic(err)
	}
	return fp
}

func writeCanonical(buf *bytes.Buffer, v any, path string) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return writeJSONString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		return writeFloat(buf, val, path)
	case float32:
		return writeFloat(buf, float64(val), path)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		fmt.Fprintf(buf, "%d", val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidInput, path, err)
		}
		return writeFloat(buf, f, path)
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, s); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		return writeObject(buf, val, path)
	case Fields:
		return writeObject(buf, val, path)
	default:
		return fmt.Errorf("%w: field %q has unserialisable type %s",
			ErrInvalidInput, path, reflect.TypeOf(v))
	}
	return nil
}

func writeObject(buf *bytes.Buffer, m map[string]any, path string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		child := k
		if path != "" {
			child = path + "." + k
		}
		if err := writeCanonical(buf, m[k], child); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64, path string) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: field %q is not a finite number", ErrInvalidInput, path)
	}
	// Integral values render without a fraction so 3 and 3.0 hash alike.
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		fmt.Fprintf(buf, "%d", int64(f))
		return nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrInvalidInput, path, err)
	}
	buf.Write(b)
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
