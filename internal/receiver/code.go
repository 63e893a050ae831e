package receiver

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// tupleWidth is the number of hex digits per code or time offset.
const tupleWidth = 5

var errEmptyFingerprint = errors.New("fingerprint has no codes")

// Fingerprint is a decoded echoprint code string: time offsets paired with
// hash codes.
type Fingerprint struct {
	Codes []uint32
	Times []uint32
}

// DecodeCode expands a url-safe base64, zlib-compressed echoprint code
// string. The inflated payload is all time offsets followed by all codes,
// each a fixed width hex number.
func DecodeCode(code string) (Fingerprint, error) {
	code = strings.NewReplacer("-", "+", "_", "/").Replace(code)
	compressed, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(code, "="))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("base64: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("inflate: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("inflate: %w", err)
	}

	count := len(raw) / tupleWidth
	if count == 0 {
		return Fingerprint{}, errEmptyFingerprint
	}
	if count%2 != 0 {
		return Fingerprint{}, fmt.Errorf("odd tuple count %d", count)
	}

	half := count / 2
	fp := Fingerprint{
		Times: make([]uint32, half),
		Codes: make([]uint32, half),
	}
	for i := 0; i < count; i++ {
		v, err := strconv.ParseUint(string(raw[i*tupleWidth:(i+1)*tupleWidth]), 16, 32)
		if err != nil {
			return Fingerprint{}, fmt.Errorf("tuple %d: %w", i, err)
		}
		if i < half {
			fp.Times[i] = uint32(v)
		} else {
			fp.Codes[i-half] = uint32(v)
		}
	}
	return fp, nil
}
