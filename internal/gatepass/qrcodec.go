package gatepass

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// VersionTag prefixes the compressed wire form. A scanned string without it
// is either plain JSON or a manually entered reference id.
const VersionTag = "DH1."

// Scanner-reliability limits: plain JSON is preferred up to plainLimit
// characters, the tagged compressed form up to compressedLimit. Beyond both,
// only the minimal payload is encoded.
const (
	plainLimit      = 2800
	compressedLimit = 3500
)

// MinimalPayload is the tier-3 fallback: just enough to identify the
// gatepass at the gate. It is itself a valid tier-1 payload and decodes the
// same way.
type MinimalPayload struct {
	GatepassNumber string   `json:"gp"`
	VehicleNumber  string   `json:"v"`
	InvoiceIDs     []string `json:"inv"`
}

// MinimalFromSummary derives the tier-3 payload from a summary.
func MinimalFromSummary(s entity.GatepassSummary) MinimalPayload {
	min := MinimalPayload{
		GatepassNumber: s.GatepassNumber,
		VehicleNumber:  s.VehicleNumber,
	}
	for _, inv := range s.Invoices {
		min.InvoiceIDs = append(min.InvoiceIDs, inv.InvoiceID)
	}
	return min
}

// DecodeKind discriminates the three-way decode result.
type DecodeKind string

const (
	DecodePayload   DecodeKind = "payload"
	DecodeReference DecodeKind = "referenceId"
	DecodeInvalid   DecodeKind = "invalid"
)

// DecodeStage names the step at which decoding a tagged payload failed.
type DecodeStage string

const (
	StageBase64     DecodeStage = "base64"
	StageDecompress DecodeStage = "decompress"
	StageJSONParse  DecodeStage = "json-parse"
)

// DecodeError reports a typed decode failure with the stage that failed and
// the underlying error.
type DecodeError struct {
	Stage DecodeStage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("qr decode failed at %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoded is the three-way discriminated decode result.
type Decoded struct {
	Kind      DecodeKind
	Payload   any
	Reference string
	Err       *DecodeError
}

// Encode serializes a payload for a QR code, trying the three tiers in
// order. The minimal fallback is encoded unconditionally when the first two
// tiers exceed their limits; its size is assumed to fit.
func Encode(v any, minimal MinimalPayload) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if len(plain) <= plainLimit {
		return string(plain), nil
	}

	compressed, err := deflate(plain)
	if err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}
	tagged := VersionTag + base64.RawURLEncoding.EncodeToString(compressed)
	if len(tagged) <= compressedLimit {
		return tagged, nil
	}

	fallback, err := json.Marshal(minimal)
	if err != nil {
		return "", fmt.Errorf("marshal minimal payload: %w", err)
	}
	return string(fallback), nil
}

// Decode interprets an arbitrary scanned string. A tagged string must decode
// through base64, decompression and JSON parse, with the failing stage
// reported; there is no fallthrough to another interpretation. An untagged
// string is plain JSON when it parses, otherwise a manually entered
// reference id.
func Decode(s string) Decoded {
	if strings.HasPrefix(s, VersionTag) {
		raw, err := base64.RawURLEncoding.DecodeString(s[len(VersionTag):])
		if err != nil {
			return Decoded{Kind: DecodeInvalid, Err: &DecodeError{Stage: StageBase64, Err: err}}
		}
		plain, err := inflate(raw)
		if err != nil {
			return Decoded{Kind: DecodeInvalid, Err: &DecodeError{Stage: StageDecompress, Err: err}}
		}
		var v any
		if err := json.Unmarshal(plain, &v); err != nil {
			return Decoded{Kind: DecodeInvalid, Err: &DecodeError{Stage: StageJSONParse, Err: err}}
		}
		return Decoded{Kind: DecodePayload, Payload: v}
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return Decoded{Kind: DecodePayload, Payload: v}
	}

	ref := strings.TrimSpace(s)
	if ref == "" {
		return Decoded{Kind: DecodeInvalid, Err: &DecodeError{Stage: StageJSONParse, Err: fmt.Errorf("empty input")}}
	}
	return Decoded{Kind: DecodeReference, Reference: ref}
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	// Fixed compression level keeps the encoding deterministic.
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
