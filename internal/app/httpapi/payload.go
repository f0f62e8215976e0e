package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/R3E-Network/calcstore/internal/apperrors"
)

const maxBodyBytes = 1 << 20

// laxFloat accepts a JSON number or a numeric string.
type laxFloat struct {
	value float64
	set   bool
}

func (f *laxFloat) UnmarshalJSON(data []byte) error {
	lit, err := numericLiteral(data)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not a valid number", data)
	}
	f.value, f.set = v, true
	return nil
}

// laxInt accepts a JSON number or a numeric string with no fractional part.
type laxInt struct {
	value int64
	set   bool
}

func (n *laxInt) UnmarshalJSON(data []byte) error {
	lit, err := numericLiteral(data)
	if err != nil {
		return err
	}
	if v, err := strconv.ParseInt(lit, 10, 64); err == nil {
		n.value, n.set = v, true
		return nil
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not a valid integer", data)
	}
	if v != math.Trunc(v) {
		return fmt.Errorf("%s has a fractional part", data)
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return fmt.Errorf("%s is out of range", data)
	}
	n.value, n.set = int64(v), true
	return nil
}

// numericLiteral returns the text of a JSON number, or of a string holding
// one. Booleans, nulls, arrays and objects are rejected.
func numericLiteral(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", errors.New("empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("%s is not a valid number", data)
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(data), nil
	default:
		return "", fmt.Errorf("%s is not a valid number", data)
	}
}

type addFloatRequest struct {
	A laxFloat `json:"a"`
	B laxFloat `json:"b"`
}

func (r addFloatRequest) validate() error {
	return requireFields(map[string]bool{"a": r.A.set, "b": r.B.set})
}

type addIntRequest struct {
	A laxInt `json:"a"`
	B laxInt `json:"b"`
}

func (r addIntRequest) validate() error {
	return requireFields(map[string]bool{"a": r.A.set, "b": r.B.set})
}

type itemRequest struct {
	Name  *string `json:"name"`
	Price laxInt  `json:"price"`
}

func (r itemRequest) validate() error {
	return requireFields(map[string]bool{"name": r.Name != nil, "price": r.Price.set})
}

func requireFields(present map[string]bool) error {
	var missing []string
	for _, name := range []string{"a", "b", "name", "price"} {
		if set, ok := present[name]; ok && !set {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apperrors.E(apperrors.KindValidation, "missing required field: "+strings.Join(missing, ", "))
	}
	return nil
}

type validator interface {
	validate() error
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are ignored. Every failure is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst validator) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "invalid request body", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.E(apperrors.KindValidation, "invalid request body: trailing data after JSON object")
	}
	return dst.validate()
}
