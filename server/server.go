// Package server contains payload types shared by the HTTP wrappers.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
)

// FloatT is a struct with a single field, F64, used for JSON encoding/decoding
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single field, Int, used for JSON encoding/decoding
type IntT struct {
	Int int `json:"int"`
}

// ByteT is a struct with a single field, Int, used for JSON encoding/decoding
type ByteT struct {
	Int byte `json:"int"`
}

// BoolT is a struct with a single field, Bool, used for JSON encoding/decoding
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single field, Str, used for JSON encoding/decoding
type StrT struct {
	Str string `json:"str"`
}

// BufferT is a struct with a single field, Uints, used for JSON encoding/decoding
type BufferT struct {
	Uints []uint16 `json:"uints"`
}

// HumanPayload is a struct containing the basic types of Go and the type of
// the data it holds.  It is the commonly spoken tongue between instrument
// responses and HTTP replies.
type HumanPayload struct {
	// Bool holds a binary value
	Bool bool

	// Buffer holds raw uint16s, e.g. camera pixels
	Buffer []uint16

	// Byte holds a single byte
	Byte byte

	// Int holds an int
	Int int

	// Float holds a float64
	Float float64

	// String holds a string
	String string

	// T holds the type of data actually contained in the payload
	T types.BasicKind
}

// EncodeAndRespond converts the humanpayload to a struct with a single json
// field and writes it to w with the appropriate content-type header.
// Errors are written as HTTP 500s.
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var obj interface{}
	switch hp.T {
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	case types.Byte:
		obj = ByteT{Int: hp.Byte}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.String:
		obj = StrT{Str: hp.String}
	case types.Uint16:
		obj = BufferT{Uints: hp.Buffer}
	default:
		fstr := fmt.Sprintf("payload type %v not recognized", hp.T)
		http.Error(w, fstr, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		fstr := fmt.Sprintf("error encoding payload to json %q", err)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}
