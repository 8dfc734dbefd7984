// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package serial decodes recorded draw-call arguments.
//
// Arguments captured from a live canvas arrive as tagged JSON values: plain
// primitives pass through untouched, binary payloads carry an "rr_type" tag
// naming the buffer type they reconstruct into, and image or canvas arguments
// carry references that must be resolved before a draw call can run.
//
// Value is the parsed form of one argument. Deserializer turns a Value into
// the live value a draw call needs, loading images through a resource cache
// so that the same reference always resolves to the same object.
package serial

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
)

// Kind identifies the category of a serialized argument.
type Kind uint8

const (
	// KindPrimitive is a plain JSON value (number, string, bool, null, object).
	KindPrimitive Kind = iota
	// KindBuffer is a binary payload that reconstructs into a typed slice.
	KindBuffer
	// KindImage references an image resource that needs an asynchronous load.
	KindImage
	// KindSurface references another recorded canvas by id.
	KindSurface
	// KindList is a JSON array whose elements may themselves be tagged.
	KindList
	// KindUnknown is a tagged value whose tag this version does not support.
	KindUnknown
)

// kindNames maps Kind values to their string representation.
var kindNames = [...]string{
	KindPrimitive: "Primitive",
	KindBuffer:    "Buffer",
	KindImage:     "Image",
	KindSurface:   "Surface",
	KindList:      "List",
	KindUnknown:   "Unknown",
}

// String returns the string representation of a Kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is one serialized draw-call argument as it appears on the wire.
// The zero value is a primitive null.
type Value struct {
	Kind Kind

	// Prim holds the decoded value for KindPrimitive.
	Prim any
	// Buf holds the payload for KindBuffer.
	Buf *Buffer
	// Image holds the reference for KindImage.
	Image *ImageRef
	// Surface holds the reference for KindSurface.
	Surface *SurfaceRef
	// List holds the elements for KindList.
	List []Value
	// Tag preserves the original rr_type for KindUnknown.
	Tag string
}

// taggedValue is the wire shape of a non-primitive argument.
type taggedValue struct {
	RRType string          `json:"rr_type"`
	Base64 string          `json:"base64"`
	Args   json.RawMessage `json:"args"`
	Src    string          `json:"src"`
	Data   json.RawMessage `json:"data"`
	MIME   string          `json:"type"`
	ID     *int            `json:"id"`
}

// UnmarshalJSON decodes one serialized argument. Objects carrying an
// "rr_type" tag become buffers, image references, or surface references;
// everything else passes through as a primitive.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("serial: empty argument")
	}

	switch trimmed[0] {
	case '[':
		var list []Value
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = Value{Kind: KindList, List: list}
		return nil
	case '{':
		var tagged taggedValue
		if err := json.Unmarshal(data, &tagged); err != nil {
			return err
		}
		if tagged.RRType == "" {
			return v.unmarshalPrimitive(data)
		}
		return v.unmarshalTagged(&tagged)
	default:
		return v.unmarshalPrimitive(data)
	}
}

// unmarshalPrimitive stores the value as plain decoded JSON.
func (v *Value) unmarshalPrimitive(data []byte) error {
	var prim any
	if err := json.Unmarshal(data, &prim); err != nil {
		return err
	}
	*v = Value{Kind: KindPrimitive, Prim: prim}
	return nil
}

// unmarshalTagged dispatches on the rr_type tag.
func (v *Value) unmarshalTagged(t *taggedValue) error {
	if elem, ok := elemKinds[t.RRType]; ok {
		buf, err := decodeTypedArray(elem, t.Args)
		if err != nil {
			return err
		}
		*v = Value{Kind: KindBuffer, Buf: buf}
		return nil
	}

	switch t.RRType {
	case "ArrayBuffer":
		raw, err := base64.StdEncoding.DecodeString(t.Base64)
		if err != nil {
			return fmt.Errorf("serial: ArrayBuffer base64: %w", err)
		}
		*v = Value{Kind: KindBuffer, Buf: &Buffer{Elem: ElemRaw, Bytes: raw}}
		return nil

	case "DataView":
		// A DataView is recorded as a window over an ArrayBuffer. The view
		// bounds were applied at capture time, so only the bytes remain.
		buf, err := decodeDataView(t.Args)
		if err != nil {
			return err
		}
		*v = Value{Kind: KindBuffer, Buf: buf}
		return nil

	case "Blob":
		raw, err := decodeBlobData(t.Data)
		if err != nil {
			return err
		}
		*v = Value{Kind: KindImage, Image: &ImageRef{Data: raw, MIME: t.MIME}}
		return nil

	case "HTMLImageElement":
		*v = Value{Kind: KindImage, Image: &ImageRef{Src: t.Src}}
		return nil

	case "ImageBitmap":
		// An ImageBitmap is recorded with its constructor arguments; the
		// first one carries the pixel source.
		var args []Value
		if len(t.Args) > 0 {
			if err := json.Unmarshal(t.Args, &args); err != nil {
				return err
			}
		}
		if len(args) > 0 && args[0].Kind == KindImage {
			*v = args[0]
			return nil
		}
		*v = Value{Kind: KindUnknown, Tag: t.RRType}
		return nil

	case "HTMLCanvasElement":
		if t.ID == nil {
			return fmt.Errorf("serial: HTMLCanvasElement without id")
		}
		*v = Value{Kind: KindSurface, Surface: &SurfaceRef{ID: *t.ID}}
		return nil

	default:
		*v = Value{Kind: KindUnknown, Tag: t.RRType}
		return nil
	}
}

// decodeDataView extracts the byte window from recorded DataView args
// ([buffer, byteOffset, byteLength]).
func decodeDataView(raw json.RawMessage) (*Buffer, error) {
	var args []Value
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("serial: DataView args: %w", err)
	}
	if len(args) == 0 || args[0].Kind != KindBuffer {
		return nil, fmt.Errorf("serial: DataView without backing buffer")
	}
	src := args[0].Buf.Bytes
	offset, length := 0, len(src)
	if len(args) > 1 {
		if n, ok := args[1].Prim.(float64); ok {
			offset = int(n)
		}
	}
	if len(args) > 2 {
		if n, ok := args[2].Prim.(float64); ok {
			length = int(n)
		}
	}
	if offset < 0 || length < 0 || offset+length > len(src) {
		return nil, fmt.Errorf("serial: DataView window [%d:%d] outside buffer of %d bytes",
			offset, offset+length, len(src))
	}
	return &Buffer{Elem: ElemRaw, Bytes: src[offset : offset+length]}, nil
}

// decodeBlobData flattens recorded Blob parts (ArrayBuffers or strings)
// into one byte slice.
func decodeBlobData(raw json.RawMessage) ([]byte, error) {
	var parts []Value
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("serial: Blob data: %w", err)
	}
	var out []byte
	for _, p := range parts {
		switch p.Kind {
		case KindBuffer:
			out = append(out, p.Buf.rawBytes()...)
		case KindPrimitive:
			if s, ok := p.Prim.(string); ok {
				out = append(out, s...)
			}
		}
	}
	return out, nil
}

// decodeTypedArray reads element values from recorded typed-array args.
// Capture emits either a flat numeric array or the constructor form with
// the numeric array as the first element.
func decodeTypedArray(elem ElemKind, raw json.RawMessage) (*Buffer, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, fmt.Errorf("serial: %s args: %w", elem, err)
	}

	nums := make([]float64, 0, len(outer))
	for i, item := range outer {
		trimmed := bytes.TrimLeft(item, " \t\r\n")
		if i == 0 && len(trimmed) > 0 && trimmed[0] == '[' {
			// Constructor form: first arg is the element array.
			if err := json.Unmarshal(item, &nums); err != nil {
				return nil, fmt.Errorf("serial: %s elements: %w", elem, err)
			}
			break
		}
		var n float64
		if err := json.Unmarshal(item, &n); err != nil {
			return nil, fmt.Errorf("serial: %s element %d: %w", elem, i, err)
		}
		nums = append(nums, n)
	}
	return &Buffer{Elem: elem, Nums: nums}, nil
}

// ElemKind identifies the element type of a reconstructed buffer.
type ElemKind uint8

const (
	// ElemRaw is an untyped byte buffer (ArrayBuffer, DataView).
	ElemRaw ElemKind = iota
	ElemInt8
	ElemUint8
	ElemUint8Clamped
	ElemInt16
	ElemUint16
	ElemInt32
	ElemUint32
	ElemFloat32
	ElemFloat64
	ElemBigInt64
	ElemBigUint64
)

// elemKinds maps recorded typed-array tags to element kinds.
var elemKinds = map[string]ElemKind{
	"Int8Array":         ElemInt8,
	"Uint8Array":        ElemUint8,
	"Uint8ClampedArray": ElemUint8Clamped,
	"Int16Array":        ElemInt16,
	"Uint16Array":       ElemUint16,
	"Int32Array":        ElemInt32,
	"Uint32Array":       ElemUint32,
	"Float32Array":      ElemFloat32,
	"Float64Array":      ElemFloat64,
	"BigInt64Array":     ElemBigInt64,
	"BigUint64Array":    ElemBigUint64,
}

// elemKindNames maps ElemKind values to their recorded tag.
var elemKindNames = [...]string{
	ElemRaw:          "ArrayBuffer",
	ElemInt8:         "Int8Array",
	ElemUint8:        "Uint8Array",
	ElemUint8Clamped: "Uint8ClampedArray",
	ElemInt16:        "Int16Array",
	ElemUint16:       "Uint16Array",
	ElemInt32:        "Int32Array",
	ElemUint32:       "Uint32Array",
	ElemFloat32:      "Float32Array",
	ElemFloat64:      "Float64Array",
	ElemBigInt64:     "BigInt64Array",
	ElemBigUint64:    "BigUint64Array",
}

// String returns the recorded tag for an ElemKind.
func (e ElemKind) String() string {
	if int(e) < len(elemKindNames) {
		return elemKindNames[e]
	}
	return "Unknown"
}

// Buffer is a binary argument payload awaiting reconstruction.
type Buffer struct {
	// Elem is the element type the buffer reconstructs into.
	Elem ElemKind
	// Bytes holds the raw payload for ElemRaw buffers.
	Bytes []byte
	// Nums holds the element values for typed-array buffers.
	Nums []float64
}

// Len returns the number of elements in the buffer.
func (b *Buffer) Len() int {
	if b.Elem == ElemRaw {
		return len(b.Bytes)
	}
	return len(b.Nums)
}

// Materialize allocates the live typed slice for the buffer. Each call
// returns a fresh object; downstream caching decides whether to keep it.
func (b *Buffer) Materialize() any {
	switch b.Elem {
	case ElemRaw:
		out := make([]byte, len(b.Bytes))
		copy(out, b.Bytes)
		return out
	case ElemInt8:
		out := make([]int8, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = int8(n)
		}
		return out
	case ElemUint8, ElemUint8Clamped:
		out := make([]uint8, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = clampUint8(n, b.Elem == ElemUint8Clamped)
		}
		return out
	case ElemInt16:
		out := make([]int16, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = int16(n)
		}
		return out
	case ElemUint16:
		out := make([]uint16, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = uint16(n)
		}
		return out
	case ElemInt32:
		out := make([]int32, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = int32(n)
		}
		return out
	case ElemUint32:
		out := make([]uint32, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = uint32(n)
		}
		return out
	case ElemFloat32:
		out := make([]float32, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = float32(n)
		}
		return out
	case ElemFloat64:
		out := make([]float64, len(b.Nums))
		copy(out, b.Nums)
		return out
	case ElemBigInt64:
		out := make([]int64, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = int64(n)
		}
		return out
	case ElemBigUint64:
		out := make([]uint64, len(b.Nums))
		for i, n := range b.Nums {
			out[i] = uint64(n)
		}
		return out
	default:
		return nil
	}
}

// rawBytes returns the buffer contents as bytes regardless of element type.
// Typed elements are written little-endian, matching the recorded layout.
func (b *Buffer) rawBytes() []byte {
	if b.Elem == ElemRaw {
		return b.Bytes
	}
	size := elemByteSize(b.Elem)
	out := make([]byte, 0, len(b.Nums)*size)
	for _, n := range b.Nums {
		switch b.Elem {
		case ElemInt8, ElemUint8, ElemUint8Clamped:
			out = append(out, clampUint8(n, b.Elem == ElemUint8Clamped))
		case ElemInt16, ElemUint16:
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(n)))
		case ElemInt32, ElemUint32:
			out = binary.LittleEndian.AppendUint32(out, uint32(int32(n)))
		case ElemFloat32:
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(n)))
		case ElemFloat64:
			out = binary.LittleEndian.AppendUint64(out, math.Float64bits(n))
		case ElemBigInt64, ElemBigUint64:
			out = binary.LittleEndian.AppendUint64(out, uint64(int64(n)))
		}
	}
	return out
}

// elemByteSize returns the byte width of one element.
func elemByteSize(e ElemKind) int {
	switch e {
	case ElemInt16, ElemUint16:
		return 2
	case ElemInt32, ElemUint32, ElemFloat32:
		return 4
	case ElemFloat64, ElemBigInt64, ElemBigUint64:
		return 8
	default:
		return 1
	}
}

// clampUint8 converts a recorded number to a byte. Clamped arrays saturate,
// plain arrays truncate modulo 256 like their browser counterparts.
func clampUint8(n float64, clamped bool) uint8 {
	if clamped {
		if n <= 0 {
			return 0
		}
		if n >= 255 {
			return 255
		}
		return uint8(n + 0.5)
	}
	return uint8(int64(n))
}

// ImageRef points at an image resource that needs loading before use.
// Exactly one of Src or Data is set: Src references external content by URL
// (including data: URLs), Data carries inline bytes captured from a Blob.
type ImageRef struct {
	Src  string
	Data []byte
	MIME string
}

// Key returns the logical identity of the referenced image. References with
// the same key must resolve to the same loaded object.
func (r *ImageRef) Key() string {
	if r.Src != "" {
		return r.Src
	}
	h := fnv.New64a()
	_, _ = h.Write(r.Data) // fnv.Write never returns an error
	return fmt.Sprintf("blob:%016x", h.Sum64())
}

// SurfaceRef points at another recorded canvas. Surface references resolve
// through the session's surface registry on every use so that they always
// reflect current replay state.
type SurfaceRef struct {
	ID int
}

// SurfaceHandle is the deferred resolution of a surface reference. It is
// produced when no resolver is available at deserialization time (notably
// while preloading) and re-resolved against live session state on every
// use, so a cached command list never pins a stale surface.
type SurfaceHandle struct {
	ID int
}

// BrokenImage is the resolved value of an image argument whose load failed.
// Commands carrying a BrokenImage are skipped instead of aborting the
// mutation they belong to.
type BrokenImage struct {
	Key string
	Err error
}
