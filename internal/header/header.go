// Package header implements the typed tag store consumed by the install
// pipeline: a header is a multimap from tag identifier to a typed value,
// read-only once parsed except through Clone.
//
// The encoding mirrors the RPM header structure ([LSB, 25.2.2]): a sequence
// of fixed-size index records, each naming a tag/type/count, pointing into a
// shared byte-string data store. This package borrows the record/data-store
// split and the Add* value builders from the package-building side of this
// lineage (the rpm.Header type of the builder this was adapted from, which is
// not part of this module) and adds the read path and typed lookups that a
// builder never needed.
package header

import "fmt"

// ValueType identifies how a tag's bytes are interpreted in the data store.
type ValueType uint32

// Known value types. Only the subset actually produced/consumed by the
// install pipeline is implemented; others round-trip as opaque binary.
const (
	NullType        ValueType = 0
	CharType        ValueType = 1
	Int8Type        ValueType = 2
	Int16Type       ValueType = 3
	Int32Type       ValueType = 4
	Int64Type       ValueType = 5
	StringType      ValueType = 6
	BinType         ValueType = 7
	StringArrayType ValueType = 8
	I18NStringType  ValueType = 9
)

// IndexRecord is a single key/value entry: the value bytes live in the
// owning Header's Data store at [Offset, Offset+len).
type IndexRecord struct {
	Tag    uint32
	Type   ValueType
	Offset uint32
	Count  uint32
}

// Header is a typed multimap from tag identifier to value. It owns Records
// and Data; callers must not retain slices derived from Data past a Clone
// that drops the original.
type Header struct {
	Records []IndexRecord
	Data    []byte

	// decoded is a cache of already-materialized values, keyed by tag, so
	// repeated lookups of the same array-valued tag (FILENAMES is read by
	// nearly every §4 subcomponent) don't re-walk Data.
	decoded map[uint32]interface{}
}

// New returns an empty, writable header.
func New() *Header {
	return &Header{decoded: make(map[uint32]interface{})}
}

// Has reports whether tag is present.
func (h *Header) Has(tag uint32) bool {
	_, rec := h.find(tag)
	return rec != nil
}

func (h *Header) find(tag uint32) (int, *IndexRecord) {
	for i := range h.Records {
		if h.Records[i].Tag == tag {
			return i, &h.Records[i]
		}
	}
	return -1, nil
}

// GetInt8 reads a legacy 8-bit scalar tag (used for the pre-string-era
// arch/OS tags, per spec.md §4.1).
func (h *Header) GetInt8(tag uint32) (int8, bool) {
	_, rec := h.find(tag)
	if rec == nil || rec.Type != Int8Type || rec.Count < 1 {
		return 0, false
	}
	return int8(h.Data[rec.Offset]), true
}

// GetString reads a scalar string/i18n-string tag.
func (h *Header) GetString(tag uint32) (string, bool) {
	if v, ok := h.decoded[tag]; ok {
		s, ok := v.(string)
		return s, ok
	}
	_, rec := h.find(tag)
	if rec == nil || (rec.Type != StringType && rec.Type != I18NStringType) {
		return "", false
	}
	s := nulTerminatedString(h.Data[rec.Offset:])
	h.decoded[tag] = s
	return s, true
}

// GetStringArray reads an array-of-strings tag (e.g. FILENAMES).
func (h *Header) GetStringArray(tag uint32) ([]string, bool) {
	if v, ok := h.decoded[tag]; ok {
		s, ok := v.([]string)
		return s, ok
	}
	_, rec := h.find(tag)
	if rec == nil || rec.Type != StringArrayType {
		return nil, false
	}
	out := make([]string, 0, rec.Count)
	pos := rec.Offset
	for i := uint32(0); i < rec.Count; i++ {
		s := nulTerminatedString(h.Data[pos:])
		out = append(out, s)
		pos += uint32(len(s)) + 1
	}
	h.decoded[tag] = out
	return out, true
}

// GetInt32Array reads an array-of-int32 tag (e.g. FILESIZES, FILEFLAGS,
// FILESTATES).
func (h *Header) GetInt32Array(tag uint32) ([]int32, bool) {
	if v, ok := h.decoded[tag]; ok {
		s, ok := v.([]int32)
		return s, ok
	}
	_, rec := h.find(tag)
	if rec == nil || rec.Type != Int32Type {
		return nil, false
	}
	out := make([]int32, rec.Count)
	for i := uint32(0); i < rec.Count; i++ {
		off := rec.Offset + i*4
		out[i] = int32(be32(h.Data[off : off+4]))
	}
	h.decoded[tag] = out
	return out, true
}

// GetInt16Array reads an array-of-int16 tag (e.g. FILEMODES, FILERDEVS).
func (h *Header) GetInt16Array(tag uint32) ([]int16, bool) {
	if v, ok := h.decoded[tag]; ok {
		s, ok := v.([]int16)
		return s, ok
	}
	_, rec := h.find(tag)
	if rec == nil || rec.Type != Int16Type {
		return nil, false
	}
	out := make([]int16, rec.Count)
	for i := uint32(0); i < rec.Count; i++ {
		off := rec.Offset + i*2
		out[i] = int16(uint16(h.Data[off])<<8 | uint16(h.Data[off+1]))
	}
	h.decoded[tag] = out
	return out, true
}

// GetInt8Array reads an array-of-int8 tag. (FILESTATES is stored as INT32
// here; see TagFileStates.)
func (h *Header) GetInt8Array(tag uint32) ([]int8, bool) {
	if v, ok := h.decoded[tag]; ok {
		s, ok := v.([]int8)
		return s, ok
	}
	_, rec := h.find(tag)
	if rec == nil || rec.Type != Int8Type {
		return nil, false
	}
	out := make([]int8, rec.Count)
	for i := uint32(0); i < rec.Count; i++ {
		out[i] = int8(h.Data[rec.Offset+i])
	}
	h.decoded[tag] = out
	return out, true
}

// AddInt8ArrayValue appends an array-of-int8 tag.
func (h *Header) AddInt8ArrayValue(tag uint32, values []int8) {
	h.Records = append(h.Records, IndexRecord{
		Tag: tag, Type: Int8Type, Offset: uint32(len(h.Data)), Count: uint32(len(values)),
	})
	for _, v := range values {
		h.Data = append(h.Data, byte(v))
	}
	h.invalidate(tag)
}

// AddStringValue appends a scalar string (or i18n string) tag.
func (h *Header) AddStringValue(tag uint32, value string, i18n bool) {
	t := StringType
	if i18n {
		t = I18NStringType
	}
	h.Records = append(h.Records, IndexRecord{
		Tag: tag, Type: t, Offset: uint32(len(h.Data)), Count: 1,
	})
	h.Data = append(append(h.Data, []byte(value)...), 0x00)
	h.invalidate(tag)
}

// AddStringArrayValue appends an array-of-strings tag.
func (h *Header) AddStringArrayValue(tag uint32, values []string) {
	h.Records = append(h.Records, IndexRecord{
		Tag: tag, Type: StringArrayType, Offset: uint32(len(h.Data)), Count: uint32(len(values)),
	})
	for _, v := range values {
		h.Data = append(append(h.Data, []byte(v)...), 0x00)
	}
	h.invalidate(tag)
}

// AddInt16Value appends an array-of-int16 tag (e.g. FILEMODES, FILERDEVS),
// 2-byte-aligning the store first to match the on-disk alignment rule for
// fixed-width types.
func (h *Header) AddInt16Value(tag uint32, values []int16) {
	if len(h.Data)%2 != 0 {
		h.Data = append(h.Data, 0x00)
	}
	h.Records = append(h.Records, IndexRecord{
		Tag: tag, Type: Int16Type, Offset: uint32(len(h.Data)), Count: uint32(len(values)),
	})
	for _, v := range values {
		h.Data = append(h.Data, byte(v>>8), byte(v))
	}
	h.invalidate(tag)
}

// AddInt32Value appends an array-of-int32 tag, 4-byte-aligning the store
// first (matches the RPM on-disk alignment rule for fixed-width types).
func (h *Header) AddInt32Value(tag uint32, values []int32) {
	for len(h.Data)%4 != 0 {
		h.Data = append(h.Data, 0x00)
	}
	h.Records = append(h.Records, IndexRecord{
		Tag: tag, Type: Int32Type, Offset: uint32(len(h.Data)), Count: uint32(len(values)),
	})
	for _, v := range values {
		h.Data = append(h.Data, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	h.invalidate(tag)
}

// Remove drops a tag entirely, if present. Used by the relocator, which
// rebuilds FILENAMES under a new prefix and must not leave the old array
// dangling alongside the new one.
func (h *Header) Remove(tag uint32) {
	idx, rec := h.find(tag)
	if rec == nil {
		return
	}
	h.Records = append(h.Records[:idx], h.Records[idx+1:]...)
	h.invalidate(tag)
}

func (h *Header) invalidate(tag uint32) {
	delete(h.decoded, tag)
}

// Clone performs the "clone-and-modify" operation named in spec.md §3: a
// deep copy that the caller may mutate without affecting the original. The
// path relocator is the only §4 subcomponent that needs this.
func (h *Header) Clone() *Header {
	c := &Header{
		Records: make([]IndexRecord, len(h.Records)),
		Data:    make([]byte, len(h.Data)),
		decoded: make(map[uint32]interface{}),
	}
	copy(c.Records, h.Records)
	copy(c.Data, h.Data)
	return c
}

func nulTerminatedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ErrTagMissing describes a required tag that is absent from a header. The
// Get* accessors in this package report absence through their bool result
// and do not return it.
type ErrTagMissing struct{ Tag uint32 }

func (e ErrTagMissing) Error() string {
	return fmt.Sprintf("header: required tag %d is missing", e.Tag)
}
