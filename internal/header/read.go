package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the 4-byte signature every package file must start with (before
// the lead's version/type/arch fields). Matches the read-side convention in
// dump-package/impl/rpm.go's dumpRpmLead, which checks the header-section
// magic the same way.
var Magic = [4]byte{0xed, 0xab, 0xee, 0xdb}

var headerSectionMagic = [3]byte{0x8e, 0xad, 0xe8}

// Lead is the fixed-size preamble before the header sections.
type Lead struct {
	Magic              [4]byte
	Version            [2]byte
	Type               uint16 // 0 = binary, 1 = source
	Architecture       uint16
	NameVersionRelease [66]byte
	OperatingSystem    uint16
	SignatureType      uint16
	Reserved           [16]byte
}

// IsSource reports whether this is a source-package lead (spec.md §4.9).
func (l *Lead) IsSource() bool { return l.Type == 1 }

// ErrBadMagic is returned by ReadLead when the stream does not start with
// the expected package magic (spec.md's BAD-MAGIC error kind).
var ErrBadMagic = fmt.Errorf("not a package file: bad magic")

// ReadLead reads and validates the fixed-size lead structure.
func ReadLead(r io.Reader) (*Lead, error) {
	var lead Lead
	if err := binary.Read(r, binary.BigEndian, &lead); err != nil {
		return nil, fmt.Errorf("reading package lead: %w", err)
	}
	if lead.Magic != Magic {
		return nil, ErrBadMagic
	}
	return &lead, nil
}

type headerSectionHeader struct {
	Magic      [3]byte
	Version    uint8
	Reserved   [4]byte
	EntryCount uint32
	DataSize   uint32
}

// ReadHeaderSection reads one header section (the signature section, or the
// metadata header section) from r. This is a straight generalization of
// dump-package/impl/rpm.go's dumpRpmHeader: instead of rendering index
// entries to a debug string, it builds the typed Header this package
// exposes to the rest of the pipeline.
func ReadHeaderSection(r io.Reader) (*Header, error) {
	var hh headerSectionHeader
	if err := binary.Read(r, binary.BigEndian, &hh); err != nil {
		return nil, fmt.Errorf("reading header section preamble: %w", err)
	}
	if hh.Magic != headerSectionMagic {
		return nil, fmt.Errorf("header section: bad magic %x", hh.Magic)
	}

	records := make([]IndexRecord, 0, hh.EntryCount)
	for i := uint32(0); i < hh.EntryCount; i++ {
		var raw struct {
			Tag    uint32
			Type   uint32
			Offset uint32
			Count  uint32
		}
		if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
			return nil, fmt.Errorf("reading header index record %d: %w", i, err)
		}
		records = append(records, IndexRecord{
			Tag: raw.Tag, Type: ValueType(raw.Type), Offset: raw.Offset, Count: raw.Count,
		})
	}

	data := make([]byte, hh.DataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("reading header data store: %w", err)
	}

	return &Header{Records: records, Data: data, decoded: make(map[uint32]interface{})}, nil
}

// MarshalBinary serializes a header to the same record/data-store shape
// ReadHeaderSection parses, so a header round-trips through the package
// database without any other encoding machinery. Mirrors the structure (if
// not the region-tag bookkeeping, which only matters for GPG-signed
// immutability and is out of scope per spec.md's non-goals) of the
// teacher's Header.ToBinary in rpm/header.go.
func (h *Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, headerSectionHeader{
		Magic:      headerSectionMagic,
		Version:    1,
		EntryCount: uint32(len(h.Records)),
		DataSize:   uint32(len(h.Data)),
	})
	for _, rec := range h.Records {
		binary.Write(&buf, binary.BigEndian, struct {
			Tag, Type, Offset, Count uint32
		}{rec.Tag, uint32(rec.Type), rec.Offset, rec.Count})
	}
	buf.Write(h.Data)
	return buf.Bytes(), nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (h *Header) UnmarshalBinary(data []byte) error {
	parsed, err := ReadHeaderSection(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*h = *parsed
	return nil
}
