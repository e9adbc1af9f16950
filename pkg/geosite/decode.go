package geosite

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decode parses a geosite.dat payload. Unknown fields are skipped.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	err := walk(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num != fieldListEntry || typ != protowire.BytesType {
			return nil
		}
		entry, err := decodeEntry(value)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func decodeEntry(data []byte) (Entry, error) {
	var entry Entry
	err := walk(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldSiteTag:
			entry.Tag = string(value)
		case fieldSiteDomain:
			d, err := decodeDomain(value)
			if err != nil {
				return err
			}
			entry.Domains = append(entry.Domains, d)
		}
		return nil
	})
	return entry, err
}

func decodeDomain(data []byte) (Domain, error) {
	var d Domain
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return d, fmt.Errorf("decode domain tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldDomainType && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return d, fmt.Errorf("decode domain type: %w", protowire.ParseError(m))
			}
			d.Type = Type(v)
			n = m
		case num == fieldDomainValue && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return d, fmt.Errorf("decode domain value: %w", protowire.ParseError(m))
			}
			d.Value = string(v)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return d, fmt.Errorf("skip domain field %d: %w", num, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	return d, nil
}

// walk calls fn for every field of a message, passing the raw bytes of
// length-delimited fields.
func walk(data []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		var value []byte
		if typ == protowire.BytesType {
			value, n = protowire.ConsumeBytes(data)
		} else {
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]

		if err := fn(num, typ, value); err != nil {
			return err
		}
	}
	return nil
}
