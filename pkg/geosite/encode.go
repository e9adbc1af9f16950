package geosite

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldListEntry   protowire.Number = 1
	fieldSiteTag     protowire.Number = 1
	fieldSiteDomain  protowire.Number = 2
	fieldDomainType  protowire.Number = 1
	fieldDomainValue protowire.Number = 2
)

// AppendVarint appends v using base-128 groups, least significant first.
func AppendVarint(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, field protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, field, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func appendDomain(b []byte, rule string) []byte {
	typ, value := ParseDomain(rule)

	msg := protowire.AppendTag(nil, fieldDomainType, protowire.VarintType)
	msg = protowire.AppendVarint(msg, uint64(typ))
	msg = appendBytesField(msg, fieldDomainValue, []byte(value))

	return appendBytesField(b, fieldSiteDomain, msg)
}

// EncodeEntry encodes one GeoSite message. Rules are deduplicated and
// written in lexical order of the prefixed rule string.
func EncodeEntry(tag string, rules []string) []byte {
	entry := appendBytesField(nil, fieldSiteTag, []byte(tag))
	for _, rule := range sortedUnique(rules) {
		entry = appendDomain(entry, rule)
	}
	return entry
}

// Encode returns a complete geosite.dat payload holding a single entry.
// The output depends only on tag and the set of rules.
func Encode(tag string, rules []string) []byte {
	return appendBytesField(nil, fieldListEntry, EncodeEntry(tag, rules))
}
