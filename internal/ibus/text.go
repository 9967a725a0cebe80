package ibus

import (
	"github.com/godbus/dbus/v5"
)

// IBus attribute types and values.
const (
	attrUnderline  uint32 = 1
	attrForeground uint32 = 2
	attrBackground uint32 = 3

	underlineSingle uint32 = 1

	colorUnknownWord uint32 = 0xcc0000
	colorPendingKey  uint32 = 0xd0d0d0
)

// preeditCommit asks IBus to commit a visible preedit on focus change.
const preeditCommit uint32 = 1

// Wire forms of IBusSerializable types. Field order is the D-Bus signature.

type text struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	AttrList    dbus.Variant
}

type attrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attributes  []dbus.Variant
}

type attribute struct {
	Name        string
	Attachments map[string]dbus.Variant
	Type        uint32
	Value       uint32
	StartIndex  uint32
	EndIndex    uint32
}

type lookupTable struct {
	Name          string
	Attachments   map[string]dbus.Variant
	PageSize      uint32
	CursorPos     uint32
	CursorVisible bool
	Round         bool
	Orientation   int32
	Candidates    []dbus.Variant
	Labels        []dbus.Variant
}

func newAttribute(typ, value, start, end uint32) dbus.Variant {
	return dbus.MakeVariant(attribute{
		Name:        "IBusAttribute",
		Attachments: map[string]dbus.Variant{},
		Type:        typ,
		Value:       value,
		StartIndex:  start,
		EndIndex:    end,
	})
}

func newText(s string, attrs ...dbus.Variant) dbus.Variant {
	if attrs == nil {
		attrs = []dbus.Variant{}
	}
	return dbus.MakeVariant(text{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        s,
		AttrList: dbus.MakeVariant(attrList{
			Name:        "IBusAttrList",
			Attachments: map[string]dbus.Variant{},
			Attributes:  attrs,
		}),
	})
}

func newLookupTable(candidates []string, pageSize, cursor uint32) dbus.Variant {
	items := make([]dbus.Variant, len(candidates))
	for i, c := range candidates {
		items[i] = newText(c)
	}
	return dbus.MakeVariant(lookupTable{
		Name:          "IBusLookupTable",
		Attachments:   map[string]dbus.Variant{},
		PageSize:      pageSize,
		CursorPos:     cursor,
		CursorVisible: true,
		Round:         false,
		Orientation:   0,
		Candidates:    items,
		Labels:        []dbus.Variant{},
	})
}

// textValue extracts the string of a serialized IBusText.
func textValue(v dbus.Variant) (string, bool) {
	switch t := v.Value().(type) {
	case text:
		return t.Text, true
	case []interface{}:
		if len(t) < 3 {
			return "", false
		}
		s, ok := t[2].(string)
		return s, ok
	case string:
		return t, true
	}
	return "", false
}
