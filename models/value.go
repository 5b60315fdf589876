// Package models defines the public data-transfer types that cross every
// boundary in the engine: storage, planner, executor and caller all share
// these same DTOs. The package is pure data — no I/O, no behavior beyond
// simple accessors and the Value type's own comparison/ordering rules.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the runtime variant carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindNode
	KindRelationship
	KindPath
	KindDate
	KindTime
	KindDateTime
	KindLocalDateTime
	KindDuration
	KindPoint2D
	KindPoint3D
)

var kindNames = map[Kind]string{
	KindNull:          "Null",
	KindBool:          "Boolean",
	KindInt:           "Integer",
	KindFloat:         "Float",
	KindString:        "String",
	KindBytes:         "Bytes",
	KindList:          "List",
	KindMap:           "Map",
	KindNode:          "Node",
	KindRelationship:  "Relationship",
	KindPath:          "Path",
	KindDate:          "Date",
	KindTime:          "Time",
	KindDateTime:      "DateTime",
	KindLocalDateTime: "LocalDateTime",
	KindDuration:      "Duration",
	KindPoint2D:       "Point2D",
	KindPoint3D:       "Point3D",
}

// String returns the stable type-name used in TypeError messages.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Duration is an ISO-8601 duration split into the four component
// granularities a calendar-aware duration needs (months and days cannot be
// folded into seconds without a reference instant).
type Duration struct {
	Months      int64
	Days        int64
	Seconds     int64
	Nanoseconds int32
}

// Point2D is a spatial point tagged with a spatial-reference identifier.
type Point2D struct {
	SRID int32
	X, Y float64
}

// Point3D is a three-dimensional spatial point.
type Point3D struct {
	SRID    int32
	X, Y, Z float64
}

// Value is the tagged union every property, parameter and result column is
// built from. The zero Value is KindNull.
type Value struct {
	kind Kind

	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	list []Value
	m    PropertyMap

	node *Node
	rel  *Relationship
	path *Path

	date      time.Time // truncated to the date portion
	timeOfDay time.Time
	dateTime  time.Time
	localDT   time.Time
	dur       Duration
	pt2       Point2D
	pt3       Point3D
}

// PropertyMap is a string-keyed map of values. Key order never matters.
type PropertyMap map[string]Value

// Clone returns a copy of the map. Only the top-level entries are
// copied: list, map and byte contents inside values stay shared.
func (p PropertyMap) Clone() PropertyMap {
	if p == nil {
		return nil
	}
	out := make(PropertyMap, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Constructors.

func Null() Value              { return Value{kind: KindNull} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value     { return Value{kind: KindBytes, by: append([]byte(nil), b...)} }
func List(items []Value) Value { return Value{kind: KindList, list: items} }
func Map(m PropertyMap) Value  { return Value{kind: KindMap, m: m} }
func NodeValue(n Node) Value   { return Value{kind: KindNode, node: &n} }
func RelValue(r Relationship) Value {
	return Value{kind: KindRelationship, rel: &r}
}
func PathValue(p Path) Value { return Value{kind: KindPath, path: &p} }
func DateValue(t time.Time) Value {
	return Value{kind: KindDate, date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}
func TimeValue(t time.Time) Value { return Value{kind: KindTime, timeOfDay: t} }
func DateTimeValue(t time.Time) Value {
	return Value{kind: KindDateTime, dateTime: t}
}
func LocalDateTimeValue(t time.Time) Value {
	return Value{kind: KindLocalDateTime, localDT: t}
}
func DurationValue(d Duration) Value { return Value{kind: KindDuration, dur: d} }
func Point2DValue(p Point2D) Value   { return Value{kind: KindPoint2D, pt2: p} }
func Point3DValue(p Point3D) Value   { return Value{kind: KindPoint3D, pt3: p} }

// Kind returns the runtime variant.
func (v Value) Kind() Kind { return v.kind }

// TypeName returns the stable type-name string used in TypeError payloads.
func (v Value) TypeName() string { return v.kind.String() }

func (v Value) IsNull() bool { return v.kind == KindNull }

// TypeError reports a failed typed extraction.
type TypeError struct {
	Expected string
	Got      string
}

func (e TypeError) Error() string {
	return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Got)
}

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, TypeError{Expected: "Boolean", Got: v.TypeName()}
	}
	return v.b, nil
}

func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, TypeError{Expected: "Integer", Got: v.TypeName()}
	}
	return v.i, nil
}

func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	default:
		return 0, TypeError{Expected: "Float", Got: v.TypeName()}
	}
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", TypeError{Expected: "String", Got: v.TypeName()}
	}
	return v.s, nil
}

func (v Value) AsBytes() ([]byte, error) {
	if v.kind != KindBytes {
		return nil, TypeError{Expected: "Bytes", Got: v.TypeName()}
	}
	return v.by, nil
}

func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, TypeError{Expected: "List", Got: v.TypeName()}
	}
	return v.list, nil
}

func (v Value) AsMap() (PropertyMap, error) {
	if v.kind != KindMap {
		return nil, TypeError{Expected: "Map", Got: v.TypeName()}
	}
	return v.m, nil
}

func (v Value) AsNode() (Node, error) {
	if v.kind != KindNode {
		return Node{}, TypeError{Expected: "Node", Got: v.TypeName()}
	}
	return *v.node, nil
}

func (v Value) AsRelationship() (Relationship, error) {
	if v.kind != KindRelationship {
		return Relationship{}, TypeError{Expected: "Relationship", Got: v.TypeName()}
	}
	return *v.rel, nil
}

func (v Value) AsPath() (Path, error) {
	if v.kind != KindPath {
		return Path{}, TypeError{Expected: "Path", Got: v.TypeName()}
	}
	return *v.path, nil
}

func (v Value) AsDuration() (Duration, error) {
	if v.kind != KindDuration {
		return Duration{}, TypeError{Expected: "Duration", Got: v.TypeName()}
	}
	return v.dur, nil
}

// Truthy implements three-valued logic: returns (value, isKnown). Only a
// Boolean is "known"; everything else, including Null, is unknown and the
// caller must propagate null through and/or/not.
func (v Value) Truthy() (value bool, known bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// IsNumeric reports whether the value is Int or Float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// String renders the value's canonical textual form, used both for string
// coercion in `+` concatenation and as Compare's ordering key for kinds
// without a dedicated rule (lists, maps, nodes and the like).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%x", v.by)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.m[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindNode:
		return fmt.Sprintf("Node(%d)", v.node.ID)
	case KindRelationship:
		return fmt.Sprintf("Relationship(%d)", v.rel.ID)
	case KindPath:
		return fmt.Sprintf("Path(len=%d)", len(v.path.Relationships))
	case KindDate:
		return v.date.Format("2006-01-02")
	case KindTime:
		return v.timeOfDay.Format("15:04:05")
	case KindDateTime:
		return v.dateTime.Format(time.RFC3339)
	case KindLocalDateTime:
		return v.localDT.Format("2006-01-02T15:04:05")
	case KindDuration:
		return fmt.Sprintf("P%dM%dDT%dS", v.dur.Months, v.dur.Days, v.dur.Seconds)
	case KindPoint2D:
		return fmt.Sprintf("Point(srid=%d, x=%g, y=%g)", v.pt2.SRID, v.pt2.X, v.pt2.Y)
	case KindPoint3D:
		return fmt.Sprintf("Point(srid=%d, x=%g, y=%g, z=%g)", v.pt3.SRID, v.pt3.X, v.pt3.Y, v.pt3.Z)
	default:
		return "?"
	}
}

// Equal implements structural equality. Map key order never matters.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.by, o.by)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, val := range v.m {
			ov, ok := o.m[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	case KindNode:
		return v.node.ID == o.node.ID
	case KindRelationship:
		return v.rel.ID == o.rel.ID
	case KindPath:
		if len(v.path.Nodes) != len(o.path.Nodes) {
			return false
		}
		for i := range v.path.Nodes {
			if v.path.Nodes[i].ID != o.path.Nodes[i].ID {
				return false
			}
		}
		for i := range v.path.Relationships {
			if v.path.Relationships[i].ID != o.path.Relationships[i].ID {
				return false
			}
		}
		return true
	case KindDate:
		return v.date.Equal(o.date)
	case KindTime:
		return v.timeOfDay.Equal(o.timeOfDay)
	case KindDateTime:
		return v.dateTime.Equal(o.dateTime)
	case KindLocalDateTime:
		return v.localDT.Equal(o.localDT)
	case KindDuration:
		return v.dur == o.dur
	case KindPoint2D:
		return v.pt2 == o.pt2
	case KindPoint3D:
		return v.pt3 == o.pt3
	default:
		return false
	}
}

// Compare defines ordering within a kind; numeric kinds compare across
// Int/Float by widening to float64. Cross-kind comparisons (e.g. String vs
// Node) return a TypeError; CompareTotal supplies the deterministic
// order across kinds.
func (v Value) Compare(o Value) (int, error) {
	if v.IsNumeric() && o.IsNumeric() {
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if v.kind != o.kind {
		return 0, TypeError{Expected: v.TypeName(), Got: o.TypeName()}
	}
	switch v.kind {
	case KindString:
		return strings.Compare(v.s, o.s), nil
	case KindBool:
		if v.b == o.b {
			return 0, nil
		}
		if !v.b {
			return -1, nil
		}
		return 1, nil
	case KindDate:
		return compareTime(v.date, o.date), nil
	case KindTime:
		return compareTime(v.timeOfDay, o.timeOfDay), nil
	case KindDateTime:
		return compareTime(v.dateTime, o.dateTime), nil
	case KindLocalDateTime:
		return compareTime(v.localDT, o.localDT), nil
	default:
		return strings.Compare(v.String(), o.String()), nil
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// kindOrder fixes the deterministic total order across kinds that ORDER
// BY needs when operand kinds differ; the dialect itself leaves
// cross-kind order undefined.
var kindOrder = map[Kind]int{
	KindNull: 0, KindBool: 1, KindInt: 2, KindFloat: 2, KindString: 3,
	KindBytes: 4, KindDate: 5, KindTime: 6, KindLocalDateTime: 7,
	KindDateTime: 8, KindDuration: 9, KindPoint2D: 10, KindPoint3D: 11,
	KindList: 12, KindMap: 13, KindNode: 14, KindRelationship: 15, KindPath: 16,
}

// CompareTotal is a total order over every Value, used by Sort/ORDER BY so
// that cross-kind comparisons (e.g. Integer vs String) are deterministic
// instead of undefined. Within a kind it defers to Compare.
func CompareTotal(v, o Value) int {
	if v.kind == o.kind || (v.IsNumeric() && o.IsNumeric()) {
		c, err := v.Compare(o)
		if err == nil {
			return c
		}
	}
	return kindOrder[v.kind] - kindOrder[o.kind]
}

type jsonValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON renders the full tagged-union type set as {"type":...,"value":...}.
func (v Value) MarshalJSON() ([]byte, error) {
	enc := func(payload any) ([]byte, error) {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(jsonValue{Type: v.kind.String(), Value: raw})
	}
	switch v.kind {
	case KindNull:
		return json.Marshal(jsonValue{Type: "Null"})
	case KindBool:
		return enc(v.b)
	case KindInt:
		return enc(v.i)
	case KindFloat:
		return enc(v.f)
	case KindString:
		return enc(v.s)
	case KindBytes:
		return enc(v.by)
	case KindList:
		return enc(v.list)
	case KindMap:
		return enc(v.m)
	case KindNode:
		return enc(v.node)
	case KindRelationship:
		return enc(v.rel)
	case KindPath:
		return enc(v.path)
	case KindDate:
		return enc(v.date.Format("2006-01-02"))
	case KindTime:
		return enc(v.timeOfDay.Format("15:04:05"))
	case KindDateTime:
		return enc(v.dateTime.Format(time.RFC3339))
	case KindLocalDateTime:
		return enc(v.localDT.Format("2006-01-02T15:04:05"))
	case KindDuration:
		return enc(v.dur)
	case KindPoint2D:
		return enc(v.pt2)
	case KindPoint3D:
		return enc(v.pt3)
	default:
		return json.Marshal(jsonValue{Type: "Null"})
	}
}

// UnmarshalJSON reverses MarshalJSON's {"type":...,"value":...} envelope.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env jsonValue
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Type {
	case "Null", "":
		*v = Null()
	case "Boolean":
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "Integer":
		var i int64
		if err := json.Unmarshal(env.Value, &i); err != nil {
			return err
		}
		*v = Int(i)
	case "Float":
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case "String":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	case "Bytes":
		var b []byte
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return err
		}
		*v = Bytes(b)
	case "List":
		var l []Value
		if err := json.Unmarshal(env.Value, &l); err != nil {
			return err
		}
		*v = List(l)
	case "Map":
		var m PropertyMap
		if err := json.Unmarshal(env.Value, &m); err != nil {
			return err
		}
		*v = Map(m)
	case "Node":
		var n Node
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return err
		}
		*v = NodeValue(n)
	case "Relationship":
		var r Relationship
		if err := json.Unmarshal(env.Value, &r); err != nil {
			return err
		}
		*v = RelValue(r)
	case "Path":
		var p Path
		if err := json.Unmarshal(env.Value, &p); err != nil {
			return err
		}
		*v = PathValue(p)
	case "Date":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return err
		}
		*v = DateValue(t)
	case "Time":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse("15:04:05", s)
		if err != nil {
			return err
		}
		*v = TimeValue(t)
	case "DateTime":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		*v = DateTimeValue(t)
	case "LocalDateTime":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			return err
		}
		*v = LocalDateTimeValue(t)
	case "Duration":
		var d Duration
		if err := json.Unmarshal(env.Value, &d); err != nil {
			return err
		}
		*v = DurationValue(d)
	case "Point2D":
		var p Point2D
		if err := json.Unmarshal(env.Value, &p); err != nil {
			return err
		}
		*v = Point2DValue(p)
	case "Point3D":
		var p Point3D
		if err := json.Unmarshal(env.Value, &p); err != nil {
			return err
		}
		*v = Point3DValue(p)
	default:
		*v = Null()
	}
	return nil
}
