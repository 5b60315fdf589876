package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_TypeName(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "Null"},
		{"bool", Bool(true), "Boolean"},
		{"int", Int(3), "Integer"},
		{"float", Float(3.5), "Float"},
		{"string", String("hi"), "String"},
		{"list", List([]Value{Int(1)}), "List"},
		{"map", Map(PropertyMap{"a": Int(1)}), "Map"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.v.TypeName())
		})
	}
}

func TestValue_Equal_MapOrderIndependent(t *testing.T) {
	a := Map(PropertyMap{"x": Int(1), "y": String("a")})
	b := Map(PropertyMap{"y": String("a"), "x": Int(1)})
	assert.True(t, a.Equal(b))
}

func TestValue_TypeError(t *testing.T) {
	_, err := String("x").AsInt()
	require.Error(t, err)
	var te TypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Integer", te.Expected)
	assert.Equal(t, "String", te.Got)
}

func TestValue_Truthy(t *testing.T) {
	v, known := Bool(true).Truthy()
	assert.True(t, known)
	assert.True(t, v)

	_, known = Null().Truthy()
	assert.False(t, known)

	_, known = Int(1).Truthy()
	assert.False(t, known)
}

func TestValue_Compare_NumericWidening(t *testing.T) {
	c, err := Int(3).Compare(Float(3.5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestValue_CompareTotal_CrossKindDeterministic(t *testing.T) {
	a := CompareTotal(Int(1), String("x"))
	b := CompareTotal(Int(1), String("x"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, 0, a)
}

func TestValue_JSONRoundTrip(t *testing.T) {
	values := []Value{
		Null(), Bool(true), Int(42), Float(3.14), String("hi"),
		Bytes([]byte{1, 2, 3}),
		List([]Value{Int(1), String("a")}),
		Map(PropertyMap{"k": Int(1)}),
		NodeValue(Node{ID: 1, Labels: []string{"Person"}, Properties: PropertyMap{"name": String("Ada")}}),
		RelValue(Relationship{ID: 1, Src: 1, Dst: 2, Type: "KNOWS"}),
	}
	for _, v := range values {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		var out Value
		require.NoError(t, json.Unmarshal(b, &out))
		assert.True(t, v.Equal(out), "round trip mismatch for %s", v.TypeName())
	}
}

func TestPath_Invariant(t *testing.T) {
	n1 := Node{ID: 1}
	n2 := Node{ID: 2}
	r := Relationship{ID: 1, Src: 1, Dst: 2, Type: "KNOWS"}
	p := SinglePath(n1)
	p.Append(r, n2)
	assert.Equal(t, len(p.Nodes), len(p.Relationships)+1)
	assert.Equal(t, n1.ID, p.Start().ID)
	assert.Equal(t, n2.ID, p.End().ID)
}

func TestRelationship_OtherNode(t *testing.T) {
	r := Relationship{ID: 1, Src: 1, Dst: 2, Type: "KNOWS"}
	other, ok := r.OtherNode(1)
	assert.True(t, ok)
	assert.Equal(t, NodeID(2), other)

	_, ok = r.OtherNode(99)
	assert.False(t, ok)
}
