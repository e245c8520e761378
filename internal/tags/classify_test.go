package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier("", "")

	tests := []struct {
		raw      string
		wantType string
		wantKey  string
	}{
		{"amenity", "regular", "amenity"},
		{"addr:street", "addr", "street"},
		{"addr:street:name", "addr", "street:name"},
		{"a:b:c:d", "a", "b:c:d"},
		{":leading", "", "leading"},
		{"trailing:", "trailing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			typ, key := c.Classify(tt.raw)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestClassify_CustomDefaultType(t *testing.T) {
	c := NewClassifier("", "plain")
	typ, key := c.Classify("name")
	assert.Equal(t, "plain", typ)
	assert.Equal(t, "name", key)
}

func TestAllowed_EveryProblemCharRejected(t *testing.T) {
	c := NewClassifier("", "")
	for _, r := range DefaultProblemChars {
		raw := "addr" + string(r) + "street"
		assert.False(t, c.Allowed(raw), "key %q should be rejected", raw)
	}
	assert.True(t, c.Allowed("addr:street_name"))
	assert.True(t, c.Allowed("name:zh-Hans"))
}

func TestAllowed_CustomSet(t *testing.T) {
	c := NewClassifier("!", "")
	assert.True(t, c.Allowed("a.b"))
	assert.False(t, c.Allowed("a!b"))
	assert.Equal(t, "!", c.ProblemChars())
}

func TestClassOf(t *testing.T) {
	c := NewClassifier("", "")

	assert.Equal(t, KeyLower, c.ClassOf("highway"))
	assert.Equal(t, KeyLower, c.ClassOf("building_id"))
	assert.Equal(t, KeyLowerColon, c.ClassOf("addr:street"))
	assert.Equal(t, KeyProblemChars, c.ClassOf("name.en"))
	assert.Equal(t, KeyProblemChars, c.ClassOf("fixme date"))
	assert.Equal(t, KeyOther, c.ClassOf("addr:street:name"))
	assert.Equal(t, KeyOther, c.ClassOf("FIXME"))
	assert.Equal(t, KeyOther, c.ClassOf(strings.ToUpper("name")))
}
