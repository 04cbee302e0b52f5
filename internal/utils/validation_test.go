package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEntityID(t *testing.T) {
	assert.NoError(t, ValidateEntityID("hero-1"))
	assert.NoError(t, ValidateEntityID("Orc_Raider_03"))

	assert.Error(t, ValidateEntityID(""))
	assert.Error(t, ValidateEntityID("bad/id"))
	assert.Error(t, ValidateEntityID("dotted.id"))
	assert.Error(t, ValidateEntityID(strings.Repeat("x", MaxIDLength+1)))
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget("ac"))
	assert.NoError(t, ValidateTarget("skill.stealth"))
	assert.NoError(t, ValidateTarget("save.will"))

	assert.Error(t, ValidateTarget(""))
	assert.Error(t, ValidateTarget("with space"))
	assert.Error(t, ValidateTarget("slash/target"))
}

func TestValidateProperties(t *testing.T) {
	assert.NoError(t, ValidateProperties(map[string]interface{}{
		"hp": 12, "tags": []interface{}{"elite"},
	}))

	// build a map nested past the depth limit
	deep := map[string]interface{}{}
	cur := deep
	for i := 0; i < MaxDepth+2; i++ {
		next := map[string]interface{}{}
		cur["n"] = next
		cur = next
	}
	assert.Error(t, ValidateProperties(deep))
}

func TestJSONSizeValidator(t *testing.T) {
	v := NewJSONSizeValidator(16)
	assert.NoError(t, v.ValidateJSON([]byte(`{"a":1}`)))
	assert.Error(t, v.ValidateSize(make([]byte, 17)))
	assert.Error(t, v.ValidateJSON([]byte(`{"a":`)))
}
