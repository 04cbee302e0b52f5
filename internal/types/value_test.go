package types

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestValueKinds(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		kind Kind
	}{
		{"number", Number(12.5), KindNumber},
		{"string", String("longsword"), KindString},
		{"bool", Bool(true), KindBool},
		{"map", Map(map[string]Value{"str": Number(16)}), KindMap},
		{"list", List(Number(1), Number(2)), KindList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.val.Kind() != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, tt.val.Kind())
			}
		})
	}
}

func TestValueRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"name":   String("Mialee"),
		"level":  Number(5),
		"feats":  List(String("Dodge"), String("Mobility")),
		"active": Bool(true),
	})

	data, err := sonic.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Value
	if err := sonic.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Kind() != KindMap {
		t.Fatalf("expected map, got %v", decoded.Kind())
	}
	name, _ := decoded.Get("name")
	if s, _ := name.Str(); s != "Mialee" {
		t.Errorf("expected name Mialee, got %q", s)
	}
	level, _ := decoded.Get("level")
	if n, _ := level.Num(); n != 5 {
		t.Errorf("expected level 5, got %v", n)
	}
	feats, _ := decoded.Get("feats")
	if l, _ := feats.AsList(); len(l) != 2 {
		t.Errorf("expected 2 feats, got %d", len(l))
	}
}

func TestValueCloneIsolation(t *testing.T) {
	orig := Map(map[string]Value{"hp": Number(20)})
	clone := orig.Clone()

	m, _ := clone.AsMap()
	m["hp"] = Number(5)

	hp, _ := orig.Get("hp")
	if n, _ := hp.Num(); n != 20 {
		t.Errorf("clone mutation leaked into original: %v", n)
	}
}

func TestEntityClone(t *testing.T) {
	e := NewEntity("abc", "character", "Tordek")
	e.SetProp("abilities", Map(map[string]Value{"str": Number(15)}))

	clone := e.Clone()
	abilities, _ := clone.Prop("abilities")
	m, _ := abilities.AsMap()
	m["str"] = Number(3)

	origAbilities, _ := e.Prop("abilities")
	strVal, _ := origAbilities.Get("str")
	if n, _ := strVal.Num(); n != 15 {
		t.Errorf("entity clone shares property storage: %v", n)
	}
}
