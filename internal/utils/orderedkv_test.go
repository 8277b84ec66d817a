package utils

import (
	"encoding/json"
	"testing"
)

func TestOrderedKVMapKeepsDocumentOrder(t *testing.T) {
	var om OrderedKVMap[int]
	err := json.Unmarshal([]byte(`{"zeta":1,"alpha":2,"mid":3}`), &om)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	keys := om.Keys()
	if len(keys) != 3 || keys[0] != "zeta" || keys[1] != "alpha" || keys[2] != "mid" {
		t.Fatalf("unexpected order %v", keys)
	}

	out, err := json.Marshal(om)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"zeta":1,"alpha":2,"mid":3}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestOrderedKVMapRejectsArray(t *testing.T) {
	var om OrderedKVMap[int]
	if err := json.Unmarshal([]byte(`[1,2]`), &om); err == nil {
		t.Fatalf("expected error for array input")
	}
}
