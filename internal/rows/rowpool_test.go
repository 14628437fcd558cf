package rows

import "testing"

func TestGetClearsReusedRows(t *testing.T) {
	r := Get(3)
	r.V[0], r.V[1], r.V[2] = "a", "b", "c"
	r.Line = 42
	r.Free()

	r2 := Get(2)
	if len(r2.V) != 2 {
		t.Fatalf("len = %d, want 2", len(r2.V))
	}
	for i, v := range r2.V {
		if v != "" {
			t.Errorf("V[%d] = %q, want cleared", i, v)
		}
	}
	if r2.Line != 0 {
		t.Errorf("Line = %d, want 0", r2.Line)
	}
}

func TestGetGrowsCapacity(t *testing.T) {
	r := Get(1)
	r.Free()
	r2 := Get(16)
	if len(r2.V) != 16 {
		t.Fatalf("len = %d, want 16", len(r2.V))
	}
}

func TestDropDetaches(t *testing.T) {
	r := Get(2)
	r.V[0] = "x"
	r.Drop()
	if r.V != nil || r.Line != 0 {
		t.Fatalf("dropped row = %+v", r)
	}
}
