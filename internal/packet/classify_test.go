package packet

import "testing"

// frame returns a zeroed frame of length n with the given bytes set.
func frame(n int, set map[int]byte) []byte {
	data := make([]byte, n)
	for pos, v := range set {
		data[pos] = v
	}
	return data
}

func TestClassify_GeniusTable(t *testing.T) {
	table := GeniusTable()

	tests := []struct {
		name string
		data []byte
		want string // empty means no match
	}{
		{"commissioning", frame(37, nil), NameCommissioning},
		{"discovery request", frame(28, nil), NameDiscoveryRequest},
		{"discovery response", frame(32, nil), NameDiscoveryResponse},
		{"start line test", frame(29, map[int]byte{28: 0x06}), NameStartLineTest},
		{"stop line test", frame(29, nil), NameStopLineTest},
		{"line test with unknown flag", frame(29, map[int]byte{28: 0x05}), ""},
		{"start alarm", frame(36, map[int]byte{28: 0x01}), NameStartAlarm},
		{"stop alarm", frame(36, map[int]byte{30: 0x01}), NameStopAlarm},
		{"both alarm flags prefer start", frame(36, map[int]byte{28: 0x01, 30: 0x01}), NameStartAlarm},
		{"alarm length without flags", frame(36, nil), ""},
		{"unknown length", frame(35, nil), ""},
		{"empty frame", []byte{}, ""},
		{"nil frame", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Classify(tt.data, table)
			if tt.want == "" {
				if ok || d != nil {
					t.Errorf("Classify() = %v, %v; want no match", d, ok)
				}
				return
			}
			if !ok {
				t.Fatalf("Classify() found no match, want %q", tt.want)
			}
			if d.Name != tt.want {
				t.Errorf("Classify() = %q, want %q", d.Name, tt.want)
			}
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	table := Table{
		{Name: "generic", Length: 4},
		{Name: "specific", Length: 4, Identifiers: []Identifier{{Offset: 0, Value: 0xAA}}},
	}

	d, ok := Classify([]byte{0xAA, 0, 0, 0}, table)
	if !ok || d.Name != "generic" {
		t.Errorf("Classify() = %v, want generic", d)
	}
	if d != &table[0] {
		t.Error("Classify() should return a reference into the table")
	}
}

func TestClassify_OutOfRangeIdentifier(t *testing.T) {
	table := Table{
		{Name: "negative", Length: 4, Identifiers: []Identifier{{Offset: -1, Value: 0}}},
		{Name: "beyond", Length: 4, Identifiers: []Identifier{{Offset: 4, Value: 0}}},
	}

	if d, ok := Classify(make([]byte, 4), table); ok {
		t.Errorf("Classify() = %v, want no match", d)
	}
}

func TestClassify_EmptyTable(t *testing.T) {
	if _, ok := Classify(frame(36, map[int]byte{28: 1}), nil); ok {
		t.Error("Classify() with an empty table should not match")
	}
}

func TestGeniusTable_Fresh(t *testing.T) {
	a := GeniusTable()
	a[0].Length = 1

	if b := GeniusTable(); b[0].Length != LenCommissioning {
		t.Error("GeniusTable() returned shared state")
	}
}

func TestTable_Find(t *testing.T) {
	table := GeniusTable()

	d, ok := table.Find(NameStopAlarm)
	if !ok || d.Kind != KindAlarmStop {
		t.Errorf("Find(%q) = %v, %v", NameStopAlarm, d, ok)
	}
	if _, ok := table.Find("Nope"); ok {
		t.Error("Find() matched an unknown name")
	}
}
