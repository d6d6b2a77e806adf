package specs

import (
	"encoding/json"
	"testing"
)

func TestExtract_schemaComplete(t *testing.T) {
	queries := []string{
		"",
		"16gb ram dell laptop",
		"$$$ 12.5 ??? ---",
		"large storage gaming ultrabook with nvidia and touch screen ips",
		"日本語のクエリ",
	}
	for _, q := range queries {
		s := Extract(q)
		cs := s.Constraints()
		if len(cs) != len(Keys) {
			t.Fatalf("Extract(%q): %d constraints, want %d", q, len(cs), len(Keys))
		}
		for i, c := range cs {
			if c.Key != Keys[i] {
				t.Errorf("constraint %d key = %s, want %s", i, c.Key, Keys[i])
			}
		}
		var m map[string]any
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		for _, k := range Keys {
			if _, ok := m[k]; !ok {
				t.Errorf("Extract(%q): JSON missing key %s", q, k)
			}
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		query string
		want  map[string]string
	}{
		{"16gb ram dell laptop", map[string]string{KeyRam: "16", KeyCompany: "Dell"}},
		{"gaming laptop", map[string]string{KeyTypeName: "Gaming"}},
		{"8 GB RAM 512gb ssd 1000 gb hdd", map[string]string{KeyRam: "8", KeySSD: "512", KeyHDD: "1000"}},
		{"NVIDIA card with Windows", map[string]string{KeyGpuBrand: "Nvidia", KeyOs: "Windows"}},
		{"chrome os netbook", map[string]string{KeyOs: "Chrome os", KeyTypeName: "Netbook"}},
		{"2 in 1 convertible touch screen", map[string]string{KeyTypeName: "2 in 1 convertible", KeyTouchScreen: "true"}},
		{"ips display", map[string]string{KeyIps: "true"}},
		{"core i7 laptop", map[string]string{KeyCpuBrand: "Intel Core i7"}},
		{"ryzen 5 build", map[string]string{KeyCpuBrand: "AMD Processor"}},
		{"i5 or i7", map[string]string{KeyCpuBrand: "Intel Core i7"}},
		{"some intel chip", map[string]string{KeyCpuBrand: "Other Intel Processor", KeyGpuBrand: "Intel"}},
		{"amd build", map[string]string{KeyCpuBrand: "AMD Processor", KeyGpuBrand: "Amd"}},
		{"hp or dell", map[string]string{KeyCompany: "Hp"}},
		{"big storage", map[string]string{KeyMinTotalStorage: "700"}},
		{"small storage", map[string]string{KeyMaxTotalStorage: "500"}},
		{"large and small storage", map[string]string{KeyMinTotalStorage: "700"}},
		{"a large laptop", map[string]string{}},
		{"16gb ram 8gb ram", map[string]string{KeyRam: "16"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s := Extract(tt.query)
			for _, c := range s.Constraints() {
				want, ok := tt.want[c.Key]
				if ok != c.Present {
					t.Errorf("%s present = %v, want %v (value %q)", c.Key, c.Present, ok, c.Value)
					continue
				}
				if ok && c.Value != want {
					t.Errorf("%s = %q, want %q", c.Key, c.Value, want)
				}
			}
		})
	}
}

func TestExtract_deterministic(t *testing.T) {
	q := "Lenovo gaming notebook with 16GB RAM and nvidia"
	a, _ := json.Marshal(Extract(q))
	b, _ := json.Marshal(Extract(q))
	if string(a) != string(b) {
		t.Errorf("non-deterministic: %s vs %s", a, b)
	}
}

func TestQuerySpecs_Equality(t *testing.T) {
	s := Extract("large storage 16gb ram dell")
	eq := s.Equality()
	if len(eq) != 2 {
		t.Fatalf("Equality() = %+v, want Ram and Company", eq)
	}
	if eq[0].Key != KeyRam || eq[1].Key != KeyCompany {
		t.Errorf("Equality() order = %s, %s", eq[0].Key, eq[1].Key)
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
}

func TestQuerySpecs_Map(t *testing.T) {
	m := Extract("dell touchscreen").Map()
	if len(m) != len(Keys) {
		t.Fatalf("Map() has %d keys, want %d", len(m), len(Keys))
	}
	if m[KeyCompany] != "Dell" {
		t.Errorf("Company = %v", m[KeyCompany])
	}
	if m[KeyTouchScreen] != true {
		t.Errorf("TouchScreen = %v", m[KeyTouchScreen])
	}
	if m[KeyRam] != nil {
		t.Errorf("Ram = %v, want nil", m[KeyRam])
	}
}
