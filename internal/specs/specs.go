// Package specs extracts structured laptop attribute constraints from free-text queries.
package specs

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// Keys of QuerySpecs, in schema order.
const (
	KeyRam             = "Ram"
	KeySSD             = "SSD"
	KeyHDD             = "HDD"
	KeyCompany         = "Company"
	KeyTypeName        = "TypeName"
	KeyCpuBrand        = "Cpu_brand"
	KeyGpuBrand        = "Gpu_brand"
	KeyOs              = "Os"
	KeyTouchScreen     = "TouchScreen"
	KeyIps             = "Ips"
	KeyMinTotalStorage = "min_total_storage"
	KeyMaxTotalStorage = "max_total_storage"
)

// Keys lists every QuerySpecs key in schema order.
var Keys = []string{
	KeyRam, KeySSD, KeyHDD, KeyCompany, KeyTypeName, KeyCpuBrand, KeyGpuBrand,
	KeyOs, KeyTouchScreen, KeyIps, KeyMinTotalStorage, KeyMaxTotalStorage,
}

// MaxStorageGB is the reference capacity for "large/small storage" qualifiers.
const MaxStorageGB = 1000

// QuerySpecs holds the attribute constraints found in one query. Nil fields are absent.
type QuerySpecs struct {
	Ram             *string `json:"Ram"`
	SSD             *string `json:"SSD"`
	HDD             *string `json:"HDD"`
	Company         *string `json:"Company"`
	TypeName        *string `json:"TypeName"`
	CpuBrand        *string `json:"Cpu_brand"`
	GpuBrand        *string `json:"Gpu_brand"`
	Os              *string `json:"Os"`
	TouchScreen     *bool   `json:"TouchScreen"`
	Ips             *bool   `json:"Ips"`
	MinTotalStorage *int    `json:"min_total_storage"`
	MaxTotalStorage *int    `json:"max_total_storage"`
}

// Constraint is one key of a QuerySpecs with its string form.
type Constraint struct {
	Key     string
	Value   string
	Present bool
}

// Constraints returns every key in schema order; absent keys have Present false.
func (s *QuerySpecs) Constraints() []Constraint {
	out := make([]Constraint, 0, len(Keys))
	for _, k := range Keys {
		v, ok := s.Get(k)
		out = append(out, Constraint{Key: k, Value: v, Present: ok})
	}
	return out
}

// Equality returns the present equality constraints, i.e. everything except the
// total storage bounds, in schema order.
func (s *QuerySpecs) Equality() []Constraint {
	var out []Constraint
	for _, c := range s.Constraints() {
		if !c.Present || c.Key == KeyMinTotalStorage || c.Key == KeyMaxTotalStorage {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Get returns the string form of a key ("true" for booleans, digits for numbers).
func (s *QuerySpecs) Get(key string) (string, bool) {
	str := func(p *string) (string, bool) {
		if p == nil {
			return "", false
		}
		return *p, true
	}
	switch key {
	case KeyRam:
		return str(s.Ram)
	case KeySSD:
		return str(s.SSD)
	case KeyHDD:
		return str(s.HDD)
	case KeyCompany:
		return str(s.Company)
	case KeyTypeName:
		return str(s.TypeName)
	case KeyCpuBrand:
		return str(s.CpuBrand)
	case KeyGpuBrand:
		return str(s.GpuBrand)
	case KeyOs:
		return str(s.Os)
	case KeyTouchScreen:
		if s.TouchScreen == nil {
			return "", false
		}
		return strconv.FormatBool(*s.TouchScreen), true
	case KeyIps:
		if s.Ips == nil {
			return "", false
		}
		return strconv.FormatBool(*s.Ips), true
	case KeyMinTotalStorage:
		if s.MinTotalStorage == nil {
			return "", false
		}
		return strconv.Itoa(*s.MinTotalStorage), true
	case KeyMaxTotalStorage:
		if s.MaxTotalStorage == nil {
			return "", false
		}
		return strconv.Itoa(*s.MaxTotalStorage), true
	}
	return "", false
}

// Count returns the number of present keys.
func (s *QuerySpecs) Count() int {
	n := 0
	for _, c := range s.Constraints() {
		if c.Present {
			n++
		}
	}
	return n
}

// Map returns the specs as a JSON-ready map with nil for absent keys.
func (s *QuerySpecs) Map() map[string]any {
	var m map[string]any
	data, _ := json.Marshal(s)
	_ = json.Unmarshal(data, &m)
	return m
}

type keywordRule struct {
	key      string
	keywords []string
}

var keywordRules = []keywordRule{
	{KeyTypeName, []string{"gaming", "ultrabook", "notebook", "2 in 1 convertible", "workstation", "netbook"}},
	{KeyGpuBrand, []string{"nvidia", "amd", "intel"}},
	{KeyOs, []string{"windows", "mac", "linux", "chrome os"}},
	{KeyTouchScreen, []string{"touchscreen", "touch screen"}},
	{KeyIps, []string{"ips"}},
}

var (
	ramRe = regexp.MustCompile(`(\d+)\s*gb\s*ram`)
	ssdRe = regexp.MustCompile(`(\d+)\s*gb\s*ssd`)
	hddRe = regexp.MustCompile(`(\d+)\s*gb\s*hdd`)
)

var brands = []string{"hp", "dell", "lenovo", "asus", "acer", "apple", "msi"}

var cpuRules = []struct{ keyword, value string }{
	{"core i7", "Intel Core i7"},
	{"i7", "Intel Core i7"},
	{"core i5", "Intel Core i5"},
	{"i5", "Intel Core i5"},
	{"core i3", "Intel Core i3"},
	{"i3", "Intel Core i3"},
	{"ryzen 7", "AMD Processor"},
	{"ryzen 5", "AMD Processor"},
}

// Extract parses query into QuerySpecs. Matching is case-insensitive substring or regex
// based, each attribute independent of the others. It never fails.
func Extract(query string) *QuerySpecs {
	q := strings.ToLower(query)
	s := &QuerySpecs{}

	for _, rule := range keywordRules {
		kw, ok := firstKeyword(q, rule.keywords)
		if !ok {
			continue
		}
		switch rule.key {
		case KeyTouchScreen:
			s.TouchScreen = boolPtr(true)
		case KeyIps:
			s.Ips = boolPtr(true)
		case KeyTypeName:
			s.TypeName = strPtr(utils.Capitalize(kw))
		case KeyGpuBrand:
			s.GpuBrand = strPtr(utils.Capitalize(kw))
		case KeyOs:
			s.Os = strPtr(utils.Capitalize(kw))
		}
	}

	if strings.Contains(q, "storage") {
		if strings.Contains(q, "large") || strings.Contains(q, "big") {
			v := MaxStorageGB * 7 / 10
			s.MinTotalStorage = &v
		} else if strings.Contains(q, "small") || strings.Contains(q, "low") {
			v := MaxStorageGB * 5 / 10
			s.MaxTotalStorage = &v
		}
	}

	s.Ram = firstGroup(ramRe, q)
	s.SSD = firstGroup(ssdRe, q)
	s.HDD = firstGroup(hddRe, q)

	if b, ok := firstKeyword(q, brands); ok {
		s.Company = strPtr(utils.Capitalize(b))
	}

	for _, r := range cpuRules {
		if strings.Contains(q, r.keyword) {
			s.CpuBrand = strPtr(r.value)
			break
		}
	}
	if s.CpuBrand == nil {
		if strings.Contains(q, "intel") {
			s.CpuBrand = strPtr("Other Intel Processor")
		} else if strings.Contains(q, "amd") {
			s.CpuBrand = strPtr("AMD Processor")
		}
	}

	return s
}

// firstKeyword returns the first keyword, in list order, contained in q.
func firstKeyword(q string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return kw, true
		}
	}
	return "", false
}

func firstGroup(re *regexp.Regexp, q string) *string {
	m := re.FindStringSubmatch(q)
	if m == nil {
		return nil
	}
	return strPtr(m[1])
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
