package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestCompile(t *testing.T) {
	declared := []string{"OrderID", "CustomerID", "OrderDate", "Freight"}
	root := "https://services.odata.org/V2/Northwind/Northwind.svc"

	tests := []struct {
		name        string
		sel         Selection
		version     string
		wantURL     string
		wantDisplay string
	}{
		{
			name:        "bare entity set",
			sel:         Selection{EntitySet: "Orders"},
			version:     "2.0",
			wantURL:     root + "/Orders",
			wantDisplay: root + "/Orders",
		},
		{
			name:        "full selection omits select",
			sel:         Selection{EntitySet: "Orders", Select: []string{"Freight", "OrderID", "OrderDate", "CustomerID"}},
			version:     "2.0",
			wantURL:     root + "/Orders",
			wantDisplay: root + "/Orders",
		},
		{
			name:        "partial selection keeps selection order",
			sel:         Selection{EntitySet: "Orders", Select: []string{"OrderDate", "OrderID"}},
			version:     "2.0",
			wantURL:     root + "/Orders?$select=OrderDate%2COrderID",
			wantDisplay: root + "/Orders?$select=OrderDate,OrderID",
		},
		{
			name: "every clause legacy",
			sel: Selection{
				EntitySet:  "Orders",
				Select:     []string{"OrderID"},
				Expand:     []string{"Customer", "Order_Details"},
				Filter:     "Freight gt 10 and ShipCountry eq 'France'",
				OrderBy:    "OrderDate",
				Descending: true,
				Top:        intPtr(20),
				Skip:       intPtr(40),
				Count:      true,
			},
			version: "2.0",
			wantURL: root + "/Orders?$select=OrderID&$expand=Customer%2COrder_Details" +
				"&$filter=Freight%20gt%2010%20and%20ShipCountry%20eq%20%27France%27" +
				"&$orderby=OrderDate%20desc&$top=20&$skip=40&$inlinecount=allpages",
			wantDisplay: root + "/Orders?$select=OrderID&$expand=Customer,Order_Details" +
				"&$filter=Freight gt 10 and ShipCountry eq 'France'" +
				"&$orderby=OrderDate desc&$top=20&$skip=40&$inlinecount=allpages",
		},
		{
			name:        "modern count",
			sel:         Selection{EntitySet: "People", Count: true},
			version:     "4.0",
			wantURL:     root + "/People?$count=true",
			wantDisplay: root + "/People?$count=true",
		},
		{
			name:        "4.01 is modern",
			sel:         Selection{EntitySet: "People", Count: true},
			version:     "4.01",
			wantURL:     root + "/People?$count=true",
			wantDisplay: root + "/People?$count=true",
		},
		{
			name:        "orderby defaults to ascending",
			sel:         Selection{EntitySet: "Orders", OrderBy: "OrderID"},
			version:     "3.0",
			wantURL:     root + "/Orders?$orderby=OrderID%20asc",
			wantDisplay: root + "/Orders?$orderby=OrderID asc",
		},
		{
			name:        "zero top is emitted",
			sel:         Selection{EntitySet: "Orders", Top: intPtr(0)},
			version:     "3.0",
			wantURL:     root + "/Orders?$top=0",
			wantDisplay: root + "/Orders?$top=0",
		},
		{
			name:        "plus in filter survives display",
			sel:         Selection{EntitySet: "Orders", Filter: "Name eq 'a+b'"},
			version:     "4.0",
			wantURL:     root + "/Orders?$filter=Name%20eq%20%27a%2Bb%27",
			wantDisplay: root + "/Orders?$filter=Name eq 'a+b'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compile(root, tt.sel, declared, tt.version)
			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantDisplay, got.Display)
		})
	}
}

func TestCompile_SelectCount(t *testing.T) {
	declared := []string{"A", "B", "C", "D", "E"}

	for k := 1; k < len(declared); k++ {
		sel := Selection{EntitySet: "Things", Select: declared[len(declared)-k:]}
		got := Compile("https://host/svc", sel, declared, "4.0")

		_, query, found := strings.Cut(got.Display, "?$select=")
		assert.True(t, found)
		assert.Equal(t, sel.Select, strings.Split(query, ","))
	}
}

func TestCompile_CountParametersAreExclusive(t *testing.T) {
	for _, version := range []string{"1.0", "2.0", "3.0", "4.0", "4.01", ""} {
		got := Compile("https://host/svc", Selection{EntitySet: "Things", Count: true}, nil, version)

		hasCount := strings.Contains(got.URL, OptionCount+"=")
		hasInline := strings.Contains(got.URL, OptionInlineCount+"=")
		assert.True(t, hasCount != hasInline, "version %q: %s", version, got.URL)
	}
}

func TestCompile_UnknownDeclaredSetKeepsSelect(t *testing.T) {
	got := Compile("https://host/svc/", Selection{EntitySet: "Things", Select: []string{"A"}}, nil, "4.0")
	assert.Equal(t, "https://host/svc/Things?$select=A", got.URL)
}

func TestCompile_EscapesEntitySet(t *testing.T) {
	tests := []struct {
		set         string
		wantURL     string
		wantDisplay string
	}{
		{set: "Orders", wantURL: "https://host/svc/Orders", wantDisplay: "https://host/svc/Orders"},
		{set: "Order Details", wantURL: "https://host/svc/Order%20Details", wantDisplay: "https://host/svc/Order Details"},
		{set: "a/b?c", wantURL: "https://host/svc/a%2Fb%3Fc", wantDisplay: "https://host/svc/a/b?c"},
	}

	for _, tt := range tests {
		t.Run(tt.set, func(t *testing.T) {
			got := Compile("https://host/svc", Selection{EntitySet: tt.set}, nil, "4.0")
			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantDisplay, got.Display)
		})
	}
}

func TestCompile_DisplayFallsBackToRawURL(t *testing.T) {
	got := Compile("https://host/bad%zzroot", Selection{EntitySet: "Things"}, nil, "4.0")
	assert.Equal(t, "https://host/bad%zzroot/Things", got.URL)
	assert.Equal(t, got.URL, got.Display)
}
