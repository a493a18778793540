package edmx

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tordrt/odataschema/internal/schema"
)

func parseFixture(t *testing.T, name string) *schema.Model {
	t.Helper()

	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)

	m, err := NewParser(zap.NewNop()).ParseBytes(data)
	require.NoError(t, err)
	return m
}

func findType(t *testing.T, m *schema.Model, name string) schema.EntityType {
	t.Helper()

	et, ok := m.EntityType(name)
	require.True(t, ok, "entity type %s not found", name)
	return et
}

func TestParse_LegacyDocument(t *testing.T) {
	m := parseFixture(t, "northwind_v2.xml")

	assert.Equal(t, "2.0", m.Version)
	assert.Equal(t, "NorthwindModel", m.Namespace)
	assert.False(t, m.IsModern())

	customer := findType(t, m, "Customer")
	assert.Equal(t, []string{"CustomerID"}, customer.Keys)
	assert.Equal(t, []string{"CustomerID", "CompanyName", "City"}, customer.PropertyNames())
	assert.False(t, customer.Properties["CustomerID"].Nullable)
	assert.True(t, customer.Properties["City"].Nullable)
	assert.Equal(t, "Collection(NorthwindModel.Order)", customer.Navigations["Orders"].Type)

	order := findType(t, m, "Order")
	assert.Equal(t, "NorthwindModel.Customer", order.Navigations["Customer"].Type)
	assert.Equal(t, "Collection(NorthwindModel.Order_Detail)", order.Navigations["Order_Details"].Type,
		"relationship without namespace resolves through the bare id")
	assert.NotContains(t, order.Navigations, "Shipper", "unknown association is dropped")
	assert.NotContains(t, order.Navigations, "Employee", "missing role is dropped")
	assert.Equal(t, []string{"Customer", "Order_Details"}, order.NavigationOrder)

	detail := findType(t, m, "Order_Detail")
	assert.Equal(t, []string{"OrderID", "ProductID"}, detail.Keys, "composite key order is preserved")
	assert.False(t, detail.Properties["Discount"].Nullable, "Nullable=False is not nullable")
}

func TestParse_LateBoundEntitySets(t *testing.T) {
	m := parseFixture(t, "northwind_v2.xml")

	want := []schema.EntitySet{
		{Name: "Orders", EntityType: "Order"},
		{Name: "Customers", EntityType: "Customer"},
		{Name: "Order_Details", EntityType: "Order_Detail"},
	}
	if diff := cmp.Diff(want, m.EntitySets); diff != "" {
		t.Errorf("entity sets mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ModernDocument(t *testing.T) {
	m := parseFixture(t, "trippin_v4.xml")

	assert.Equal(t, "4.0", m.Version)
	assert.Equal(t, "Trippin", m.Namespace)
	assert.True(t, m.IsModern())

	person := findType(t, m, "Person")
	want := []schema.NavigationProperty{
		{Name: "Friends", Type: "Collection(Trippin.Person)"},
		{Name: "BestFriend", Type: "Trippin.Person"},
		{Name: "Trips", Type: "Collection(Trippin.Trip)"},
	}
	if diff := cmp.Diff(want, person.OrderedNavigations()); diff != "" {
		t.Errorf("navigations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Collection(Edm.String)", person.Properties["Emails"].Type)

	employee := findType(t, m, "Employee")
	assert.Equal(t, "Person", employee.BaseType)
	assert.Empty(t, employee.Keys)

	assert.Equal(t, []schema.EntitySet{{Name: "People", EntityType: "Person"}}, m.EntitySets)
}

func TestParse_KeysAlwaysExistInProperties(t *testing.T) {
	doc := `<edmx:Edmx Version="4.0"><edmx:DataServices><Schema Namespace="N">
  <EntityType Name="T">
    <Key><PropertyRef Name="Missing" /><PropertyRef Name="ID" /></Key>
    <Property Name="ID" Type="Edm.Int32" Nullable="false" />
  </EntityType>
</Schema></edmx:DataServices></edmx:Edmx>`

	m, err := NewParser(nil).ParseBytes([]byte(doc))
	require.NoError(t, err)

	for _, fixture := range []*schema.Model{m, parseFixture(t, "northwind_v2.xml"), parseFixture(t, "trippin_v4.xml")} {
		for _, et := range fixture.EntityTypes {
			for _, key := range et.Keys {
				assert.Contains(t, et.Properties, key, "%s key %s", et.Name, key)
			}
		}
	}
	assert.Equal(t, []string{"ID"}, findType(t, m, "T").Keys)
}

func TestParse_InlineTypeWinsOverAssociation(t *testing.T) {
	doc := `<edmx:Edmx Version="1.0"><edmx:DataServices m:DataServiceVersion="3.0"><Schema Namespace="N">
  <EntityType Name="A">
    <Key><PropertyRef Name="ID" /></Key>
    <Property Name="ID" Type="Edm.Int32" />
    <NavigationProperty Name="Bs" Type="Collection(N.B)" Relationship="N.A_B" FromRole="A" ToRole="B" />
  </EntityType>
  <EntityType Name="B">
    <Key><PropertyRef Name="ID" /></Key>
    <Property Name="ID" Type="Edm.Int32" />
  </EntityType>
  <Association Name="A_B">
    <End Role="A" Type="N.A" Multiplicity="1" />
    <End Role="B" Type="N.Other" Multiplicity="1" />
  </Association>
</Schema></edmx:DataServices></edmx:Edmx>`

	m, err := NewParser(nil).ParseBytes([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "3.0", m.Version)
	assert.Equal(t, "Collection(N.B)", findType(t, m, "A").Navigations["Bs"].Type)
}

func TestParse_ModernNavigationWithoutTypeIsDropped(t *testing.T) {
	doc := `<edmx:Edmx Version="4.0"><edmx:DataServices><Schema Namespace="N">
  <EntityType Name="A">
    <Property Name="ID" Type="Edm.Int32" />
    <NavigationProperty Name="Bs" Relationship="N.A_B" ToRole="B" />
  </EntityType>
  <Association Name="A_B">
    <End Role="A" Type="N.A" Multiplicity="1" />
    <End Role="B" Type="N.B" Multiplicity="*" />
  </Association>
</Schema></edmx:DataServices></edmx:Edmx>`

	m, err := NewParser(nil).ParseBytes([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, findType(t, m, "A").Navigations)
}

func TestParse_PrefixedVocabulary(t *testing.T) {
	doc := `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx" xmlns:edm="http://docs.oasis-open.org/odata/ns/edm">
  <edmx:DataServices>
    <edm:Schema Namespace="P">
      <edm:EntityType Name="Item">
        <edm:Key><edm:PropertyRef Name="Id" /></edm:Key>
        <edm:Property Name="Id" Type="Edm.Guid" Nullable="false" />
      </edm:EntityType>
      <edm:EntityContainer Name="C">
        <edm:EntitySet Name="Items" EntityType="P.Item" />
      </edm:EntityContainer>
    </edm:Schema>
  </edmx:DataServices>
</edmx:Edmx>`

	m, err := NewParser(nil).ParseBytes([]byte(doc))
	require.NoError(t, err)

	item := findType(t, m, "Item")
	assert.Equal(t, []string{"Id"}, item.Keys)
	assert.Equal(t, []schema.EntitySet{{Name: "Items", EntityType: "Item"}}, m.EntitySets)
}

func TestParse_DuplicateTypesAndSets(t *testing.T) {
	doc := `<edmx:Edmx Version="4.0"><edmx:DataServices>
<Schema Namespace="First">
  <EntityType Name="Thing"><Property Name="A" Type="Edm.String" /></EntityType>
  <EntityContainer Name="C1"><EntitySet Name="Things" EntityType="First.Thing" /></EntityContainer>
</Schema>
<Schema Namespace="Second">
  <EntityType Name="Thing"><Property Name="B" Type="Edm.String" /></EntityType>
  <EntityType Name="Other"><Property Name="C" Type="Edm.String" /></EntityType>
  <EntityType><Property Name="Unnamed" Type="Edm.String" /></EntityType>
  <EntityContainer Name="C2"><EntitySet Name="Things" EntityType="Second.Thing" /></EntityContainer>
</Schema>
</edmx:DataServices></edmx:Edmx>`

	m, err := NewParser(nil).ParseBytes([]byte(doc))
	require.NoError(t, err)

	require.Len(t, m.EntityTypes, 2)
	assert.Equal(t, []string{"A"}, findType(t, m, "Thing").PropertyNames(), "first declaration wins")
	assert.Len(t, m.EntitySets, 2, "entity sets are not deduplicated by name")
	assert.Equal(t, "First", m.Namespace, "ties go to the first namespace")
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty document", doc: ""},
		{name: "not xml", doc: `{"value":[]}`},
		{name: "no Edmx root", doc: `<feed><entry/></feed>`},
		{name: "no schema blocks", doc: `<edmx:Edmx Version="4.0"><edmx:DataServices/></edmx:Edmx>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewParser(nil).ParseBytes([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, m)

			var serr *StructuralError
			assert.True(t, errors.As(err, &serr))
			assert.ErrorIs(t, err, ErrStructural)
		})
	}
}

func TestParse_SchemaWithoutTypes(t *testing.T) {
	m, err := NewParser(nil).ParseBytes([]byte(`<Edmx Version="4.0"><DataServices><Schema Namespace="Empty"/></DataServices></Edmx>`))
	require.NoError(t, err)

	assert.Empty(t, m.EntityTypes)
	assert.Empty(t, m.EntitySets)
	assert.Equal(t, "Empty", m.Namespace)
}
