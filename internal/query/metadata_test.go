package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://host/service.svc/Orders", "https://host/service.svc/$metadata"},
		{"https://host/service.svc", "https://host/service.svc/$metadata"},
		{"https://host/service.svc/", "https://host/service.svc/$metadata"},
		{"https://host/service/", "https://host/service/$metadata"},
		{"https://host/service", "https://host/service/$metadata"},
		{"https://host/service.svc/$metadata", "https://host/service.svc/$metadata"},
		{"https://host/odata/$metadata", "https://host/odata/$metadata"},
		{"https://host/service.svc/Orders?$top=5", "https://host/service.svc/$metadata"},
		{"https://host/odata/People?$count=true", "https://host/odata/People/$metadata"},
		{"https://my.svchost.example/api/data.svc/Things", "https://my.svchost.example/api/data.svc/$metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MetadataURL(tt.in))
		})
	}
}

func TestServiceRoot(t *testing.T) {
	assert.Equal(t, "https://host/service.svc", ServiceRoot("https://host/service.svc/Orders"))
	assert.Equal(t, "https://host/odata", ServiceRoot("https://host/odata/$metadata"))
	assert.Equal(t, "https://host/odata", ServiceRoot("https://host/odata/"))
}
