package storage

import (
	"testing"

	"github.com/andresuchdata/seller-analytics/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"minio:9000", false, "minio:9000", false},
		{"//storage.example.com", true, "storage.example.com", true},
	}

	for _, tt := range tests {
		host, secure := splitEndpoint(tt.endpoint, tt.useSSL)
		assert.Equal(t, tt.wantHost, host, tt.endpoint)
		assert.Equal(t, tt.wantSecure, secure, tt.endpoint)
	}
}

func TestNewMinioClient_RequiresSettings(t *testing.T) {
	_, err := NewMinioClient(config.StorageConfig{})
	assert.Error(t, err)

	_, err = NewMinioClient(config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)

	c, err := NewMinioClient(config.StorageConfig{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "datasets"})
	require.NoError(t, err)
	assert.Equal(t, "datasets", c.bucket)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("datasets/q1.JSON"))
	assert.Equal(t, "text/csv", contentType("reports/q1.csv"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
