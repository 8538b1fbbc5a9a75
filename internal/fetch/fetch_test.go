package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCS(t *testing.T) {
	tests := []struct {
		in             string
		bucket, object string
		ok             bool
	}{
		{"gs://exports/2024/members.csv", "exports", "2024/members.csv", true},
		{"gs://exports/members.xlsx", "exports", "members.xlsx", true},
		{"gs://exports", "", "", false},
		{"gs://exports/", "", "", false},
		{"gs:///members.csv", "", "", false},
		{"/data/members.csv", "", "", false},
		{"s3://bucket/key", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, object, ok := ParseGCS(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.object, object)
		})
	}
}

func TestOpener_OpenLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))

	o := New("")
	defer o.Close()

	rc, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestOpener_OpenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accessibility.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("salesforce_advice_location_id,advice_location_accessibility\nO1,Ramp\n"), 0o600))

	r, err := New("").OpenSource(context.Background(), "accessibility", path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "accessibility", r.Name())
	assert.Equal(t, []string{"salesforce_advice_location_id", "advice_location_accessibility"}, r.Header())

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "Ramp", row.Get("advice_location_accessibility"))
}

func TestOpener_Errors(t *testing.T) {
	o := New("")

	_, err := o.Open(context.Background(), "")
	assert.Error(t, err)

	_, err = o.Open(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = o.Open(context.Background(), "gs://bucket-only")
	assert.ErrorContains(t, err, "invalid storage location")

	_, err = New(filepath.Join(t.TempDir(), "no-such-key.json")).Open(context.Background(), "gs://b/o.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, err = o.OpenSource(context.Background(), "members", path)
	assert.ErrorContains(t, err, "empty file")
}
