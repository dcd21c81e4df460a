package signing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStamp_Render(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	st, err := NewStamp("{{{name}}}\n{{{email}}}\n{{{timestamp}}}", loc)
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
	got, err := st.Render(Identity{Name: "O'Brien & Co", Email: "ob@example.com"}, at)
	require.NoError(t, err)
	assert.Equal(t, "O'Brien & Co\nob@example.com\n2025-03-01 09:30:00 WIB", got)
}

func TestNewStamp_Invalid(t *testing.T) {
	_, err := NewStamp("{{#name}}", nil)
	assert.Error(t, err)
}

func TestArtifactKey(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	key := ArtifactKey("abc", 3, at)
	assert.Regexp(t, `^sessions/abc/v0003_20250102_030405_[0-9a-f]{8}\.pdf$`, key)
	assert.NotEqual(t, key, ArtifactKey("abc", 3, at))
	assert.Less(t, ArtifactKey("abc", 9, at), ArtifactKey("abc", 10, at))
	assert.Regexp(t, `^sessions/abc/v10000_20250102_030405_[0-9a-f]{8}\.pdf$`, ArtifactKey("abc", 10000, at))
}

func TestFieldName(t *testing.T) {
	assert.Equal(t, "alice_example_com_sig_0", FieldName("alice@example.com", 0))
	assert.Equal(t, "a_b_c_d_sig_2", FieldName("a.b@c.d", 2))
}
