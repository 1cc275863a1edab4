package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"", "."},
		{".", "."},
		{"file", "file"},
		{"dir/file", "file"},
		{"dir/sub/", "sub"},
		{`C:\game\data.unity3d`, "data.unity3d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Base(tt.path), tt.path)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cab-1234.ress", Key("archive:/CAB-1234/CAB-1234.resS"))
	assert.Equal(t, "sharedassets0.assets", Key("SharedAssets0.assets"))
	assert.Equal(t, "unity default resources", Key("library/unity default resources"))
	assert.Equal(t, Key("archive:/CAB-1/CAB-1"), Key("cab-1"))
}

func TestIsResource(t *testing.T) {
	t.Parallel()

	assert.True(t, IsResource("CAB-1.resS"))
	assert.True(t, IsResource("level0.resource"))
	assert.False(t, IsResource("level0"))
	assert.False(t, IsResource("data.assets"))
}

func TestContainsFold(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsFold("Assets/Chars/Hero.png", "chars/hero"))
	assert.True(t, ContainsFold("anything", ""))
	assert.False(t, ContainsFold("hero", "villain"))
}
