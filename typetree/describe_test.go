package typetree

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/assetkit/internal/asseterr"
)

type fakeSubject struct {
	sig      Signature
	embedded *Node
	script   ClassIdentity
	hasID    bool
}

func (s fakeSubject) Signature() Signature                  { return s.sig }
func (s fakeSubject) EmbeddedType() *Node                   { return s.embedded }
func (s fakeSubject) ScriptIdentity() (ClassIdentity, bool) { return s.script, s.hasID }

type countingSource struct {
	*FileSource
	lookups atomic.Int64
}

func (c *countingSource) Lookup(id ClassIdentity) (*Node, bool) {
	c.lookups.Add(1)
	return c.FileSource.Lookup(id)
}

func loadedSource(t *testing.T) *countingSource {
	t.Helper()
	src := &countingSource{FileSource: NewFileSource()}
	require.NoError(t, src.LoadBytes([]byte(sampleDefinitions)))
	return src
}

func TestDescribeEmbeddedFirst(t *testing.T) {
	t.Parallel()

	src := loadedSource(t)
	d := NewDescriber(src)
	embedded := sampleTree()
	got, err := d.Describe(fakeSubject{
		sig:      Signature{ClassID: 114},
		embedded: embedded,
		script:   ClassIdentity{Namespace: "Game", Class: "Stats"},
		hasID:    true,
	})
	require.NoError(t, err)
	assert.Same(t, embedded, got)
	assert.Equal(t, int64(0), src.lookups.Load())
}

func TestDescribeExternalSource(t *testing.T) {
	t.Parallel()

	d := NewDescriber(loadedSource(t))
	got, err := d.Describe(fakeSubject{
		sig:    Signature{ClassID: 114, ScriptTypeIndex: 0},
		script: ClassIdentity{Assembly: "Assembly-CSharp", Namespace: "Game", Class: "Stats"},
		hasID:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "MonoBehaviour", got.Type)

	names := make([]string, 0, len(got.Children))
	for _, c := range got.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"m_GameObject", "m_Enabled", "m_Script", "m_Name", "hp", "alive", "tags", "owner", "origin", "child"}, names)
	assert.True(t, got.Children[1].Aligned())
}

func TestDescribeUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  Source
		subject fakeSubject
	}{
		{
			name:    "no script identity",
			source:  loadedSource(t),
			subject: fakeSubject{sig: Signature{ClassID: 28}},
		},
		{
			name:    "source not loaded",
			source:  NewFileSource(),
			subject: fakeSubject{sig: Signature{ClassID: 114}, script: ClassIdentity{Class: "Stats"}, hasID: true},
		},
		{
			name:    "nil source",
			subject: fakeSubject{sig: Signature{ClassID: 114}, script: ClassIdentity{Class: "Stats"}, hasID: true},
		},
		{
			name:    "class not in source",
			source:  loadedSource(t),
			subject: fakeSubject{sig: Signature{ClassID: 114}, script: ClassIdentity{Class: "Nope"}, hasID: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewDescriber(tt.source).Describe(tt.subject)
			assert.ErrorIs(t, err, asseterr.ErrSchemaUnavailable)
		})
	}
}

func TestDescribeConcurrent(t *testing.T) {
	t.Parallel()

	src := loadedSource(t)
	d := NewDescriber(src)
	subject := fakeSubject{
		sig:    Signature{ClassID: 114, Script: ClassIdentity{Namespace: "Game", Class: "Stats"}},
		script: ClassIdentity{Namespace: "Game", Class: "Stats"},
		hasID:  true,
	}

	const n = 16
	results := make([]*Node, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			node, err := d.Describe(subject)
			assert.NoError(t, err)
			results[i] = node
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), d.Cache().Derivations())
	assert.Equal(t, int64(1), src.lookups.Load())
	for i := range results {
		assert.Same(t, results[0], results[i])
	}
}
