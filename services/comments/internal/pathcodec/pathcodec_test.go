package pathcodec_test

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/comment-tree/services/comments/internal/pathcodec"
)

func TestFromChain_RoundTrip(t *testing.T) {
	t.Parallel()

	chains := [][]string{
		{"r"},
		{"r", uuid.NewString()},
		{uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()},
	}
	for _, chain := range chains {
		path := pathcodec.FromChain(chain...)
		assert.Equal(t, chain, pathcodec.Split(path))
	}
}

func TestFromChain_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", pathcodec.FromChain())
	assert.Nil(t, pathcodec.Split(""))
}

func TestAppend(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "c1", pathcodec.Append("", "c1"))
	assert.Equal(t, "r->c1", pathcodec.Append("r", "c1"))
	assert.Equal(t, "r->c1->c2", pathcodec.Append(pathcodec.Append("r", "c1"), "c2"))
}

func TestDepth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, pathcodec.Depth("r"))
	assert.Equal(t, 0, pathcodec.Depth("r->c1"))
	assert.Equal(t, 2, pathcodec.Depth("r->c1->c2->c3"))
	assert.Equal(t, 4, pathcodec.Segments("r->c1->c2->c3"))
}

func TestIsDescendantOrSelf(t *testing.T) {
	t.Parallel()

	assert.True(t, pathcodec.IsDescendantOrSelf("r->a", "r->a"))
	assert.True(t, pathcodec.IsDescendantOrSelf("r->a->b->c", "r->a"))
	assert.False(t, pathcodec.IsDescendantOrSelf("r->ab", "r->a"))
	assert.False(t, pathcodec.IsDescendantOrSelf("r10->a", "r1"))
	assert.False(t, pathcodec.IsDescendantOrSelf("r->a", ""))
}

func TestChildPattern(t *testing.T) {
	t.Parallel()

	parent := pathcodec.FromChain("res", uuid.NewString())
	child := pathcodec.Append(parent, uuid.NewString())
	grandchild := pathcodec.Append(child, uuid.NewString())

	re := regexp.MustCompile(pathcodec.ChildPattern(parent))
	assert.True(t, re.MatchString(child))
	assert.False(t, re.MatchString(grandchild))
	assert.False(t, re.MatchString(parent))
	assert.False(t, re.MatchString(pathcodec.Append(parent, "not-a-uuid")))

	assert.True(t, pathcodec.IsChild(child, parent))
	assert.False(t, pathcodec.IsChild(grandchild, parent))
}

func TestChildPattern_QuotesMetacharacters(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	re := regexp.MustCompile(pathcodec.ChildPattern("a.b"))
	assert.True(t, re.MatchString("a.b->"+id))
	assert.False(t, re.MatchString("axb->"+id))
}

func TestSubtreePattern(t *testing.T) {
	t.Parallel()

	re, err := regexp.Compile(pathcodec.SubtreePattern("r->a"))
	require.NoError(t, err)

	assert.True(t, re.MatchString("r->a"))
	assert.True(t, re.MatchString("r->a->b"))
	assert.False(t, re.MatchString("r->ab"))
	assert.False(t, re.MatchString("r->b"))
}

func TestValidSegment(t *testing.T) {
	t.Parallel()

	assert.True(t, pathcodec.ValidSegment(uuid.NewString()))
	assert.False(t, pathcodec.ValidSegment(""))
	assert.False(t, pathcodec.ValidSegment("a->b"))
}
