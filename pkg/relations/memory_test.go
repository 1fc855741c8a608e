package relations_test

import (
	"strings"
	"testing"

	gc "gopkg.in/check.v1"

	"github.com/anthonybishopric/relgraph/pkg/relations"
	"github.com/anthonybishopric/relgraph/pkg/relations/relationstest"
)

var _ = gc.Suite(new(MemoryStoreTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type MemoryStoreTestSuite struct {
	relationstest.SuiteBase
}

func (s *MemoryStoreTestSuite) SetUpTest(c *gc.C) {
	s.SetStore(relations.NewMemoryStore())
}

func (s *MemoryStoreTestSuite) TestReadSeed(c *gc.C) {
	seed, err := relations.ReadSeed(strings.NewReader(`{
		"actors": [{"id": 1, "description": "mob"}, {"id": 2, "description": "sheriff"}],
		"actions": [{"id": 1, "description": "threat"}],
		"stories": [{"id": 5, "name": "Lynching of John Doe"}],
		"relations": [{"id": 1, "story_id": 5, "subject_id": 1, "action_id": 1, "object_id": 2}]
	}`))
	c.Assert(err, gc.IsNil)
	c.Assert(seed.Relations, gc.HasLen, 1)
	c.Assert(seed.Relations[0].Complete(), gc.Equals, true)
}

func (s *MemoryStoreTestSuite) TestReadSeedUnknownActor(c *gc.C) {
	_, err := relations.ReadSeed(strings.NewReader(`{
		"actors": [{"id": 1, "description": "mob"}],
		"actions": [{"id": 1, "description": "threat"}],
		"relations": [{"id": 1, "story_id": 5, "subject_id": 1, "action_id": 1, "object_id": 7}]
	}`))
	c.Assert(err, gc.ErrorMatches, "relation 1: unknown object 7: invalid seed")
}
