// Package relationstest provides a test suite shared by the relations
// store implementations.
package relationstest

import (
	"context"

	gc "gopkg.in/check.v1"

	"github.com/anthonybishopric/relgraph/pkg/relations"
)

// Store is a store that can be seeded and imported into.
type Store interface {
	relations.Store
	relations.Loader
	relations.Importer
}

// Fixture returns a small data set: three actors with relations, one
// without, three actions and one relation with no action coded.
func Fixture() *relations.Seed {
	return &relations.Seed{
		Actors: []relations.Actor{
			{ID: 1, Description: "police"},
			{ID: 2, Description: "citizens"},
			{ID: 3, Description: "crowd"},
			{ID: 4, Description: "bystanders"},
		},
		Actions: []relations.Action{
			{ID: 1, Description: "violence against people"},
			{ID: 2, Description: "threat"},
			{ID: 3, Description: "surrender"},
		},
		Stories: []relations.Story{
			{ID: 1, Name: "Lynching of Sam Hose, Newnan 1899"},
			{ID: 2, Name: "Lynching of Leo Frank, Marietta 1915"},
			{ID: 3, Name: "Lynching of Mary Turner, Valdosta 1918", URL: "/stories/turner/"},
		},
		Relations: []relations.Relation{
			{ID: 1, StoryID: 1, SubjectID: 1, ActionID: 1, ObjectID: 2},
			{ID: 2, StoryID: 2, SubjectID: 1, ActionID: 1, ObjectID: 2},
			{ID: 3, StoryID: 2, SubjectID: 3, ActionID: 1, ObjectID: 2},
			{ID: 4, StoryID: 1, SubjectID: 2, ActionID: 2, ObjectID: 3},
			{ID: 5, StoryID: 3, SubjectID: 2, ActionID: 2, ObjectID: 3},
			{ID: 6, StoryID: 2, SubjectID: 3, ActionID: 3, ObjectID: 2},
			{ID: 7, StoryID: 3, SubjectID: 4, ObjectID: 1},
		},
	}
}

// SuiteBase defines a re-usable set of store tests.
type SuiteBase struct {
	store Store
}

// SetStore configures the suite to run against s.
func (b *SuiteBase) SetStore(s Store) {
	b.store = s
}

// Store returns the store under test.
func (b *SuiteBase) Store() Store {
	return b.store
}

func (b *SuiteBase) load(c *gc.C) {
	c.Assert(b.store.Load(context.TODO(), Fixture()), gc.IsNil)
}

// TestActorsOrdered verifies that actors come back ordered by id.
func (b *SuiteBase) TestActorsOrdered(c *gc.C) {
	b.load(c)
	actors, err := b.store.Actors(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(actors, gc.HasLen, 4)
	for i, a := range actors {
		c.Assert(a.ID, gc.Equals, int64(i+1))
	}
	c.Assert(actors[2].Description, gc.Equals, "crowd")
}

// TestActions verifies action lookup.
func (b *SuiteBase) TestActions(c *gc.C) {
	b.load(c)
	actions, err := b.store.Actions(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(actions, gc.HasLen, 3)
	c.Assert(actions[1].Description, gc.Equals, "threat")
}

// TestRelationsSkipIncomplete verifies that relations missing a subject,
// action or object are never returned.
func (b *SuiteBase) TestRelationsSkipIncomplete(c *gc.C) {
	b.load(c)
	rels, err := b.store.Relations(context.TODO(), relations.Filter{})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 6)
	for _, r := range rels {
		c.Assert(r.Complete(), gc.Equals, true)
	}
}

// TestRelationsFiltered verifies action and participant filtering.
func (b *SuiteBase) TestRelationsFiltered(c *gc.C) {
	b.load(c)
	rels, err := b.store.Relations(context.TODO(), relations.Filter{ActionID: 1})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 3)

	rels, err = b.store.Relations(context.TODO(), relations.Filter{Participant: 3})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 4)

	rels, err = b.store.Relations(context.TODO(), relations.Filter{ActionID: 2, Participant: 3})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 2)
	c.Assert(rels[0].ID, gc.Equals, int64(4))
	c.Assert(rels[1].ID, gc.Equals, int64(5))
}

// TestStoryLookup verifies story lookup and the not found error.
func (b *SuiteBase) TestStoryLookup(c *gc.C) {
	b.load(c)
	st, err := b.store.Story(context.TODO(), 3)
	c.Assert(err, gc.IsNil)
	c.Assert(st.Name, gc.Equals, "Lynching of Mary Turner, Valdosta 1918")
	c.Assert(st.DetailURL(), gc.Equals, "/stories/turner/")

	_, err = b.store.Story(context.TODO(), 99)
	c.Assert(err, gc.ErrorMatches, ".*not found")
}

// TestReload verifies that Load replaces earlier contents.
func (b *SuiteBase) TestReload(c *gc.C) {
	b.load(c)
	seed := &relations.Seed{Actors: []relations.Actor{{ID: 9, Description: "mob"}}}
	c.Assert(b.store.Load(context.TODO(), seed), gc.IsNil)

	actors, err := b.store.Actors(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(actors, gc.HasLen, 1)
	rels, err := b.store.Relations(context.TODO(), relations.Filter{})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 0)
}

// TestImportAppends verifies that imported rows are added after the
// existing relations, reusing actors and actions by description and
// creating the missing ones.
func (b *SuiteBase) TestImportAppends(c *gc.C) {
	b.load(c)
	n, err := b.store.Import(context.TODO(), []relations.ImportRow{
		{StoryID: 1, EventID: 10, SequenceID: 2, TripletID: 100, Subject: "crowd", Action: "threat", Object: "sheriff"},
		{StoryID: 2, EventID: 11, SequenceID: 1, TripletID: 101, Subject: "sheriff", Action: "arrest", Object: "police"},
		{StoryID: 2, EventID: 11, SequenceID: 1, TripletID: 102, Action: "surrender", Object: "police"},
	}, false)
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, 3)

	actors, err := b.store.Actors(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(actors, gc.HasLen, 5)
	c.Assert(actors[4], gc.Equals, relations.Actor{ID: 5, Description: "sheriff"})

	actions, err := b.store.Actions(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(actions, gc.HasLen, 4)
	c.Assert(actions[3], gc.Equals, relations.Action{ID: 4, Description: "arrest"})

	rels, err := b.store.Relations(context.TODO(), relations.Filter{})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 8)
	c.Assert(rels[6], gc.Equals, relations.Relation{
		ID: 8, StoryID: 1, EventID: 10, SequenceID: 2, TripletID: 100,
		SubjectID: 3, ActionID: 2, ObjectID: 5,
	})
	c.Assert(rels[7].ID, gc.Equals, int64(9))
	c.Assert(rels[7].ActionID, gc.Equals, int64(4))
}

// TestImportWipe verifies that wiping removes relations but keeps actors.
func (b *SuiteBase) TestImportWipe(c *gc.C) {
	b.load(c)
	n, err := b.store.Import(context.TODO(), []relations.ImportRow{
		{StoryID: 3, EventID: 1, SequenceID: 1, TripletID: 7, Subject: "police", Action: "threat", Object: "crowd"},
	}, true)
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, 1)

	rels, err := b.store.Relations(context.TODO(), relations.Filter{})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 1)
	c.Assert(rels[0].ID, gc.Equals, int64(1))
	c.Assert(rels[0].SubjectID, gc.Equals, int64(1))
	c.Assert(rels[0].ObjectID, gc.Equals, int64(3))

	actors, err := b.store.Actors(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(actors, gc.HasLen, 4)
}

// TestImportEmpty verifies importing into an empty store.
func (b *SuiteBase) TestImportEmpty(c *gc.C) {
	c.Assert(b.store.Load(context.TODO(), &relations.Seed{}), gc.IsNil)
	_, err := b.store.Import(context.TODO(), []relations.ImportRow{
		{StoryID: 1, TripletID: 1, Subject: "mob", Action: "threat", Object: "sheriff"},
		{StoryID: 1, TripletID: 2, Subject: "sheriff", Action: "threat", Object: "mob"},
	}, false)
	c.Assert(err, gc.IsNil)

	actors, err := b.store.Actors(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(actors, gc.DeepEquals, []relations.Actor{{ID: 1, Description: "mob"}, {ID: 2, Description: "sheriff"}})

	rels, err := b.store.Relations(context.TODO(), relations.Filter{ActionID: 1, Participant: 2})
	c.Assert(err, gc.IsNil)
	c.Assert(rels, gc.HasLen, 2)
}
