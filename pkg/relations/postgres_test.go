package relations_test

import (
	"context"
	"os"

	gc "gopkg.in/check.v1"

	"github.com/anthonybishopric/relgraph/pkg/relations"
	"github.com/anthonybishopric/relgraph/pkg/relations/relationstest"
)

var _ = gc.Suite(new(PostgresStoreTestSuite))

type PostgresStoreTestSuite struct {
	relationstest.SuiteBase
	pg *relations.PostgresStore
}

func (s *PostgresStoreTestSuite) SetUpSuite(c *gc.C) {
	dsn := os.Getenv("RELGRAPH_TEST_DSN")
	if dsn == "" {
		c.Skip("Missing RELGRAPH_TEST_DSN envvar; skipping postgres store test suite")
	}

	pg, err := relations.NewPostgresStore(dsn)
	c.Assert(err, gc.IsNil)
	c.Assert(pg.Migrate(context.TODO()), gc.IsNil)
	s.SetStore(pg)
	s.pg = pg
}

func (s *PostgresStoreTestSuite) SetUpTest(c *gc.C) {
	s.flush(c)
}

func (s *PostgresStoreTestSuite) TearDownSuite(c *gc.C) {
	if s.pg != nil {
		s.flush(c)
		c.Assert(s.pg.Close(), gc.IsNil)
	}
}

func (s *PostgresStoreTestSuite) flush(c *gc.C) {
	c.Assert(s.pg.Load(context.TODO(), &relations.Seed{}), gc.IsNil)
}
