// Package seed generates sample issues for development.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmaddaus/issuetrack/internal/model"
	"github.com/jmaddaus/issuetrack/internal/store"
)

// DefaultCount is how many issues one seeding run creates.
const DefaultCount = 10

// maxInFlight bounds concurrent inserts.
const maxInFlight = 4

var (
	agents = []string{
		"a user", "the idea guy", "a developer", "an admin", "a manager",
		"a customer", "a tester", "a designer", "a product owner", "an intern",
		"a barista",
	}
	actions = []string{
		"I want to", "I need to", "I would like to", "I should", "I must",
		"I would love to",
	}
	verbs = []string{
		"create", "read", "update", "delete", "edit", "view", "add", "remove",
		"change", "modify", "assign", "unassign", "filter", "sort", "search",
	}
	nouns = []string{
		"the issues", "the projects", "the users", "the comments", "the tasks",
		"the labels", "the milestones", "the epics", "the groups", "the boards",
		"the sprints", "the releases", "the candidates", "the content",
	}
	reasons = []string{
		"so that I can save time",
		"so that I can save money",
		"so that it's better for the environment",
		"so that we make more sales",
		"to make sure everything is correct",
		"so that I know what to do",
		"so that I can be more organized",
		"so that I can see the state of the project",
		"so that I can find what I want",
		"in order to download them",
		"in order to delete them",
		"in order to test them",
	}
)

// epoch is the earliest creation date a sample issue gets.
var epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generator produces random sample issues.
type Generator struct {
	rng    *rand.Rand
	schema model.Schema
	now    func() time.Time
}

// NewGenerator returns a generator drawing statuses and priorities from
// schema. A nil rng uses a randomly seeded source.
func NewGenerator(schema model.Schema, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng, schema: schema, now: time.Now}
}

// StoryTitle returns a random "As a ... I want to ..." title.
func (g *Generator) StoryTitle() string {
	return strings.Join([]string{
		"As",
		pick(g.rng, agents),
		pick(g.rng, actions),
		pick(g.rng, verbs),
		pick(g.rng, nouns),
		pick(g.rng, reasons),
	}, " ")
}

// Issues returns n unsaved sample issues. Creation dates fall between 2020
// and now; each update date falls between its creation date and now.
func (g *Generator) Issues(n int) []*model.Issue {
	now := g.now().UTC()
	out := make([]*model.Issue, n)
	for i := range out {
		created := g.between(epoch, now)
		out[i] = &model.Issue{
			Title:       g.StoryTitle(),
			Description: fmt.Sprintf("Description for issue %d", i),
			Status:      pick(g.rng, g.schema.Statuses),
			Priority:    pick(g.rng, g.schema.Priorities),
			CreatedAt:   created,
			UpdatedAt:   g.between(created, now),
		}
	}
	return out
}

func (g *Generator) between(start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		return start
	}
	return start.Add(time.Duration(g.rng.Int64N(int64(span)))).Truncate(time.Second)
}

// Create generates n issues and inserts them into st. The returned issues
// are in generation order.
func (g *Generator) Create(ctx context.Context, st store.Store, n int) ([]*model.Issue, error) {
	pending := g.Issues(n)
	created := make([]*model.Issue, n)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxInFlight)
	for i, iss := range pending {
		eg.Go(func() error {
			c, err := st.CreateIssue(ctx, iss)
			if err != nil {
				return fmt.Errorf("create sample issue %d: %w", i, err)
			}
			created[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return created, nil
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}
