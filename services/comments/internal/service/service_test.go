package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/comment-tree/internal/platform/events"
	"github.com/example/comment-tree/services/comments/internal/store"
)

type published struct {
	subject string
	actorID string
	props   map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(subject, _, actorID string, props map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject: subject, actorID: actorID, props: props})
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newService() (*Service, *store.InMemoryCommentStore, *recordingPublisher) {
	cs := store.NewInMemoryCommentStore(nil)
	pub := &recordingPublisher{}
	return New(cs, nil, WithPublisher(pub), WithClock(tickingClock())), cs, pub
}

var alice = store.Commenter{AccountID: "7f1c6f4e-5a7d-4a63-9f62-0d3d0c8c2d11", Username: "alice"}

func TestScenario_CreateQueryPrune(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	resource := uuid.NewString()

	c1, err := svc.CreateRoot(ctx, CreateRootInput{ResourceID: resource, Commenter: alice, Text: "first"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	c2, err := svc.CreateBranch(ctx, CreateBranchInput{ParentID: c1, Commenter: alice, Text: "reply"})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}

	all, err := svc.AllComments(ctx, resource)
	if err != nil {
		t.Fatalf("all comments: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(all))
	}
	if all[0].MaterializedPath != resource+"->"+c1 {
		t.Fatalf("unexpected root path %q", all[0].MaterializedPath)
	}
	if all[1].MaterializedPath != resource+"->"+c1+"->"+c2 {
		t.Fatalf("unexpected branch path %q", all[1].MaterializedPath)
	}

	next, err := svc.BranchCommentsNext(ctx, c1)
	if err != nil {
		t.Fatalf("branch next: %v", err)
	}
	if len(next) != 1 || next[0].CommentID != c2 {
		t.Fatalf("expected [%s], got %v", c2, next)
	}

	rest, err := svc.BranchCommentsRest(ctx, c1)
	if err != nil {
		t.Fatalf("branch rest: %v", err)
	}
	if len(rest) != 2 || rest[0].CommentID != c1 || rest[1].CommentID != c2 {
		t.Fatalf("expected [%s %s], got %v", c1, c2, rest)
	}

	if err := svc.Delete(ctx, c1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, id := range []string{c1, c2} {
		if _, err := svc.BranchCommentsNext(ctx, id); !IsNotFound(err) {
			t.Fatalf("expected not found for %s after prune, got %v", id, err)
		}
	}
}

func TestCreateRoot_PathAndType(t *testing.T) {
	svc, cs, _ := newService()
	ctx := context.Background()
	resource := uuid.NewString()

	id, err := svc.CreateRoot(ctx, CreateRootInput{ResourceID: resource, Commenter: alice, Text: "hello"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	c, err := cs.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.MaterializedPath != resource+"->"+id {
		t.Fatalf("expected path %q, got %q", resource+"->"+id, c.MaterializedPath)
	}
	if c.CommentType != store.CommentTypeRoot {
		t.Fatalf("expected Root, got %s", c.CommentType)
	}
	if c.Commenter != alice {
		t.Fatalf("expected commenter snapshot %v, got %v", alice, c.Commenter)
	}
	if len(c.Reactions) != 0 || len(c.BranchCommentIDs) != 0 {
		t.Fatal("expected empty reactions and branch ids")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid id, got %q", id)
	}
}

func TestCreateBranch_PathExtendsParentAtEveryDepth(t *testing.T) {
	svc, cs, _ := newService()
	ctx := context.Background()

	parentID, err := svc.CreateRoot(ctx, CreateRootInput{ResourceID: uuid.NewString(), Commenter: alice, Text: "root"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	for depth := 1; depth <= 6; depth++ {
		parent, _ := cs.FindByID(ctx, parentID)
		id, err := svc.CreateBranch(ctx, CreateBranchInput{ParentID: parentID, Commenter: alice, Text: "deeper"})
		if err != nil {
			t.Fatalf("depth %d: %v", depth, err)
		}
		c, _ := cs.FindByID(ctx, id)
		if c.MaterializedPath != parent.MaterializedPath+"->"+id {
			t.Fatalf("depth %d: expected %q, got %q", depth, parent.MaterializedPath+"->"+id, c.MaterializedPath)
		}
		if c.CommentType != store.CommentTypeBranch {
			t.Fatalf("depth %d: expected Branch, got %s", depth, c.CommentType)
		}
		parentID = id
	}
}

func TestCreateBranch_ParentNotFound(t *testing.T) {
	svc, cs, _ := newService()

	_, err := svc.CreateBranch(context.Background(), CreateBranchInput{ParentID: uuid.NewString(), Commenter: alice, Text: "x"})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if cs.Len() != 0 {
		t.Fatalf("expected nothing stored, got %d", cs.Len())
	}
}

func TestRootComments_NewestFirstAndOnlyRoots(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	resource := uuid.NewString()

	r1, _ := svc.CreateRoot(ctx, CreateRootInput{ResourceID: resource, Commenter: alice, Text: "one"})
	r2, _ := svc.CreateRoot(ctx, CreateRootInput{ResourceID: resource, Commenter: alice, Text: "two"})
	_, _ = svc.CreateBranch(ctx, CreateBranchInput{ParentID: r1, Commenter: alice, Text: "reply"})

	roots, err := svc.RootComments(ctx, resource)
	if err != nil {
		t.Fatalf("root comments: %v", err)
	}
	if len(roots) != 2 || roots[0].CommentID != r2 || roots[1].CommentID != r1 {
		t.Fatalf("expected [%s %s], got %v", r2, r1, roots)
	}
}

func TestEditText(t *testing.T) {
	svc, cs, pub := newService()
	ctx := context.Background()
	id, _ := svc.CreateRoot(ctx, CreateRootInput{ResourceID: uuid.NewString(), Commenter: alice, Text: "draft"})

	if err := svc.EditText(ctx, id, "final"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := svc.EditText(ctx, id, "final"); err != nil {
		t.Fatalf("edit again: %v", err)
	}
	c, _ := cs.FindByID(ctx, id)
	if c.CommentText != "final" {
		t.Fatalf("expected 'final', got %q", c.CommentText)
	}
	if err := svc.EditText(ctx, uuid.NewString(), "x"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := pub.events[len(pub.events)-1].subject; got != events.SubjectCommentEdited {
		t.Fatalf("expected edited event, got %s", got)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc, _, _ := newService()
	if err := svc.Delete(context.Background(), uuid.NewString()); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReactAndUndo(t *testing.T) {
	svc, cs, pub := newService()
	ctx := context.Background()
	id, _ := svc.CreateRoot(ctx, CreateRootInput{ResourceID: uuid.NewString(), Commenter: alice, Text: "react to me"})

	r := store.CommentReaction{
		Reactor:          store.CommentReactor{AccountID: uuid.NewString(), Username: "bob"},
		EmojiUnifiedCode: "1f525",
	}
	if err := svc.React(ctx, id, r); err != nil {
		t.Fatalf("react: %v", err)
	}
	c, _ := cs.FindByID(ctx, id)
	if len(c.Reactions) != 1 || c.Reactions[0] != r {
		t.Fatalf("expected one reaction, got %v", c.Reactions)
	}

	if err := svc.UndoReaction(ctx, id, r); err != nil {
		t.Fatalf("undo: %v", err)
	}
	c, _ = cs.FindByID(ctx, id)
	if len(c.Reactions) != 0 {
		t.Fatalf("expected no reactions, got %v", c.Reactions)
	}

	// Nothing to undo and unknown comments are server errors, not not-found.
	err := svc.UndoReaction(ctx, id, r)
	if err == nil || IsNotFound(err) || !errors.Is(err, store.ErrNoOp) {
		t.Fatalf("expected wrapped ErrNoOp, got %v", err)
	}
	err = svc.React(ctx, uuid.NewString(), r)
	if err == nil || IsNotFound(err) {
		t.Fatalf("expected server error, got %v", err)
	}

	var subjects []string
	for _, e := range pub.events {
		subjects = append(subjects, e.subject)
	}
	want := []string{events.SubjectCommentCreated, events.SubjectCommentReacted, events.SubjectCommentUnreacted}
	if len(subjects) != len(want) {
		t.Fatalf("expected events %v, got %v", want, subjects)
	}
	for i := range want {
		if subjects[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, subjects)
		}
	}
}

// brokenStore fails every call with a storage error.
type brokenStore struct{ store.CommentStore }

var errBackend = errors.New("connection reset")

func (brokenStore) Insert(context.Context, store.Comment) error { return errBackend }
func (brokenStore) FindByID(context.Context, string) (store.Comment, error) {
	return store.Comment{}, errBackend
}
func (brokenStore) FindChildren(context.Context, string) ([]store.Comment, error) {
	return nil, errBackend
}

func TestStoreFailuresAreServerErrors(t *testing.T) {
	svc := New(brokenStore{}, nil)
	ctx := context.Background()

	if _, err := svc.CreateRoot(ctx, CreateRootInput{ResourceID: "r", Commenter: alice, Text: "x"}); err == nil || IsNotFound(err) {
		t.Fatalf("expected server error from insert, got %v", err)
	}
	if _, err := svc.CreateBranch(ctx, CreateBranchInput{ParentID: "p", Commenter: alice, Text: "x"}); err == nil || IsNotFound(err) {
		t.Fatalf("expected server error from lookup, got %v", err)
	}
	if _, err := svc.RootComments(ctx, "r"); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestConcurrentReactionsAreNotLost(t *testing.T) {
	svc, cs, _ := newService()
	ctx := context.Background()
	id, _ := svc.CreateRoot(ctx, CreateRootInput{ResourceID: uuid.NewString(), Commenter: alice, Text: "popular"})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := store.CommentReaction{
				Reactor:          store.CommentReactor{AccountID: uuid.NewString(), Username: "fan"},
				EmojiUnifiedCode: "2764",
			}
			if err := svc.React(ctx, id, r); err != nil {
				t.Errorf("react: %v", err)
			}
		}()
	}
	wg.Wait()

	c, _ := cs.FindByID(ctx, id)
	if len(c.Reactions) != n {
		t.Fatalf("expected %d reactions, got %d", n, len(c.Reactions))
	}
}
