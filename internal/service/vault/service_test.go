package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
	"github.com/edgex-labs/edgex/backend/internal/store"
	"github.com/edgex-labs/edgex/backend/internal/vault"
)

var (
	alice = user.User{ID: "alice", FullName: "Alice Roy", Email: "alice@example.com"}
	bob   = user.User{ID: "bob", FullName: "Bob Sen", Email: "bob@example.com"}
)

func TestAddDerivesDomainAndPoster(t *testing.T) {
	svc := NewService(store.NewMemory())

	got, err := svc.Add(context.Background(), alice, resource.Draft{
		Title: "  Go by Example ", URL: "https://www.gobyexample.com/", Tags: []string{" Go ", "Tutorial"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Go by Example", got.Title)
	assert.Equal(t, "gobyexample.com", got.Domain)
	assert.Equal(t, []string{"Go", "Tutorial"}, got.Tags)
	assert.Equal(t, "alice", got.PostedBy.ID)
	assert.Zero(t, got.Upvotes)
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	svc := NewService(store.NewMemory())

	_, err := svc.Add(context.Background(), alice, resource.Draft{Title: "Go", URL: "ftp://x", Tags: nil})
	var errs resource.FieldErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "url")
	assert.Contains(t, errs, "tags")
}

func TestOnlyPosterMayChange(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())
	r, err := svc.Add(ctx, alice, resource.Draft{Title: "Khan Academy", URL: "https://khanacademy.org", Tags: []string{"Math"}})
	require.NoError(t, err)

	draft := resource.Draft{Title: "Khan Academy Math", URL: "https://khanacademy.org/math", Tags: []string{"Math"}}
	_, err = svc.Update(ctx, bob.ID, r.ID, draft)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, r.ID), ErrForbidden)

	updated, err := svc.Update(ctx, alice.ID, r.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, "Khan Academy Math", updated.Title)

	require.NoError(t, svc.Delete(ctx, alice.ID, r.ID))
	assert.ErrorIs(t, svc.Delete(ctx, alice.ID, r.ID), ErrNotFound)
}

func TestToggleUpvote(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())
	r, err := svc.Add(ctx, alice, resource.Draft{Title: "MIT OpenCourseWare", URL: "https://ocw.mit.edu", Tags: []string{"CS"}})
	require.NoError(t, err)

	up, err := svc.ToggleUpvote(ctx, bob.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, up.Upvotes)
	assert.True(t, up.HasUpvoted)

	list, err := svc.All(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].HasUpvoted)

	down, err := svc.ToggleUpvote(ctx, bob.ID, r.ID)
	require.NoError(t, err)
	assert.Zero(t, down.Upvotes)
	assert.False(t, down.HasUpvoted)

	_, err = svc.ToggleUpvote(ctx, bob.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAppliesPipeline(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())
	_, err := svc.Add(ctx, alice, resource.Draft{Title: "Physics Wallah", URL: "https://pw.live", Tags: []string{"Physics", "JEE"}})
	require.NoError(t, err)
	second, err := svc.Add(ctx, alice, resource.Draft{Title: "Chemistry notes", URL: "https://chem.org", Tags: []string{"JEE"}})
	require.NoError(t, err)
	_, err = svc.ToggleUpvote(ctx, bob.ID, second.ID)
	require.NoError(t, err)

	got, err := svc.List(ctx, bob.ID, vault.Query{Tags: []string{"JEE"}, Sort: vault.SortTop})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.True(t, got[0].HasUpvoted)

	got, err = svc.List(ctx, bob.ID, vault.Query{Text: "PW.LIVE"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Physics Wallah", got[0].Title)

	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"JEE", "Physics"}, tags)
}
