package blog

import (
	"bitwise74/blog-api/db/dbtest"
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/like"
	"bitwise74/blog-api/internal/model"
	"bitwise74/blog-api/internal/storage"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	svc   *Service
	db    *gorm.DB
	posts *like.Engine
	store *storage.Local
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.New(t)

	for _, u := range []string{"alice", "bob", "carol"} {
		require.NoError(t, db.Create(&model.User{
			ID:           u,
			Email:        u + "@example.com",
			PasswordHash: "x",
			FirstName:    strings.ToUpper(u[:1]) + u[1:],
		}).Error)
	}

	store, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	posts := like.New(db, like.Posts)

	return &env{
		svc:   New(db, posts, like.New(db, like.Comments), store),
		db:    db,
		posts: posts,
		store: store,
	}
}

func (e *env) post(t *testing.T, author, title string) *PostView {
	t.Helper()

	p, err := e.svc.CreatePost(context.Background(), author, PostInput{Title: title, Body: "A body that is long enough"})
	require.NoError(t, err)
	return p
}

func TestCreateAndGetPost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.svc.CreatePost(ctx, "alice", PostInput{Title: "  First post ", Body: " Hello world, this is it "})
	require.NoError(t, err)
	assert.Equal(t, "First post", p.Title)
	assert.Equal(t, "Hello world, this is it", p.Body)
	assert.Equal(t, "alice@example.com", p.Author)
	assert.Equal(t, "alice@example.com", p.AuthorEmail)
	assert.Nil(t, p.CoverPhoto)
	assert.Zero(t, p.LikesCount)
	assert.Zero(t, p.CommentsCount)

	_, _, err = e.posts.Toggle(ctx, "bob", p.ID)
	require.NoError(t, err)

	_, err = e.svc.CreateComment(ctx, "carol", p.ID, "Great read")
	require.NoError(t, err)

	got, err := e.svc.GetPost(ctx, "bob", p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.LikesCount)
	assert.EqualValues(t, 1, got.CommentsCount)
	assert.True(t, got.Liked)

	got, err = e.svc.GetPost(ctx, "carol", p.ID)
	require.NoError(t, err)
	assert.False(t, got.Liked)

	_, err = e.svc.GetPost(ctx, "bob", "missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, http.StatusNotFound, apperr.Status(err))
}

func TestCreatePostValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreatePost(ctx, "alice", PostInput{Title: " Hey ", Body: "A body that is long enough"})
	assert.Equal(t, "title", apperr.Field(err))

	_, err = e.svc.CreatePost(ctx, "alice", PostInput{Title: "Hello", Body: "   short   "})
	assert.Equal(t, "body", apperr.Field(err))
}

func TestListPostsPagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 12 {
		p := e.post(t, "alice", fmt.Sprintf("Post number %02d", i))
		require.NoError(t, e.db.Model(model.Post{}).Where("id = ?", p.ID).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page, err := e.svc.ListPosts(ctx, "bob", 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 12, page.Count)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	require.Len(t, page.Results, 10)
	assert.Equal(t, "Post number 11", page.Results[0].Title, "newest first")
	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrevious())

	page, err = e.svc.ListPosts(ctx, "bob", 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "Post number 00", page.Results[1].Title)
	assert.False(t, page.HasNext())
	assert.True(t, page.HasPrevious())

	_, err = e.svc.ListPosts(ctx, "bob", 3, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = e.svc.ListPosts(ctx, "bob", 0, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	page, err = e.svc.ListPosts(ctx, "bob", 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Len(t, page.Results, 12)
}

func TestListPostsEmpty(t *testing.T) {
	e := newEnv(t)

	page, err := e.svc.ListPosts(context.Background(), "bob", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Count)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
}

func TestUpdatePostOnlyByAuthor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.post(t, "alice", "Original title")
	title := "Changed title"

	_, err := e.svc.UpdatePost(ctx, "bob", p.ID, PostUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrPostEditForbidden)
	assert.Equal(t, http.StatusForbidden, apperr.Status(err))

	got, err := e.svc.GetPost(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original title", got.Title, "a rejected update changes nothing")

	bad, short := "x", "no"
	_, err = e.svc.UpdatePost(ctx, "bob", p.ID, PostUpdate{Title: &bad})
	assert.ErrorIs(t, err, ErrPostEditForbidden, "ownership wins over an invalid title")
	_, err = e.svc.UpdatePost(ctx, "bob", p.ID, PostUpdate{Body: &short})
	assert.ErrorIs(t, err, ErrPostEditForbidden, "ownership wins over an invalid body")

	assert.ErrorIs(t, e.svc.CheckPostAuthor(ctx, "bob", p.ID), ErrPostEditForbidden)
	assert.ErrorIs(t, e.svc.CheckPostAuthor(ctx, "alice", "missing"), ErrPostNotFound)
	assert.NoError(t, e.svc.CheckPostAuthor(ctx, "alice", p.ID))

	got, err = e.svc.UpdatePost(ctx, "alice", p.ID, PostUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Changed title", got.Title)
	assert.Equal(t, "A body that is long enough", got.Body, "partial updates keep other fields")

	_, err = e.svc.UpdatePost(ctx, "alice", p.ID, PostUpdate{Body: &short})
	assert.Equal(t, "body", apperr.Field(err))

	_, err = e.svc.UpdatePost(ctx, "alice", "missing", PostUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestUpdatePostReplacesCover(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	put := func(key string) {
		require.NoError(t, e.store.Put(ctx, key, bytes.NewReader([]byte("img")), 3, "image/png"))
	}

	put("covers/old.png")
	p, err := e.svc.CreatePost(ctx, "alice", PostInput{Title: "With cover", Body: "A body that is long enough", CoverPhoto: "covers/old.png"})
	require.NoError(t, err)
	require.NotNil(t, p.CoverPhoto)
	assert.Equal(t, "/media/covers/old.png", *p.CoverPhoto)

	put("covers/new.png")
	key := "covers/new.png"
	p, err = e.svc.UpdatePost(ctx, "alice", p.ID, PostUpdate{CoverPhoto: &key})
	require.NoError(t, err)
	assert.Equal(t, "/media/covers/new.png", *p.CoverPhoto)

	_, err = os.Stat(filepath.Join(e.store.Root, "covers", "old.png"))
	assert.True(t, os.IsNotExist(err), "old cover is removed")

	require.NoError(t, e.svc.DeletePost(ctx, "alice", p.ID))

	_, err = os.Stat(filepath.Join(e.store.Root, "covers", "new.png"))
	assert.True(t, os.IsNotExist(err), "cover goes with the post")
}

func TestDeletePostCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.post(t, "alice", "Doomed post")
	c, err := e.svc.CreateComment(ctx, "bob", p.ID, "First!")
	require.NoError(t, err)

	_, _, err = e.posts.Toggle(ctx, "bob", p.ID)
	require.NoError(t, err)
	_, _, err = e.svc.commentLikes.Toggle(ctx, "alice", c.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, e.svc.DeletePost(ctx, "bob", p.ID), ErrPostDeleteForbidden)

	require.NoError(t, e.svc.DeletePost(ctx, "alice", p.ID))

	_, err = e.svc.GetPost(ctx, "alice", p.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	for _, table := range []string{"comments", "post_likes", "comment_likes"} {
		var n int64
		require.NoError(t, e.db.Table(table).Count(&n).Error)
		assert.Zero(t, n, table)
	}

	assert.ErrorIs(t, e.svc.DeletePost(ctx, "alice", p.ID), ErrPostNotFound)
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.post(t, "alice", "Commented post")

	first, err := e.svc.CreateComment(ctx, "bob", p.ID, "  first comment  ")
	require.NoError(t, err)
	assert.Equal(t, "first comment", first.Body)
	assert.Equal(t, "bob", first.Author.ID)
	assert.Equal(t, "bob@example.com", first.Author.Email)

	second, err := e.svc.CreateComment(ctx, "carol", p.ID, "second comment")
	require.NoError(t, err)

	require.NoError(t, e.db.Model(model.Comment{}).Where("id = ?", first.ID).Update("created_at", time.Now().Add(-time.Hour)).Error)

	list, err := e.svc.ListComments(ctx, "alice", p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	_, err = e.svc.ListComments(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = e.svc.ListComments(ctx, "alice", "")
	assert.Equal(t, "post_id", apperr.Field(err))

	_, err = e.svc.CreateComment(ctx, "bob", "missing", "hello there")
	assert.ErrorIs(t, err, ErrUnknownPost)

	_, err = e.svc.CreateComment(ctx, "bob", p.ID, " x ")
	assert.Equal(t, "body", apperr.Field(err))

	_, err = e.svc.CreateComment(ctx, "bob", p.ID, strings.Repeat("x", 1001))
	assert.Equal(t, "body", apperr.Field(err))
}

func TestCommentOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.post(t, "alice", "Commented post")
	c, err := e.svc.CreateComment(ctx, "bob", p.ID, "mine")
	require.NoError(t, err)

	_, err = e.svc.UpdateComment(ctx, "alice", c.ID, "not yours")
	assert.ErrorIs(t, err, ErrCommentEditForbidden)

	_, err = e.svc.UpdateComment(ctx, "alice", c.ID, "")
	assert.ErrorIs(t, err, ErrCommentEditForbidden, "ownership wins over an invalid body")
	assert.Equal(t, http.StatusForbidden, apperr.Status(err))

	got, err := e.svc.GetComment(ctx, "bob", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Body)

	got, err = e.svc.UpdateComment(ctx, "bob", c.ID, "still mine")
	require.NoError(t, err)
	assert.Equal(t, "still mine", got.Body)

	assert.ErrorIs(t, e.svc.DeleteComment(ctx, "alice", c.ID), ErrCommentDeleteForbidden)

	_, _, err = e.svc.commentLikes.Toggle(ctx, "carol", c.ID)
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteComment(ctx, "bob", c.ID))

	_, err = e.svc.GetComment(ctx, "bob", c.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	var n int64
	require.NoError(t, e.db.Table("comment_likes").Count(&n).Error)
	assert.Zero(t, n)

	assert.ErrorIs(t, e.svc.DeleteComment(ctx, "bob", c.ID), ErrCommentNotFound)
	_, err = e.svc.UpdateComment(ctx, "bob", c.ID, "ghost edit")
	assert.ErrorIs(t, err, ErrCommentNotFound)
}
