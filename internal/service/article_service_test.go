package service

import (
	"context"
	"testing"

	"article-api/backend/internal/models"
	"article-api/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetArticle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := newUserService(t, db)
	svc := NewArticleService(db)
	alice := mustCreateUser(t, users, "alice", jwt.RoleUser)

	created := mustCreateArticle(t, svc, alice.ID, "hello", false)
	resp := created.ToResponse()
	assert.Equal(t, "alice", resp.AuthorName)
	assert.Equal(t, []string{"go"}, resp.Tags)
	assert.Zero(t, resp.ViewCount)

	got, err := svc.GetArticle(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ViewCount)

	got, err = svc.GetArticle(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.ViewCount)

	_, err = svc.GetArticle(ctx, 999)
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestListArticlesSearch(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := newUserService(t, db)
	svc := NewArticleService(db)
	alice := mustCreateUser(t, users, "alice", jwt.RoleUser)
	mustCreateArticle(t, svc, alice.ID, "Go generics", true)
	mustCreateArticle(t, svc, alice.ID, "Rate limiting", false)
	mustCreateArticle(t, svc, alice.ID, "Go channels", true)

	list, total, err := svc.ListArticles(ctx, models.PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, "Go channels", list[0].Title)
	require.NotNil(t, list[0].Author)
	assert.Equal(t, "alice", list[0].Author.Username)

	list, total, err = svc.ListArticles(ctx, models.PageQuery{Page: 1, PageSize: 10, Search: "Go"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)
}

func TestUpdateArticleAuthorization(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := newUserService(t, db)
	svc := NewArticleService(db)
	alice := mustCreateUser(t, users, "alice", jwt.RoleUser)
	bob := mustCreateUser(t, users, "bob", jwt.RoleUser)
	admin := mustCreateUser(t, users, "root", jwt.RoleAdmin)
	article := mustCreateArticle(t, svc, alice.ID, "draft", false)

	title := "final"
	published := true
	updated, err := svc.UpdateArticle(ctx, Actor{ID: alice.ID, Role: jwt.RoleUser}, article.ID,
		&models.ArticleUpdate{Title: &title, IsPublished: &published})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.IsPublished)
	assert.Equal(t, "summary of draft", updated.Summary)

	_, err = svc.UpdateArticle(ctx, Actor{ID: bob.ID, Role: jwt.RoleUser}, article.ID, &models.ArticleUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateArticle(ctx, Actor{ID: alice.ID, Role: jwt.RoleUser}, article.ID, &models.ArticleUpdate{})
	assert.ErrorIs(t, err, ErrNoFields)

	_, err = svc.UpdateArticle(ctx, Actor{ID: alice.ID, Role: jwt.RoleUser}, 999, &models.ArticleUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrArticleNotFound)

	assert.ErrorIs(t, svc.DeleteArticle(ctx, Actor{ID: bob.ID, Role: jwt.RoleUser}, article.ID), ErrForbidden)
	require.NoError(t, svc.DeleteArticle(ctx, Actor{ID: admin.ID, Role: jwt.RoleAdmin}, article.ID))
	assert.ErrorIs(t, svc.DeleteArticle(ctx, Actor{ID: admin.ID, Role: jwt.RoleAdmin}, article.ID), ErrArticleNotFound)
}
