package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkpost/inkpost/models"
)

func TestCreatePostDefaultsByRole(t *testing.T) {
	env := newTestEnv(t)
	cat := env.createCategory(t, "Tech")
	_, writerToken := env.createUser(t, "writer", models.RoleWriter)
	_, adminToken := env.createUser(t, "admin", models.RoleAdmin)
	_, userToken := env.createUser(t, "reader", models.RoleUser)

	content := strings.Repeat("word ", 450)

	w := env.request(t, http.MethodPost, "/api/posts", writerToken, map[string]interface{}{
		"title":      "My First Post",
		"content":    content,
		"categories": []uint{cat.ID},
		"tags":       []string{"go", "testing"},
	})
	requireStatus(t, w, http.StatusCreated)

	var post models.Post
	data(t, w, &post)
	require.Equal(t, models.PostStatusDraft, post.Status)
	require.Equal(t, "my-first-post", post.Slug)
	require.Equal(t, 3, post.ReadTime) // 450 words at 200 wpm, rounded up
	require.NotEmpty(t, post.Excerpt)
	require.False(t, post.Featured)
	require.Len(t, post.Categories, 1)

	// Admin posts default to published, and may be featured.
	w = env.request(t, http.MethodPost, "/api/posts", adminToken, map[string]interface{}{
		"title":      "Admin Post",
		"content":    "short body",
		"categories": []uint{cat.ID},
		"featured":   true,
	})
	requireStatus(t, w, http.StatusCreated)
	data(t, w, &post)
	require.Equal(t, models.PostStatusPublished, post.Status)
	require.Equal(t, 1, post.ReadTime)
	require.True(t, post.Featured)

	// Plain users cannot create posts at all.
	w = env.request(t, http.MethodPost, "/api/posts", userToken, map[string]interface{}{
		"title":      "Nope",
		"content":    "body",
		"categories": []uint{cat.ID},
	})
	requireStatus(t, w, http.StatusForbidden)
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	_, writerToken := env.createUser(t, "writer", models.RoleWriter)

	w := env.request(t, http.MethodPost, "/api/posts", writerToken, map[string]interface{}{
		"title":   "",
		"content": "",
	})
	requireStatus(t, w, http.StatusBadRequest)
	body := w.Body.String()
	require.Contains(t, body, "title")
	require.Contains(t, body, "content")
	require.Contains(t, body, "categories")

	// Referencing a category that does not exist is a field error too.
	w = env.request(t, http.MethodPost, "/api/posts", writerToken, map[string]interface{}{
		"title":      "Valid Title",
		"content":    "valid content",
		"categories": []uint{9999},
	})
	requireStatus(t, w, http.StatusBadRequest)
	require.Contains(t, w.Body.String(), "categories")
}

func TestSlugCollisionGetsCounterSuffix(t *testing.T) {
	env := newTestEnv(t)
	cat := env.createCategory(t, "General")
	_, adminToken := env.createUser(t, "admin", models.RoleAdmin)

	slugs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		w := env.request(t, http.MethodPost, "/api/posts", adminToken, map[string]interface{}{
			"title":      "Hello World",
			"content":    "body",
			"categories": []uint{cat.ID},
		})
		requireStatus(t, w, http.StatusCreated)
		var post models.Post
		data(t, w, &post)
		slugs = append(slugs, post.Slug)
	}
	require.Equal(t, []string{"hello-world", "hello-world-2", "hello-world-3"}, slugs)
}

func TestListPostsVisibility(t *testing.T) {
	env := newTestEnv(t)
	writer, writerToken := env.createUser(t, "writer", models.RoleWriter)
	other, _ := env.createUser(t, "other", models.RoleWriter)
	_, adminToken := env.createUser(t, "admin", models.RoleAdmin)

	env.createPost(t, writer, "Published One", models.PostStatusPublished)
	env.createPost(t, writer, "Writer Draft", models.PostStatusDraft)
	env.createPost(t, other, "Other Draft", models.PostStatusDraft)

	// Anonymous listing only sees published, and the total reflects that.
	w := env.request(t, http.MethodGet, "/api/posts", "", nil)
	requireStatus(t, w, http.StatusOK)
	var listing struct {
		Count      int `json:"count"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
		Data []models.Post `json:"data"`
	}
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)
	require.Equal(t, int64(1), listing.Pagination.Total)
	require.Equal(t, "Published One", listing.Data[0].Title)

	// A writer asking for drafts only gets their own.
	w = env.request(t, http.MethodGet, "/api/posts?status=draft", writerToken, nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)
	require.Equal(t, "Writer Draft", listing.Data[0].Title)

	// Admins see everything for any status filter.
	w = env.request(t, http.MethodGet, "/api/posts?status=draft", adminToken, nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 2, listing.Count)

	w = env.request(t, http.MethodGet, "/api/posts", adminToken, nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 3, listing.Count)
}

func TestListPostsFilters(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	tech := env.createCategory(t, "Tech")
	life := env.createCategory(t, "Life")

	p1 := env.createPost(t, writer, "Go Concurrency", models.PostStatusPublished, *tech)
	env.createPost(t, writer, "Coffee Notes", models.PostStatusPublished, *life)
	require.NoError(t, env.db.Model(p1).Update("tags", []string{"golang"}).Error)

	w := env.request(t, http.MethodGet, "/api/posts?category=tech", "", nil)
	requireStatus(t, w, http.StatusOK)
	var listing struct {
		Count int           `json:"count"`
		Data  []models.Post `json:"data"`
	}
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)
	require.Equal(t, "Go Concurrency", listing.Data[0].Title)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/posts?category=%d", life.ID), "", nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)
	require.Equal(t, "Coffee Notes", listing.Data[0].Title)

	w = env.request(t, http.MethodGet, "/api/posts?search=concurrency", "", nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)

	w = env.request(t, http.MethodGet, "/api/posts?tag=golang", "", nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)
	require.Equal(t, "Go Concurrency", listing.Data[0].Title)
}

func TestGetPostBySlugIncrementsViews(t *testing.T) {
	env := newTestEnv(t)
	writer, writerToken := env.createUser(t, "writer", models.RoleWriter)
	published := env.createPost(t, writer, "Readable Post", models.PostStatusPublished)
	draft := env.createPost(t, writer, "Hidden Draft", models.PostStatusDraft)

	for want := int64(1); want <= 2; want++ {
		w := env.request(t, http.MethodGet, "/api/posts/"+published.Slug, "", nil)
		requireStatus(t, w, http.StatusOK)
		var got models.Post
		data(t, w, &got)
		require.Equal(t, want, got.Views)
	}

	// Numeric lookup hits the same record.
	w := env.request(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", published.ID), "", nil)
	requireStatus(t, w, http.StatusOK)

	// Drafts are invisible to visitors but not to their author.
	w = env.request(t, http.MethodGet, "/api/posts/"+draft.Slug, "", nil)
	requireStatus(t, w, http.StatusNotFound)

	w = env.request(t, http.MethodGet, "/api/posts/"+draft.Slug, writerToken, nil)
	requireStatus(t, w, http.StatusOK)
}

func TestUpdatePostPermissionsAndReslug(t *testing.T) {
	env := newTestEnv(t)
	writer, writerToken := env.createUser(t, "writer", models.RoleWriter)
	_, otherToken := env.createUser(t, "other", models.RoleWriter)
	_, adminToken := env.createUser(t, "admin", models.RoleAdmin)
	post := env.createPost(t, writer, "Original Title", models.PostStatusDraft)

	path := fmt.Sprintf("/api/posts/%d", post.ID)

	// Someone else's writer account cannot edit.
	w := env.request(t, http.MethodPut, path, otherToken, map[string]interface{}{"title": "Hijacked"})
	requireStatus(t, w, http.StatusForbidden)

	// The author can, and a title change re-derives the slug. The featured
	// flag is stripped for non-admins instead of rejected.
	w = env.request(t, http.MethodPut, path, writerToken, map[string]interface{}{
		"title":    "Renamed Title",
		"status":   models.PostStatusPublished,
		"featured": true,
	})
	requireStatus(t, w, http.StatusOK)
	var got models.Post
	data(t, w, &got)
	require.Equal(t, "renamed-title", got.Slug)
	require.Equal(t, models.PostStatusPublished, got.Status)
	require.False(t, got.Featured)

	// Admin may promote it.
	w = env.request(t, http.MethodPut, path, adminToken, map[string]interface{}{"featured": true})
	requireStatus(t, w, http.StatusOK)
	data(t, w, &got)
	require.True(t, got.Featured)

	w = env.request(t, http.MethodPut, path, writerToken, map[string]interface{}{"status": "bogus"})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestToggleLikeIsIdempotentPerPair(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	_, readerToken := env.createUser(t, "reader", models.RoleUser)
	post := env.createPost(t, writer, "Likeable", models.PostStatusPublished)

	path := fmt.Sprintf("/api/posts/%d/like", post.ID)

	var result struct {
		Action     string `json:"action"`
		LikesCount int64  `json:"likesCount"`
	}

	w := env.request(t, http.MethodPost, path, readerToken, nil)
	requireStatus(t, w, http.StatusOK)
	data(t, w, &result)
	require.Equal(t, "liked", result.Action)
	require.Equal(t, int64(1), result.LikesCount)

	// Toggling again removes exactly the one membership row.
	w = env.request(t, http.MethodPost, path, readerToken, nil)
	requireStatus(t, w, http.StatusOK)
	data(t, w, &result)
	require.Equal(t, "unliked", result.Action)
	require.Equal(t, int64(0), result.LikesCount)

	// Anonymous likes are refused.
	w = env.request(t, http.MethodPost, path, "", nil)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	writer, writerToken := env.createUser(t, "writer", models.RoleWriter)
	cat := env.createCategory(t, "Tech")
	post := env.createPost(t, writer, "Doomed", models.PostStatusPublished, *cat)

	w := env.request(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), writerToken, nil)
	requireStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodGet, "/api/posts/"+post.Slug, "", nil)
	requireStatus(t, w, http.StatusNotFound)

	var joinRows int64
	require.NoError(t, env.db.Table("post_categories").Where("post_id = ?", post.ID).Count(&joinRows).Error)
	require.Zero(t, joinRows)
}
