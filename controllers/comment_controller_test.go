package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkpost/inkpost/models"
)

func TestGuestCommentFlow(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	post := env.createPost(t, writer, "Open Thread", models.PostStatusPublished)

	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	// Guests without identity are rejected.
	w := env.request(t, http.MethodPost, path, "", map[string]interface{}{
		"content": "anonymous drive-by",
	})
	requireStatus(t, w, http.StatusBadRequest)
	require.Contains(t, w.Body.String(), "guestInfo")

	w = env.request(t, http.MethodPost, path, "", map[string]interface{}{
		"content":   "nice post!",
		"guestInfo": map[string]string{"name": "Visitor", "email": "visitor@example.com"},
	})
	requireStatus(t, w, http.StatusCreated)

	var comment models.Comment
	data(t, w, &comment)
	require.Equal(t, models.CommentStatusPending, comment.Status)
	require.Nil(t, comment.AuthorID)
	require.True(t, comment.IsAnonymous)
	require.Equal(t, "Visitor", comment.Guest.Name)

	// The same IP immediately posting again hits the cooldown.
	w = env.request(t, http.MethodPost, path, "", map[string]interface{}{
		"content":   "me again",
		"guestInfo": map[string]string{"name": "Visitor", "email": "visitor@example.com"},
	})
	requireStatus(t, w, http.StatusTooManyRequests)
}

func TestCommentModeration(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	_, userToken := env.createUser(t, "reader", models.RoleUser)
	_, adminToken := env.createUser(t, "admin", models.RoleAdmin)
	post := env.createPost(t, writer, "Moderated Post", models.PostStatusPublished)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), userToken, map[string]interface{}{
		"content": "waiting for approval",
	})
	requireStatus(t, w, http.StatusCreated)
	var comment models.Comment
	data(t, w, &comment)
	require.Equal(t, models.CommentStatusPending, comment.Status)

	// Pending comments stay out of the public thread.
	listPath := fmt.Sprintf("/api/posts/%d/comments", post.ID)
	var listing struct {
		Count int `json:"count"`
	}
	w = env.request(t, http.MethodGet, listPath, "", nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Zero(t, listing.Count)

	// The moderation queue is admin only.
	w = env.request(t, http.MethodGet, "/api/comments?status=pending", userToken, nil)
	requireStatus(t, w, http.StatusForbidden)
	w = env.request(t, http.MethodGet, "/api/comments?status=pending", adminToken, nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)

	// Status changes are admin only and validated.
	statusPath := fmt.Sprintf("/api/comments/%d/status", comment.ID)
	w = env.request(t, http.MethodPut, statusPath, userToken, map[string]string{"status": models.CommentStatusApproved})
	requireStatus(t, w, http.StatusForbidden)
	w = env.request(t, http.MethodPut, statusPath, adminToken, map[string]string{"status": "bogus"})
	requireStatus(t, w, http.StatusBadRequest)
	// PATCH and PUT are interchangeable for the status transition.
	w = env.request(t, http.MethodPatch, statusPath, adminToken, map[string]string{"status": models.CommentStatusApproved})
	requireStatus(t, w, http.StatusOK)
	w = env.request(t, http.MethodPut, statusPath, adminToken, map[string]string{"status": models.CommentStatusApproved})
	requireStatus(t, w, http.StatusOK)

	// Approved comments appear publicly.
	w = env.request(t, http.MethodGet, listPath, "", nil)
	requireStatus(t, w, http.StatusOK)
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)
}

func TestAdminCommentsAutoApproved(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	_, adminToken := env.createUser(t, "admin", models.RoleAdmin)
	post := env.createPost(t, writer, "Admin Replies Here", models.PostStatusPublished)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), adminToken, map[string]interface{}{
		"content": "thanks for reading",
	})
	requireStatus(t, w, http.StatusCreated)
	var comment models.Comment
	data(t, w, &comment)
	require.Equal(t, models.CommentStatusApproved, comment.Status)
}

func TestCommentThreadingRules(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	_, userToken := env.createUser(t, "reader", models.RoleUser)
	postA := env.createPost(t, writer, "Thread A", models.PostStatusPublished)
	postB := env.createPost(t, writer, "Thread B", models.PostStatusPublished)

	parent := models.Comment{Content: "top level", PostID: postA.ID, AuthorID: &writer.ID, Status: models.CommentStatusApproved}
	require.NoError(t, env.db.Create(&parent).Error)

	pathA := fmt.Sprintf("/api/posts/%d/comments", postA.ID)
	pathB := fmt.Sprintf("/api/posts/%d/comments", postB.ID)

	// Reply on the same post is fine.
	w := env.request(t, http.MethodPost, pathA, userToken, map[string]interface{}{
		"content":  "a reply",
		"parentId": parent.ID,
	})
	requireStatus(t, w, http.StatusCreated)
	var reply models.Comment
	data(t, w, &reply)
	require.NotNil(t, reply.ParentID)

	// Parent must belong to the post being commented on.
	w = env.request(t, http.MethodPost, pathB, userToken, map[string]interface{}{
		"content":  "crossed wires",
		"parentId": parent.ID,
	})
	requireStatus(t, w, http.StatusBadRequest)

	// Replies to replies are rejected; threading is one level deep.
	w = env.request(t, http.MethodPost, pathA, userToken, map[string]interface{}{
		"content":  "reply to a reply",
		"parentId": reply.ID,
	})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestCommentEditAndDelete(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	author, authorToken := env.createUser(t, "author", models.RoleUser)
	_, otherToken := env.createUser(t, "other", models.RoleUser)
	post := env.createPost(t, writer, "Editable Thread", models.PostStatusPublished)

	comment := models.Comment{Content: "first draft", PostID: post.ID, AuthorID: &author.ID, Status: models.CommentStatusApproved}
	require.NoError(t, env.db.Create(&comment).Error)
	reply := models.Comment{Content: "child", PostID: post.ID, AuthorID: &author.ID, ParentID: &comment.ID, Status: models.CommentStatusApproved}
	require.NoError(t, env.db.Create(&reply).Error)

	path := fmt.Sprintf("/api/comments/%d", comment.ID)

	w := env.request(t, http.MethodPut, path, otherToken, map[string]string{"content": "hijacked"})
	requireStatus(t, w, http.StatusForbidden)

	w = env.request(t, http.MethodPut, path, authorToken, map[string]string{"content": "second draft"})
	requireStatus(t, w, http.StatusOK)
	var got models.Comment
	data(t, w, &got)
	require.Equal(t, "second draft", got.Content)

	// Deleting the parent takes its replies with it.
	w = env.request(t, http.MethodDelete, path, otherToken, nil)
	requireStatus(t, w, http.StatusForbidden)
	w = env.request(t, http.MethodDelete, path, authorToken, nil)
	requireStatus(t, w, http.StatusOK)

	var remaining int64
	require.NoError(t, env.db.Model(&models.Comment{}).
		Where("id IN ?", []uint{comment.ID, reply.ID}).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func TestCommentLengthCountsRunes(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	_, userToken := env.createUser(t, "reader", models.RoleUser)
	post := env.createPost(t, writer, "Long Comments", models.PostStatusPublished)

	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	// 600 three-byte runes exceed 1000 bytes but stay within the rune limit.
	w := env.request(t, http.MethodPost, path, userToken, map[string]interface{}{
		"content": strings.Repeat("語", 600),
	})
	requireStatus(t, w, http.StatusCreated)

	w = env.request(t, http.MethodPost, path, userToken, map[string]interface{}{
		"content": strings.Repeat("語", 1001),
	})
	requireStatus(t, w, http.StatusBadRequest)
	require.Contains(t, w.Body.String(), "1000")
}

func TestUnpublishedPostHidesItsThread(t *testing.T) {
	env := newTestEnv(t)
	writer, writerToken := env.createUser(t, "writer", models.RoleWriter)
	post := env.createPost(t, writer, "Retracted", models.PostStatusPublished)
	comment := models.Comment{Content: "still here?", PostID: post.ID, AuthorID: &writer.ID, Status: models.CommentStatusApproved}
	require.NoError(t, env.db.Create(&comment).Error)

	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	w := env.request(t, http.MethodGet, path, "", nil)
	requireStatus(t, w, http.StatusOK)

	require.NoError(t, env.db.Model(post).Update("status", models.PostStatusDraft).Error)

	// Once the post leaves the published state its thread goes with it.
	w = env.request(t, http.MethodGet, path, "", nil)
	requireStatus(t, w, http.StatusNotFound)

	// The author still sees the thread on their own draft.
	w = env.request(t, http.MethodGet, path, writerToken, nil)
	requireStatus(t, w, http.StatusOK)
	var listing struct {
		Count int `json:"count"`
	}
	decode(t, w, &listing)
	require.Equal(t, 1, listing.Count)
}

func TestCommentOnDraftPostRejected(t *testing.T) {
	env := newTestEnv(t)
	writer, _ := env.createUser(t, "writer", models.RoleWriter)
	_, userToken := env.createUser(t, "reader", models.RoleUser)
	draft := env.createPost(t, writer, "Unpublished", models.PostStatusDraft)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", draft.ID), userToken, map[string]interface{}{
		"content": "sneaky",
	})
	requireStatus(t, w, http.StatusNotFound)
}
