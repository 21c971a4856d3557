package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/huangang/taskmanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_CreateAndList(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@x.com")
	other := createTestUser(t, db, "other@x.com")
	task := seedTask(t, db, owner, "t", models.TaskStatusPending, 1, time.Now().UTC())

	first, err := svc.Create(ctx, owner.ID, &CreateCommentRequest{Content: "first", TaskID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, first.AuthorID)
	require.NotNil(t, first.Author)
	assert.Equal(t, "owner@x.com", first.Author.Email)

	require.NoError(t, db.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)

	second, err := svc.Create(ctx, other.ID, &CreateCommentRequest{Content: "  second  ", TaskID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, "second", second.Content)

	list, err := svc.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
}

func TestCommentService_CreateValidation(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@x.com")
	task := seedTask(t, db, owner, "t", models.TaskStatusPending, 1, time.Now().UTC())

	_, err := svc.Create(ctx, owner.ID, &CreateCommentRequest{Content: "   ", TaskID: task.ID})
	assert.True(t, IsKind(err, KindValidation))

	_, err = svc.Create(ctx, owner.ID, &CreateCommentRequest{Content: strings.Repeat("a", maxCommentLength+1), TaskID: task.ID})
	assert.True(t, IsKind(err, KindValidation))

	_, err = svc.Create(ctx, owner.ID, &CreateCommentRequest{Content: strings.Repeat("é", maxCommentLength), TaskID: task.ID})
	assert.NoError(t, err, "length is counted in characters")

	_, err = svc.Create(ctx, owner.ID, &CreateCommentRequest{Content: "hi", TaskID: "00000000-0000-4000-8000-000000000000"})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCommentService_UpdateAuthorOnly(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@x.com")
	other := createTestUser(t, db, "other@x.com")
	task := seedTask(t, db, owner, "t", models.TaskStatusPending, 1, time.Now().UTC())

	comment, err := svc.Create(ctx, other.ID, &CreateCommentRequest{Content: "orig", TaskID: task.ID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner.ID, comment.ID, &UpdateCommentRequest{Content: "edited by owner"})
	assert.True(t, IsKind(err, KindForbidden), "task owner cannot edit someone else's comment")

	updated, err := svc.Update(ctx, other.ID, comment.ID, &UpdateCommentRequest{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	_, err = svc.Update(ctx, other.ID, "missing", &UpdateCommentRequest{Content: "x"})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCommentService_DeletePermissions(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@x.com")
	author := createTestUser(t, db, "author@x.com")
	stranger := createTestUser(t, db, "stranger@x.com")
	task := seedTask(t, db, owner, "t", models.TaskStatusPending, 1, time.Now().UTC())

	c1, err := svc.Create(ctx, author.ID, &CreateCommentRequest{Content: "one", TaskID: task.ID})
	require.NoError(t, err)
	c2, err := svc.Create(ctx, author.ID, &CreateCommentRequest{Content: "two", TaskID: task.ID})
	require.NoError(t, err)

	assert.True(t, IsKind(svc.Delete(ctx, stranger.ID, c1.ID), KindForbidden))
	assert.NoError(t, svc.Delete(ctx, author.ID, c1.ID))
	assert.NoError(t, svc.Delete(ctx, owner.ID, c2.ID), "task owner may delete comments on the task")
	assert.True(t, IsKind(svc.Delete(ctx, owner.ID, c2.ID), KindNotFound))
}
