package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

type lineageEnv struct {
	documents *fakeDocumentStore
	versions  *fakeVersionStore
	svc       *LineageService
	author    *model.User
	reviewer  *model.User
}

func newLineageEnv(t *testing.T) *lineageEnv {
	t.Helper()
	docs := newFakeDocumentStore()
	env := &lineageEnv{
		documents: docs,
		versions:  newFakeVersionStore(docs),
		author:    &model.User{ID: "author", Username: "author", Roles: []string{model.RoleAuthor}},
		reviewer:  &model.User{ID: "reviewer", Username: "reviewer", Roles: []string{model.RoleReviewer}},
	}
	env.svc = NewLineageService(env.versions, env.documents, NewAuditService(newFakeAuditStore()))
	env.svc.now = func() int64 { return 5000 }

	require.NoError(t, env.documents.Create(context.Background(), &model.Document{
		ID: "d1", Number: "DOC-QA-20260901-0001", Title: "SOP", Department: "QA",
		OwnerID: "author", CurrentVersionID: "v1", Status: string(model.StatusPublished), State: 1,
	}))
	require.NoError(t, env.versions.Create(context.Background(), &model.DocumentVersion{
		ID: "v1", DocumentID: "d1", Major: 1, Minor: 0, Status: model.StatusPublished,
		ContentHTML: "<p>effective</p>", ContentHash: "hash-1", CreatedByID: "author",
	}))
	return env
}

const validReason = "routine periodic review of the procedure"

func TestCreateNewVersionMinor(t *testing.T) {
	env := newLineageEnv(t)

	draft, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v1",
		ChangeType:      model.ChangeMinor,
		ChangeReason:    validReason,
	}, env.author)
	require.NoError(t, err)
	require.Equal(t, 1, draft.Major)
	require.Equal(t, 1, draft.Minor)
	require.Equal(t, model.StatusDraft, draft.Status)
	require.Equal(t, "v1", draft.ParentVersionID)
	require.Equal(t, "<p>effective</p>", draft.ContentHTML)
	require.Equal(t, "hash-1", draft.ContentHash)

	// Source untouched, still the published one.
	source, err := env.versions.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	require.Equal(t, model.StatusPublished, source.Status)

	// Document now points at the new draft.
	doc, err := env.documents.GetByID(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, draft.ID, doc.CurrentVersionID)
	require.Equal(t, string(model.StatusDraft), doc.Status)
}

func TestCreateNewVersionMajorResetsMinor(t *testing.T) {
	env := newLineageEnv(t)

	draft, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v1",
		ChangeType:      model.ChangeMajor,
		ChangeReason:    validReason,
	}, env.author)
	require.NoError(t, err)
	require.Equal(t, 2, draft.Major)
	require.Equal(t, 0, draft.Minor)
}

func TestCreateNewVersionRequiresPublishedSource(t *testing.T) {
	env := newLineageEnv(t)
	require.NoError(t, env.versions.Create(context.Background(), &model.DocumentVersion{
		ID: "v2", DocumentID: "d1", Major: 1, Minor: 1, Status: model.StatusDraft,
	}))

	_, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v2",
		ChangeType:      model.ChangeMinor,
		ChangeReason:    validReason,
	}, env.author)
	require.ErrorIs(t, err, appErr.ErrValidation)
}

func TestCreateNewVersionReasonBounds(t *testing.T) {
	env := newLineageEnv(t)

	for _, reason := range []string{"", "too short", strings.Repeat("x", 1001)} {
		_, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
			SourceVersionID: "v1",
			ChangeType:      model.ChangeMinor,
			ChangeReason:    reason,
		}, env.author)
		require.ErrorIs(t, err, appErr.ErrValidation, "reason %q", reason)
	}
}

func TestCreateNewVersionInvalidChangeType(t *testing.T) {
	env := newLineageEnv(t)

	_, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v1",
		ChangeType:      model.ChangeType("Patch"),
		ChangeReason:    validReason,
	}, env.author)
	require.ErrorIs(t, err, appErr.ErrValidation)
}

func TestCreateNewVersionRoleGuard(t *testing.T) {
	env := newLineageEnv(t)

	_, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v1",
		ChangeType:      model.ChangeMinor,
		ChangeReason:    validReason,
	}, env.reviewer)
	require.ErrorIs(t, err, appErr.ErrForbidden)
}

func TestCreateNewVersionTwiceFromSameSource(t *testing.T) {
	env := newLineageEnv(t)

	first, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v1",
		ChangeType:      model.ChangeMinor,
		ChangeReason:    validReason,
	}, env.author)
	require.NoError(t, err)

	// A second branch off the same published source is another independent
	// draft, not a collision, even though both would become 1.1.
	second, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v1",
		ChangeType:      model.ChangeMinor,
		ChangeReason:    validReason,
	}, env.author)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, "v1", first.ParentVersionID)
	require.Equal(t, "v1", second.ParentVersionID)
	require.Equal(t, first.Major, second.Major)
	require.Equal(t, first.Minor, second.Minor)
	require.Equal(t, model.StatusDraft, first.Status)
	require.Equal(t, model.StatusDraft, second.Status)

	// The document tracks the latest branch as its working version.
	doc, err := env.documents.GetByID(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, second.ID, doc.CurrentVersionID)
}

func TestHistoryAndPublished(t *testing.T) {
	env := newLineageEnv(t)

	_, err := env.svc.CreateNewVersion(context.Background(), &CreateVersionInput{
		SourceVersionID: "v1",
		ChangeType:      model.ChangeMinor,
		ChangeReason:    validReason,
	}, env.author)
	require.NoError(t, err)

	history, err := env.svc.History(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	published, err := env.svc.Published(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, "v1", published.ID)
}
