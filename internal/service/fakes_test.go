package service

import (
	"context"
	"strings"
	"sync"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

// In-memory stores mirroring the semantics of internal/repo: unique
// constraints surface as ErrConflict, guarded updates report whether a row
// was written. All methods are safe for concurrent use so race scenarios can
// be exercised directly.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return appErr.ErrConflict
		}
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[string]*model.Document{}}
}

func (f *fakeDocumentStore) Create(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.Number == doc.Number {
			return appErr.ErrConflict
		}
	}
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeDocumentStore) GetByID(ctx context.Context, id string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.State != 1 {
		return nil, appErr.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (f *fakeDocumentStore) List(ctx context.Context, department, status string, limit, offset uint) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Document, 0)
	for _, d := range f.docs {
		if d.State != 1 {
			continue
		}
		if department != "" && d.Department != department {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDocumentStore) UpdateMeta(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[doc.ID]
	if !ok || d.State != 1 {
		return appErr.ErrNotFound
	}
	d.Title = doc.Title
	d.Description = doc.Description
	d.Department = doc.Department
	d.OwnerID = doc.OwnerID
	d.Mtime = doc.Mtime
	return nil
}

func (f *fakeDocumentStore) SetCurrentVersion(ctx context.Context, docID, versionID string, status model.VersionStatus, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[docID]
	if !ok || d.State != 1 {
		return appErr.ErrNotFound
	}
	d.CurrentVersionID = versionID
	d.Status = string(status)
	d.Mtime = now
	return nil
}

func (f *fakeDocumentStore) SetStatusIfCurrent(ctx context.Context, docID, versionID string, status model.VersionStatus, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[docID]
	if !ok || d.State != 1 || d.CurrentVersionID != versionID {
		return nil
	}
	d.Status = string(status)
	d.Mtime = now
	return nil
}

func (f *fakeDocumentStore) SoftDelete(ctx context.Context, docID string, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[docID]
	if !ok || d.State != 1 {
		return appErr.ErrNotFound
	}
	d.State = 2
	d.Mtime = now
	return nil
}

func (f *fakeDocumentStore) setPublished(docID, versionID string, now int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[docID]
	if !ok {
		return
	}
	d.CurrentVersionID = versionID
	d.Status = string(model.StatusPublished)
	d.Mtime = now
}

func (f *fakeDocumentStore) MaxNumber(ctx context.Context, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := ""
	for _, d := range f.docs {
		if strings.HasPrefix(d.Number, prefix) && d.Number > max {
			max = d.Number
		}
	}
	if max == "" {
		return "", appErr.ErrNotFound
	}
	return max, nil
}

type fakeVersionStore struct {
	mu       sync.Mutex
	docs     *fakeDocumentStore
	versions map[string]*model.DocumentVersion
}

func newFakeVersionStore(docs *fakeDocumentStore) *fakeVersionStore {
	return &fakeVersionStore{docs: docs, versions: map[string]*model.DocumentVersion{}}
}

// Version numbers are not unique among drafts; only the partial unique index
// on published versions exists, mirrored in Publish below.
func (f *fakeVersionStore) Create(ctx context.Context, v *model.DocumentVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.versions[v.ID]; exists {
		return appErr.ErrConflict
	}
	clone := *v
	f.versions[v.ID] = &clone
	return nil
}

func (f *fakeVersionStore) GetByID(ctx context.Context, id string) (*model.DocumentVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

func (f *fakeVersionStore) ListByDocument(ctx context.Context, docID string) ([]model.VersionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.VersionSummary, 0)
	for _, v := range f.versions {
		if v.DocumentID != docID {
			continue
		}
		out = append(out, model.VersionSummary{
			ID:            v.ID,
			DocumentID:    v.DocumentID,
			Major:         v.Major,
			Minor:         v.Minor,
			Status:        v.Status,
			ChangeSummary: v.ChangeSummary,
			CreatedByID:   v.CreatedByID,
			Ctime:         v.Ctime,
			Mtime:         v.Mtime,
		})
	}
	return out, nil
}

func (f *fakeVersionStore) ReplaceContent(ctx context.Context, id, content, hash, baseHash string, now int64) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok || v.Status != model.StatusDraft {
		return 0, false, nil
	}
	if baseHash != "" && v.ContentHash != baseHash {
		return 0, false, nil
	}
	v.ContentHTML = content
	v.ContentHash = hash
	v.LockVersion++
	v.Mtime = now
	return v.LockVersion, true, nil
}

func (f *fakeVersionStore) Transition(ctx context.Context, id string, from, to model.VersionStatus, set map[string]interface{}, now int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok || v.Status != from {
		return false, nil
	}
	v.Status = to
	v.Mtime = now
	applyVersionFields(v, set)
	return true, nil
}

// Publish mirrors VersionRepo.Publish: obsolete published siblings, promote
// the approved version, repoint the document row.
func (f *fakeVersionStore) Publish(ctx context.Context, docID, versionID, userID string, now int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[versionID]
	if !ok || v.Status != model.StatusApproved {
		return false, nil
	}
	for _, sibling := range f.versions {
		if sibling.DocumentID == docID && sibling.ID != versionID && sibling.Status == model.StatusPublished {
			sibling.Status = model.StatusObsolete
			sibling.ObsoletedAt = now
			sibling.Mtime = now
		}
	}
	v.Status = model.StatusPublished
	v.PublishedAt = now
	v.PublishedByID = userID
	v.Mtime = now
	f.docs.setPublished(docID, versionID, now)
	return true, nil
}

func (f *fakeVersionStore) GetPublished(ctx context.Context, docID string) (*model.DocumentVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.DocumentID == docID && v.Status == model.StatusPublished {
			clone := *v
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeVersionStore) UpdateChangeSummary(ctx context.Context, id, summary string, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok || v.Status != model.StatusDraft {
		return appErr.ErrNotFound
	}
	v.ChangeSummary = summary
	v.Mtime = now
	return nil
}

func applyVersionFields(v *model.DocumentVersion, set map[string]interface{}) {
	for key, value := range set {
		switch key {
		case "submitted_at":
			v.SubmittedAt = value.(int64)
		case "submitted_by_id":
			v.SubmittedByID = value.(string)
		case "reviewed_at":
			v.ReviewedAt = value.(int64)
		case "reviewed_by_id":
			v.ReviewedByID = value.(string)
		case "approved_at":
			v.ApprovedAt = value.(int64)
		case "approved_by_id":
			v.ApprovedByID = value.(string)
		case "approval_comments":
			v.ApprovalComments = value.(string)
		case "rejected_at":
			v.RejectedAt = value.(int64)
		case "rejected_by_id":
			v.RejectedByID = value.(string)
		case "rejection_reason":
			v.RejectionReason = value.(string)
		case "archived_at":
			v.ArchivedAt = value.(int64)
		case "archived_by_id":
			v.ArchivedByID = value.(string)
		}
	}
}

type fakeLockStore struct {
	mu    sync.Mutex
	locks map[string]*model.EditLock
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{locks: map[string]*model.EditLock{}}
}

func (f *fakeLockStore) Insert(ctx context.Context, lock *model.EditLock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.locks[lock.VersionID]; exists {
		return appErr.ErrConflict
	}
	clone := *lock
	f.locks[lock.VersionID] = &clone
	return nil
}

func (f *fakeLockStore) GetByVersion(ctx context.Context, versionID string) (*model.EditLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[versionID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *l
	return &clone, nil
}

func (f *fakeLockStore) Refresh(ctx context.Context, versionID, currentToken, newToken string, expiresAt, heartbeatAt int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[versionID]
	if !ok || l.Token != currentToken {
		return false, nil
	}
	l.Token = newToken
	l.ExpiresAt = expiresAt
	l.LastHeartbeat = heartbeatAt
	return true, nil
}

func (f *fakeLockStore) Delete(ctx context.Context, versionID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[versionID]
	if ok && l.Token == token {
		delete(f.locks, versionID)
	}
	return nil
}

func (f *fakeLockStore) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for versionID, l := range f.locks {
		if l.ExpiresAt < before {
			delete(f.locks, versionID)
			deleted++
		}
	}
	return deleted, nil
}

type fakeViewStore struct {
	mu    sync.Mutex
	views map[string]*model.DocumentView
}

func newFakeViewStore() *fakeViewStore {
	return &fakeViewStore{views: map[string]*model.DocumentView{}}
}

func viewKey(versionID, userID string) string {
	return versionID + "|" + userID
}

func (f *fakeViewStore) Upsert(ctx context.Context, view *model.DocumentView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := viewKey(view.VersionID, view.UserID)
	if _, exists := f.views[key]; exists {
		return nil
	}
	clone := *view
	f.views[key] = &clone
	return nil
}

func (f *fakeViewStore) Get(ctx context.Context, versionID, userID string) (*model.DocumentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.views[viewKey(versionID, userID)]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func newFakeAuditStore() *fakeAuditStore {
	return &fakeAuditStore{}
}

func (f *fakeAuditStore) Create(ctx context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context, entityType, entityID string, limit, offset uint) ([]model.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AuditLog, 0)
	for _, e := range f.entries {
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		if entityID != "" && e.EntityID != entityID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAuditStore) DeleteOlderThan(ctx context.Context, before int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[:0]
	var deleted int64
	for _, e := range f.entries {
		if e.Ctime < before {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}
