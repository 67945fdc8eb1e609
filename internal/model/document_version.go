package model

import "fmt"

type VersionStatus string

const (
	StatusDraft           VersionStatus = "DRAFT"
	StatusUnderReview     VersionStatus = "UNDER_REVIEW"
	StatusPendingApproval VersionStatus = "PENDING_APPROVAL"
	StatusApproved        VersionStatus = "APPROVED"
	StatusPublished       VersionStatus = "PUBLISHED"
	StatusObsolete        VersionStatus = "OBSOLETE"
	StatusArchived        VersionStatus = "ARCHIVED"
)

type ChangeType string

const (
	ChangeMinor ChangeType = "Minor"
	ChangeMajor ChangeType = "Major"
)

// DocumentVersion is one revision of a document's content. Content becomes
// immutable once the version reaches PUBLISHED; a published version is
// superseded (OBSOLETE) when a sibling publishes.
type DocumentVersion struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`

	Major int `json:"major"`
	Minor int `json:"minor"`

	ParentVersionID string     `json:"parent_version_id,omitempty"`
	ChangeType      ChangeType `json:"change_type,omitempty"`
	ChangeReason    string     `json:"change_reason,omitempty"`
	ChangeSummary   string     `json:"change_summary,omitempty"`

	ContentHTML string `json:"content_html,omitempty"`
	ContentHash string `json:"content_hash"`
	// LockVersion increments on every successful content save; it is
	// independent of edit locks.
	LockVersion int `json:"lock_version"`

	Status      VersionStatus `json:"status"`
	CreatedByID string        `json:"created_by_id"`

	SubmittedAt   int64  `json:"submitted_at,omitempty"`
	SubmittedByID string `json:"submitted_by_id,omitempty"`

	ReviewedAt   int64  `json:"reviewed_at,omitempty"`
	ReviewedByID string `json:"reviewed_by_id,omitempty"`

	ApprovedAt       int64  `json:"approved_at,omitempty"`
	ApprovedByID     string `json:"approved_by_id,omitempty"`
	ApprovalComments string `json:"approval_comments,omitempty"`

	PublishedAt   int64  `json:"published_at,omitempty"`
	PublishedByID string `json:"published_by_id,omitempty"`

	RejectedAt      int64  `json:"rejected_at,omitempty"`
	RejectedByID    string `json:"rejected_by_id,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	ArchivedAt   int64  `json:"archived_at,omitempty"`
	ArchivedByID string `json:"archived_by_id,omitempty"`

	ObsoletedAt int64 `json:"obsoleted_at,omitempty"`

	Ctime int64 `json:"ctime"`
	Mtime int64 `json:"mtime"`
}

func (v *DocumentVersion) VersionString() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// NextNumber computes the major.minor pair for a branch of this version:
// Minor keeps the major and bumps minor, Major bumps major and resets minor.
func (v *DocumentVersion) NextNumber(change ChangeType) (int, int) {
	if change == ChangeMajor {
		return v.Major + 1, 0
	}
	return v.Major, v.Minor + 1
}

// VersionSummary is the list-view shape; it deliberately omits content so
// listings stay cheap. Full content is fetched per version.
type VersionSummary struct {
	ID            string        `json:"id"`
	DocumentID    string        `json:"document_id"`
	Major         int           `json:"major"`
	Minor         int           `json:"minor"`
	Status        VersionStatus `json:"status"`
	ChangeSummary string        `json:"change_summary,omitempty"`
	CreatedByID   string        `json:"created_by_id"`
	Ctime         int64         `json:"ctime"`
	Mtime         int64         `json:"mtime"`
}
