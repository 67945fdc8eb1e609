package model

// DocumentView records that a user opened a version's content. Workflow
// actions (approve, reject, publish, archive) require a view record so a
// review cannot be rubber-stamped unseen.
type DocumentView struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	VersionID  string `json:"version_id"`
	UserID     string `json:"user_id"`
	ViewedAt   int64  `json:"viewed_at"`
}
