package model

type Document struct {
	ID               string `json:"id"`
	Number           string `json:"number"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Department       string `json:"department"`
	OwnerID          string `json:"owner_id"`
	CreatedByID      string `json:"created_by_id"`
	CurrentVersionID string `json:"current_version_id"`
	// Status mirrors the current version's workflow status for cheap list
	// filtering; the version row stays authoritative.
	Status string `json:"status"`
	State  int    `json:"state"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}
