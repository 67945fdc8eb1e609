package model

type Attachment struct {
	ID           string `json:"id"`
	VersionID    string `json:"version_id"`
	FileName     string `json:"file_name"`
	ContentType  string `json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	StoreKey     string `json:"-"`
	UploadedByID string `json:"uploaded_by_id"`
	Ctime        int64  `json:"ctime"`
}
