package bot

import "encoding/json"

// FileConsentCard asks the user for permission to upload a file to their storage.
type FileConsentCard struct {
	Name           string         `json:"-"`
	Description    string         `json:"description"`
	SizeInBytes    int64          `json:"sizeInBytes"`
	AcceptContext  ConsentContext `json:"acceptContext"`
	DeclineContext ConsentContext `json:"declineContext"`
}

// ConsentContext round-trips through the card and comes back with the response.
type ConsentContext struct {
	ResultID string `json:"resultId"`
}

// FileUploadInfo describes where the accepted file goes and where it will live.
type FileUploadInfo struct {
	Name       string `json:"name"`
	UploadURL  string `json:"uploadUrl"`
	ContentURL string `json:"contentUrl"`
	UniqueID   string `json:"uniqueId"`
	FileType   string `json:"fileType"`
}

// FileInfoCard references an uploaded file.
type FileInfoCard struct {
	Name       string `json:"-"`
	ContentURL string `json:"-"`
	UniqueID   string `json:"uniqueId"`
	FileType   string `json:"fileType"`
}

func FileInfoFromUpload(u FileUploadInfo) *FileInfoCard {
	return &FileInfoCard{
		Name:       u.Name,
		ContentURL: u.ContentURL,
		UniqueID:   u.UniqueID,
		FileType:   u.FileType,
	}
}

const (
	ConsentAccept  = "accept"
	ConsentDecline = "decline"
)

// ConsentResponse is the value of a fileConsent/invoke activity.
type ConsentResponse struct {
	Action     string          `json:"action"`
	Context    json.RawMessage `json:"context,omitempty"`
	UploadInfo *FileUploadInfo `json:"uploadInfo,omitempty"`
}

// ResultID extracts the correlation id from the returned context. A missing
// or unreadable context yields "", which never matches a stored result.
func (r ConsentResponse) ResultID() string {
	var c ConsentContext
	if len(r.Context) == 0 || json.Unmarshal(r.Context, &c) != nil {
		return ""
	}
	return c.ResultID
}
