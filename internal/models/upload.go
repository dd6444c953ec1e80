package models

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindPDF   MediaKind = "pdf"
)

// Upload - загруженный медиафайл. Его ID используется как mediaId в шоукейсах.
type Upload struct {
	BaseModel
	UserID          string    `gorm:"size:64;not null;index" json:"user_id"`
	Kind            MediaKind `gorm:"size:16;not null" json:"kind"`
	Path            string    `gorm:"not null" json:"-"`
	MimeType        string    `gorm:"size:100" json:"mime_type"`
	Size            int64     `json:"size"`
	IsPublic        bool      `gorm:"default:false" json:"is_public"`
	OriginalName    string    `json:"original_name"`
	URL             string    `json:"url"`
	ThumbnailPath   string    `json:"-"`
	StorageProvider string    `gorm:"size:16;default:'local'" json:"storage_provider"` // 'local', 's3'
	ExifStripped    bool      `gorm:"default:false" json:"exif_stripped"`
}
