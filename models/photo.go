package models

import "time"

// SpeciesPhoto belongs to exactly one species. Approved and rejected are
// mutually exclusive terminal markers; a pending photo carries neither. At
// most one photo per species is flagged primary.
type SpeciesPhoto struct {
	PhotoID      uint       `gorm:"primaryKey;column:photo_id" json:"photo_id"`
	SpeciesID    uint       `gorm:"column:species_id;index" json:"species_id"`
	OriginalName string     `gorm:"column:original_name" json:"original_name"`
	StoredPath   string     `gorm:"column:stored_path" json:"stored_path"`
	MimeType     string     `gorm:"column:mime_type" json:"mime_type"`
	FileSize     int64      `gorm:"column:file_size" json:"file_size"`
	Caption      *string    `gorm:"column:caption" json:"caption,omitempty"`
	IsPrimary    bool       `gorm:"column:is_primary;default:false" json:"is_primary"`
	Approved     bool       `gorm:"column:approved;default:false" json:"approved"`
	Rejected     bool       `gorm:"column:rejected;default:false" json:"rejected"`
	ReviewedBy   *uint      `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	UploadedBy   uint       `gorm:"column:uploaded_by" json:"uploaded_by"`
	UploadedAt   time.Time  `gorm:"column:uploaded_at" json:"uploaded_at"`
}

// TableName specifies the table for SpeciesPhoto.
func (SpeciesPhoto) TableName() string {
	return "species_photos"
}

// Pending reports whether the photo still awaits a reviewer decision.
func (p *SpeciesPhoto) Pending() bool {
	return !p.Approved && !p.Rejected
}

// IsValidImageType mirrors the upload-side whitelist.
func (p *SpeciesPhoto) IsValidImageType() bool {
	validTypes := []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}
	for _, validType := range validTypes {
		if p.MimeType == validType {
			return true
		}
	}
	return false
}
