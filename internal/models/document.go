package models

import (
	"time"
)

// RawUpload is one file as received at the upload boundary. Filenames are
// de-duplicated against siblings in the same batch before extraction.
type RawUpload struct {
	Filename string
	Content  []byte
	Size     int64
	FileType string // lowercased extension, including the dot
}

// DocMetadata is the structural metadata captured during extraction.
type DocMetadata struct {
	SizeKB    int64  `json:"sizeKb"`
	FileType  string `json:"fileType"`
	PageCount *int   `json:"pageCount,omitempty"`
	Language  string `json:"language"` // ISO code or "unk"
}

// ExtractedDocument is the extractor's output for one upload. Text is empty
// when extraction failed; that is a valid outcome, not an error.
type ExtractedDocument struct {
	Filename string      `json:"filename"`
	Content  []byte      `json:"-"`
	Text     string      `json:"text"`
	Metadata DocMetadata `json:"metadata"`
}

// OrganizedDocument is the terminal pipeline artifact: an extracted document
// annotated with its folder assignment and 2-D visualization coordinates.
type OrganizedDocument struct {
	ExtractedDocument
	Folder string  `json:"folder"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// MetadataRecord is what the best-effort persistence path stores per document.
type MetadataRecord struct {
	Filename     string    `json:"filename"`
	FileSizeKB   int64     `json:"fileSizeKb"`
	FileType     string    `json:"fileType"`
	PageCount    *int      `json:"pageCount,omitempty"`
	Language     string    `json:"language"`
	ClusterLabel string    `json:"clusterLabel"`
	XCoord       float64   `json:"xCoord"`
	YCoord       float64   `json:"yCoord"`
	ProcessedAt  time.Time `json:"processedAt"`
}

// NewMetadataRecord builds the persistence record for one organized document.
func NewMetadataRecord(doc OrganizedDocument, at time.Time) MetadataRecord {
	return MetadataRecord{
		Filename:     doc.Filename,
		FileSizeKB:   doc.Metadata.SizeKB,
		FileType:     doc.Metadata.FileType,
		PageCount:    doc.Metadata.PageCount,
		Language:     doc.Metadata.Language,
		ClusterLabel: doc.Folder,
		XCoord:       doc.X,
		YCoord:       doc.Y,
		ProcessedAt:  at,
	}
}
