package domain

import (
	"path/filepath"
	"strings"
)

// ArtifactType classifies a file-like tool output.
type ArtifactType string

const (
	ArtifactCode     ArtifactType = "code"
	ArtifactPDF      ArtifactType = "pdf"
	ArtifactDocument ArtifactType = "document"
	ArtifactText     ArtifactType = "text"
	ArtifactImage    ArtifactType = "image"
	ArtifactData     ArtifactType = "data"
)

// Artifact is a file-like output produced by a tool.
type Artifact struct {
	ID       string            `json:"id"`
	Type     ArtifactType      `json:"type"`
	Name     string            `json:"name"`
	Path     string            `json:"path,omitempty"`
	Content  string            `json:"content,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

var extensionTypes = map[string]ArtifactType{
	".pdf":  ArtifactPDF,
	".go":   ArtifactCode,
	".py":   ArtifactCode,
	".js":   ArtifactCode,
	".ts":   ArtifactCode,
	".java": ArtifactCode,
	".c":    ArtifactCode,
	".cpp":  ArtifactCode,
	".rs":   ArtifactCode,
	".rb":   ArtifactCode,
	".sh":   ArtifactCode,
	".sql":  ArtifactCode,
	".html": ArtifactCode,
	".css":  ArtifactCode,
	".docx": ArtifactDocument,
	".doc":  ArtifactDocument,
	".md":   ArtifactDocument,
	".txt":  ArtifactText,
	".log":  ArtifactText,
	".png":  ArtifactImage,
	".jpg":  ArtifactImage,
	".jpeg": ArtifactImage,
	".gif":  ArtifactImage,
	".svg":  ArtifactImage,
	".json": ArtifactData,
	".csv":  ArtifactData,
	".yaml": ArtifactData,
	".yml":  ArtifactData,
}

// ArtifactTypeForPath infers the artifact type from a file extension.
// Unknown extensions are treated as text.
func ArtifactTypeForPath(path string) ArtifactType {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return ArtifactText
}
