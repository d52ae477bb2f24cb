package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hedwig/internal/domain"
)

func TestSelectAutoOpen(t *testing.T) {
	pdfA := domain.Artifact{ID: "p1", Type: domain.ArtifactPDF, Name: "report.pdf"}
	pdfB := domain.Artifact{ID: "p2", Type: domain.ArtifactPDF, Name: "appendix.pdf"}
	code := domain.Artifact{ID: "c1", Type: domain.ArtifactCode, Name: "main.py"}
	code2 := domain.Artifact{ID: "c2", Type: domain.ArtifactCode, Name: "util.py"}
	text := domain.Artifact{ID: "t1", Type: domain.ArtifactText, Name: "notes.txt"}

	tests := []struct {
		name      string
		artifacts []domain.Artifact
		want      string
	}{
		{"nothing", nil, ""},
		{"single pdf", []domain.Artifact{text, pdfA, code}, "p1"},
		{"several pdfs", []domain.Artifact{pdfA, pdfB, code}, ""},
		{"first code", []domain.Artifact{text, code, code2}, "c1"},
		{"text only", []domain.Artifact{text}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectAutoOpen(tt.artifacts)
			assert.Equal(t, tt.want != "", ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}
