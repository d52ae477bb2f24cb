package usecase

import "hedwig/internal/domain"

// SelectAutoOpen picks the artifact a front end should open after a task.
// A single PDF wins; several PDFs are ambiguous and nothing opens. Without
// PDFs the first code artifact is chosen.
func SelectAutoOpen(artifacts []domain.Artifact) (domain.Artifact, bool) {
	var pdfs []domain.Artifact
	for _, a := range artifacts {
		if a.Type == domain.ArtifactPDF {
			pdfs = append(pdfs, a)
		}
	}
	switch len(pdfs) {
	case 1:
		return pdfs[0], true
	case 0:
	default:
		return domain.Artifact{}, false
	}

	for _, a := range artifacts {
		if a.Type == domain.ArtifactCode {
			return a, true
		}
	}
	return domain.Artifact{}, false
}
