package export

import (
	"context"
	"fmt"
)

// Service renders assembled drafts into downloadable documents.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// HTML renders the printable HTML page for a draft.
func (s *Service) HTML(draft Draft) (string, error) {
	page, err := renderDraftHTML(draft)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return page, nil
}

// PDF renders a draft to PDF via headless Chrome.
func (s *Service) PDF(ctx context.Context, draft Draft) ([]byte, error) {
	page, err := s.HTML(draft)
	if err != nil {
		return nil, err
	}
	result, err := exportPDF(ctx, page, draft.Name)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// DOCX renders a draft to DOCX via pandoc.
func (s *Service) DOCX(ctx context.Context, draft Draft) ([]byte, error) {
	page, err := s.HTML(draft)
	if err != nil {
		return nil, err
	}
	result, err := exportDOCX(ctx, page, draft.Name)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Export generates an export in the requested format.
func (s *Service) Export(ctx context.Context, draft Draft, format Format) (*Result, error) {
	page, err := s.HTML(draft)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPDF:
		return exportPDF(ctx, page, draft.Name)
	case FormatDOCX:
		return exportDOCX(ctx, page, draft.Name)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
