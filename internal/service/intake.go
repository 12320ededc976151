package service

import (
	"strings"
	"sync"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
)

// CSVExtension is the only extension Accept lets through, compared case-insensitively.
const CSVExtension = ".csv"

// Accept validates a candidate file before it may be uploaded. Only presence
// and the extension are checked; the content is Backend 1's concern.
func Accept(candidate *domain.CandidateFile) (*domain.CsvFileHandle, error) {
	if candidate == nil || candidate.Open == nil {
		return nil, &domain.ErrValidation{Field: "file", Message: "Nenhum arquivo selecionado."}
	}
	if !strings.HasSuffix(strings.ToLower(candidate.Name), CSVExtension) {
		return nil, &domain.ErrValidation{Field: "file", Message: "Por favor, selecione um arquivo CSV válido."}
	}
	return &domain.CsvFileHandle{
		Name: candidate.Name,
		Size: candidate.Size,
		Open: candidate.Open,
	}, nil
}

// Intake holds the file currently selected for upload. A rejected selection
// clears whatever was held before.
type Intake struct {
	mu       sync.Mutex
	selected *domain.CsvFileHandle
}

// Select validates candidate and holds it on success.
func (in *Intake) Select(candidate *domain.CandidateFile) (*domain.CsvFileHandle, error) {
	handle, err := Accept(candidate)

	in.mu.Lock()
	in.selected = handle
	in.mu.Unlock()

	return handle, err
}

func (in *Intake) Selected() (*domain.CsvFileHandle, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.selected, in.selected != nil
}

func (in *Intake) Clear() {
	in.mu.Lock()
	in.selected = nil
	in.mu.Unlock()
}
