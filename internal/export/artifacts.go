package export

import (
	"bytes"
	"fmt"

	"weather-qc/internal/models"
)

// Content types of rendered artifacts
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileNames names the rendered artifacts
type FileNames struct {
	Data     string
	Ledger   string
	Workbook string // empty disables the workbook
}

// Artifact is one rendered output file
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Render renders the data file, the ledger file and, when named, the workbook
func Render(result *models.QCResult, names FileNames) ([]Artifact, error) {
	var data, ledger bytes.Buffer
	if err := WriteRecords(&data, result.After); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", names.Data, err)
	}
	if err := WriteLedger(&ledger, result.Ledger); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", names.Ledger, err)
	}

	artifacts := []Artifact{
		{Name: names.Data, ContentType: ContentTypeText, Data: data.Bytes()},
		{Name: names.Ledger, ContentType: ContentTypeText, Data: ledger.Bytes()},
	}

	if names.Workbook != "" {
		var wb bytes.Buffer
		if err := WriteWorkbook(&wb, result); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", names.Workbook, err)
		}
		artifacts = append(artifacts, Artifact{Name: names.Workbook, ContentType: ContentTypeXLSX, Data: wb.Bytes()})
	}

	return artifacts, nil
}
