// Package parsers implements the section-aware reader for IBKR Activity
// Statement CSV exports. Activity statements are multi-section files where
// each row starts with a section name and a row type (Header, Data, Total,
// SubTotal); different sections have different column layouts.
package parsers

import (
	"encoding/csv"
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadGrid reads an entire delimited statement file into rows of string
// cells, in file order. The whole file is loaded up front; statements are
// small enough that streaming is not worth the complexity.
func ReadGrid(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening statement file: %w", err)
	}
	defer file.Close()

	// Broker exports are sometimes written with a UTF-8 BOM.
	decoder := unicode.UTF8BOM.NewDecoder()
	reader := csv.NewReader(transform.NewReader(file, decoder))
	// Sections have different column counts.
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement file %s: %w", filePath, err)
	}
	return rows, nil
}
