// Package dataset builds the read-only reference databases from their source
// files: the FDA Orange Book products file and the CMS Part D spending file.
// The build runs once; the engine only ever reads the result.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rxcost/rxcost/internal/model"

	"golang.org/x/text/encoding/charmap"
)

// The Orange Book products file is latin-1 encoded with tilde-separated
// columns and a header row.
const orangeBookSeparator = "~"

var requiredOrangeBookColumns = []string{
	"Ingredient", "DF;Route", "Trade_Name", "Strength",
	"Appl_Type", "Appl_No", "Product_No", "TE_Code",
}

// parseOrangeBook reads the products file into product identities. Normalized
// key columns are derived later, at insert time.
func parseOrangeBook(r io.Reader) ([]model.ProductIdentity, error) {
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read products header: %w", err)
		}
		return nil, fmt.Errorf("products file is empty")
	}

	columns := strings.Split(scanner.Text(), orangeBookSeparator)
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[strings.TrimSpace(c)] = i
	}

	var missing []string
	for _, c := range requiredOrangeBookColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("products file is missing expected columns: %s", strings.Join(missing, ", "))
	}

	field := func(parts []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(parts) {
			return ""
		}
		return strings.TrimSpace(parts[i])
	}

	var products []model.ProductIdentity
	line := 1
	for scanner.Scan() {
		line++
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parts := strings.Split(raw, orangeBookSeparator)
		if len(parts) < len(requiredOrangeBookColumns) {
			return nil, fmt.Errorf("products file line %d has %d fields", line, len(parts))
		}

		form, route := splitFormRoute(field(parts, "DF;Route"))

		applicant := field(parts, "Applicant_Full_Name")
		if applicant == "" {
			applicant = field(parts, "Applicant")
		}

		products = append(products, model.ProductIdentity{
			ApplType:   field(parts, "Appl_Type"),
			ApplNo:     field(parts, "Appl_No"),
			ProductNo:  field(parts, "Product_No"),
			TradeName:  field(parts, "Trade_Name"),
			Ingredient: field(parts, "Ingredient"),
			Strength:   field(parts, "Strength"),
			DosageForm: form,
			Route:      route,
			Applicant:  applicant,
			TECode:     field(parts, "TE_Code"),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products file: %w", err)
	}

	return products, nil
}

// splitFormRoute splits the combined Orange Book "DF;Route" field, e.g.
// "TABLET;ORAL", on its first semicolon.
func splitFormRoute(combined string) (form, route string) {
	if combined == "" {
		return "", ""
	}
	parts := strings.SplitN(combined, ";", 2)
	form = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		route = strings.TrimSpace(parts[1])
	}
	return form, route
}
