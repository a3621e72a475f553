package config

import (
	"fmt"
	"strings"
)

const (
	// ProdDbId is the identifier for the production database
	ProdDbId = "old-cloud"
)

// CheckNotProdDB returns an error if the database URL is empty or points at production.
// Call it at the start of any test that writes to the database.
func CheckNotProdDB(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DatabaseURL is not configured")
	}
	if strings.Contains(databaseURL, ProdDbId) {
		return fmt.Errorf("DatabaseURL contains production identifier %s", ProdDbId)
	}
	return nil
}
