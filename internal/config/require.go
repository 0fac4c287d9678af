package config

import (
	"log"
	"strings"
)

// RecordStoreMissing lists the settings the record store binary cannot run
// without, by env name.
func (c Config) RecordStoreMissing() []string {
	var missing []string
	if c.DatabaseURL == "" && c.RecordDBPath == "" {
		missing = append(missing, "DATABASE_URL|RECORD_DB_PATH")
	}
	if c.ServerPort <= 0 {
		missing = append(missing, "SERVER_PORT")
	}
	if c.ESURL != "" && c.ESIndex == "" {
		missing = append(missing, "ES_INDEX")
	}
	if c.ESUser != "" && c.ESPassword == "" {
		missing = append(missing, "ES_PASSWORD")
	}
	return missing
}

// MustRecordStore exits when RecordStoreMissing reports anything.
func (c Config) MustRecordStore() {
	if missing := c.RecordStoreMissing(); len(missing) > 0 {
		log.Fatalf("missing required env %s", strings.Join(missing, ", "))
	}
}
