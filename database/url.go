package database

import (
	"net/url"
	"strings"
)

// ConstructDatabaseURL joins the DATABASE_URL base with DATABASE_NAME and
// defaults sslmode to disable. An empty name returns the base unchanged so a
// fully qualified DATABASE_URL keeps working.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, _ := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	base = strings.TrimRight(base, "/")

	params, err := url.ParseQuery(query)
	if err != nil {
		params = url.Values{}
	}

	full := base + "/" + databaseName
	if query != "" {
		full += "?" + query
	}
	if params.Get("sslmode") == "" {
		if query == "" {
			full += "?sslmode=disable"
		} else {
			full += "&sslmode=disable"
		}
	}
	return full
}
