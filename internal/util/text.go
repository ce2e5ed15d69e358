package util

import (
	"bufio"
	"os"
	"strings"
)

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// Truncate shortens value to at most max characters, appending "..." when
// something was cut. Paragraph and title columns have bounded widths.
func Truncate(value string, max int) string {
	if len(value) < max {
		return value
	}
	return value[:max] + "..."
}

// LoadBlocklist reads a synonym blocklist file, one synonym per line, and
// returns the lowercased entries as a set. Empty lines are skipped.
func LoadBlocklist(fileName string) (map[string]struct{}, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	blocklist := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if entry == "" {
			continue
		}
		blocklist[entry] = struct{}{}
	}
	return blocklist, scanner.Err()
}
