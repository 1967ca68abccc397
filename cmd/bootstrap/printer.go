package bootstrap

import (
	"fmt"
	"os"
	"strings"
)

// PrintBannerFromFile reads the banner file and prints it line by line with
// a color gradient. A missing file is generated first.
func PrintBannerFromFile(filename string) error {
	if err := EnsureBannerFile(filename); err != nil {
		return fmt.Errorf("failed to ensure banner file: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	colors := []string{
		"\x1b[38;5;39m",
		"\x1b[38;5;45m",
		"\x1b[38;5;51m",
		"\x1b[38;5;87m",
		"\x1b[38;5;123m",
		"\x1b[38;5;159m",
	}

	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		color := colors[i%len(colors)]
		fmt.Println(color + line + "\x1b[0m")
	}
	return nil
}
