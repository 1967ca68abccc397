package bootstrap

import (
	"fmt"
	"os"
)

const defaultBanner = `  ___  _____ _   _ _____ _____
 / _ \|_   _| | | |_   _|  _  |
/ /_\ \ | | | | | | | | | | | |
|  _  | | | | | | | | | | | | |
| | | |_| |_\ \_/ /_| |_\ \_/ /
\_| |_/\___/ \___/ \___/ \___/ `

// EnsureBannerFile writes the default banner when the file is missing so a
// fresh checkout starts without extra setup.
func EnsureBannerFile(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		fmt.Printf("Banner file not found, generating %s...\n", filename)
		return os.WriteFile(filename, []byte(defaultBanner), 0644)
	}
	return nil
}
