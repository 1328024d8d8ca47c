package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the program and arguments that open url.
//
// $BROWSER wins over the platform default; a "%s" in it is replaced by the url.
func browserCommand(url string) (string, []string, error) {
	if custom := strings.TrimSpace(os.Getenv("BROWSER")); custom != "" {
		fields := strings.Fields(custom)
		args := make([]string, 0, len(fields))
		substituted := false
		for _, f := range fields[1:] {
			if strings.Contains(f, "%s") {
				f = strings.ReplaceAll(f, "%s", url)
				substituted = true
			}
			args = append(args, f)
		}
		if !substituted {
			args = append(args, url)
		}
		return fields[0], args, nil
	}

	switch rt := getRuntime(); rt {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// OpenBrowser starts the sign-in page in the user's browser without waiting for it.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(url)
	if err != nil {
		return err
	}
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
