package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// copyToClipboardFn and openURLFn are swapped out by tests through
// StubPlatformActions.
var (
	copyToClipboardFn = copyToClipboardImpl
	openURLFn         = openURLImpl
	lookPath          = exec.LookPath
)

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) error { return copyToClipboardFn(text) }

// OpenURL hands a watch URL to the platform's default handler, which plays
// the video in the browser or a registered player.
func OpenURL(url string) error { return openURLFn(url) }

// StubPlatformActions replaces clipboard and open with no-ops and returns
// a restore function.
func StubPlatformActions() (restore func()) {
	origCopy, origOpen := copyToClipboardFn, openURLFn
	copyToClipboardFn = func(string) error { return nil }
	openURLFn = func(string) error { return nil }
	return func() {
		copyToClipboardFn = origCopy
		openURLFn = origOpen
	}
}

// clipboardCommand picks the clipboard writer for goos.
func clipboardCommand(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"pbcopy"}, nil
	case "windows":
		return []string{"clip"}, nil
	case "linux", "freebsd", "openbsd":
		candidates := [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
		for _, c := range candidates {
			if _, err := lookPath(c[0]); err == nil {
				return c, nil
			}
		}
		return nil, fmt.Errorf("no clipboard command found (install wl-clipboard, xclip or xsel)")
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// openCommand picks the URL opener for goos.
func openCommand(goos, url string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"open", url}, nil
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd":
		if _, err := lookPath("xdg-open"); err != nil {
			return nil, fmt.Errorf("xdg-open not found (install xdg-utils)")
		}
		return []string{"xdg-open", url}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

func copyToClipboardImpl(text string) error {
	args, err := clipboardCommand(runtime.GOOS)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// openURLImpl does not wait: the player outlives the browser session.
func openURLImpl(url string) error {
	args, err := openCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return exec.CommandContext(context.Background(), args[0], args[1:]...).Start()
}
