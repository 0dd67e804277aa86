package server

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// URLOpener asks the host OS to open a link in the default browser.
type URLOpener interface {
	Open(url string) error
}

// SystemURLOpener shells out to the platform's opener.
type SystemURLOpener struct{}

func (SystemURLOpener) Open(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// providerDomains are never opened externally: console sessions must
// stay inside the extension's isolated containers, so routing them to
// the default browser would defeat the point of the bridge.
var providerDomains = []string{
	"signin.aws.amazon.com",
	"console.aws.amazon.com",
	"awsapps.com",
}

// ValidateExternalURL rejects URLs that must not leave the extension:
// non-HTTP schemes and anything on the provider's console, federation,
// or SSO portal domains.
func ValidateExternalURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("unparseable URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme")
	}

	host := strings.ToLower(parsed.Hostname())
	for _, domain := range providerDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return fmt.Errorf("provider console URLs cannot be opened externally")
		}
	}
	return nil
}
