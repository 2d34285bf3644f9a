package engine

import (
	stealth "github.com/anatolykoptev/go-stealth"
)

// BrowserClient re-exports the stealth client used for watch-page requests.
type BrowserClient = stealth.BrowserClient

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }
