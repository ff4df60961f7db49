package stealth

import (
	"math/rand"
	"time"

	gostealth "github.com/go-rod/stealth"
)

// JS is the full evasion bundle (navigator, plugins, WebGL, chrome.runtime...).
var JS = gostealth.JS

// WebdriverUndefinedJS hides navigator.webdriver on every new document.
const WebdriverUndefinedJS = `Object.defineProperty(navigator, 'webdriver', {
	get: () => undefined
})`

// UserAgents is the rotation pool for RandomUserAgent.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

func RandomUserAgent() string {
	return UserAgents[rand.Intn(len(UserAgents))]
}

// ThinkDelay simulates a user thinking before performing an action
func ThinkDelay(min, max int) {
	d := min
	if max > min {
		d += rand.Intn(max - min)
	}
	time.Sleep(time.Duration(d) * time.Millisecond)
}

type Typer interface {
	Type(text string) error
}

// TypeHuman types text one rune at a time with variable speed.
func TypeHuman(t Typer, text string) error {
	for _, r := range text {
		ThinkDelay(50, 200)
		if err := t.Type(string(r)); err != nil {
			return err
		}
	}
	return nil
}
