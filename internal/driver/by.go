package driver

import (
	"fmt"
	"strings"
)

// By is a locator strategy.
type By string

const (
	ByID              By = "id"
	ByXPath           By = "xpath"
	ByLinkText        By = "link text"
	ByPartialLinkText By = "partial link text"
	ByName            By = "name"
	ByTagName         By = "tag name"
	ByClassName       By = "class name"
	ByCSS             By = "css selector"
)

// Locate turns a strategy and selector into either a CSS selector or, when
// xpath is true, an XPath expression.
func Locate(by By, selector string) (query string, xpath bool, err error) {
	switch by {
	case ByCSS:
		return selector, false, nil
	case ByXPath:
		return selector, true, nil
	case ByID:
		return fmt.Sprintf(`[id=%s]`, cssString(selector)), false, nil
	case ByName:
		return fmt.Sprintf(`[name=%s]`, cssString(selector)), false, nil
	case ByTagName:
		return selector, false, nil
	case ByClassName:
		if strings.ContainsAny(selector, " \t") {
			return "", false, fmt.Errorf("compound class names are not permitted: %q", selector)
		}
		return "." + selector, false, nil
	case ByLinkText:
		return fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathString(selector)), true, nil
	case ByPartialLinkText:
		return fmt.Sprintf(`//a[contains(., %s)]`, xpathString(selector)), true, nil
	}
	return "", false, fmt.Errorf("unknown locator strategy %q", by)
}

func cssString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func xpathString(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	return `concat("` + strings.Join(parts, `", '"', "`) + `")`
}
