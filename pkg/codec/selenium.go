package codec

import (
	"fmt"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

// seleniumKeys maps well-known key names to selenium Keys constants.
var seleniumKeys = map[string]string{
	"Enter":      "Keys.ENTER",
	"Tab":        "Keys.TAB",
	"Escape":     "Keys.ESCAPE",
	"Backspace":  "Keys.BACKSPACE",
	"Delete":     "Keys.DELETE",
	"ArrowUp":    "Keys.ARROW_UP",
	"ArrowDown":  "Keys.ARROW_DOWN",
	"ArrowLeft":  "Keys.ARROW_LEFT",
	"ArrowRight": "Keys.ARROW_RIGHT",
}

type seleniumCompiler struct{}

func (seleniumCompiler) indent() string { return "" }

func (seleniumCompiler) comment(text string) string { return "# " + text }

func (seleniumCompiler) header(opts Options) []string {
	return []string{
		"from selenium import webdriver",
		"from selenium.webdriver.common.by import By",
		"from selenium.webdriver.common.keys import Keys",
		"from selenium.webdriver.common.action_chains import ActionChains",
		"from selenium.webdriver.support.ui import WebDriverWait, Select",
		"from selenium.webdriver.support import expected_conditions as EC",
		"import time",
		"",
		fmt.Sprintf("%s = webdriver.Chrome()", opts.DriverVar),
		"",
	}
}

func (seleniumCompiler) footer(opts Options) []string {
	return []string{"", fmt.Sprintf("%s.quit()", opts.DriverVar)}
}

func (c seleniumCompiler) statements(a *action.Action, opts Options) []string {
	d := opts.DriverVar
	find := func(selector string) string {
		return fmt.Sprintf("%s.find_element(By.CSS_SELECTOR, %s)", d, pyString(selector))
	}

	switch p := a.Payload.(type) {
	case *action.NavigatePayload:
		return []string{fmt.Sprintf("%s.get(%s)", d, pyString(p.URL))}
	case *action.ClickPayload:
		return []string{fmt.Sprintf("%s.click()", find(p.Selector))}
	case *action.TypePayload:
		if p.ClearFirst {
			return []string{
				fmt.Sprintf("element = %s", find(p.Selector)),
				"element.clear()",
				fmt.Sprintf("element.send_keys(%s)", pyString(p.Text)),
			}
		}
		return []string{fmt.Sprintf("%s.send_keys(%s)", find(p.Selector), pyString(p.Text))}
	case *action.ScrollPayload:
		if p.Selector != "" {
			return []string{fmt.Sprintf("%s.execute_script(\"arguments[0].scrollIntoView()\", %s)", d, find(p.Selector))}
		}
		return []string{fmt.Sprintf("%s.execute_script(\"window.scrollTo(%s, %s)\")", d, num(p.X), num(p.Y))}
	case *action.WaitPayload:
		if p.Duration > 0 {
			return []string{fmt.Sprintf("time.sleep(%s)", seconds(p.Duration))}
		}
		return []string{fmt.Sprintf(
			"WebDriverWait(%s, %s).until(EC.presence_of_element_located((By.CSS_SELECTOR, %s)))",
			d, seconds(p.Timeout), pyString(p.Selector),
		)}
	case *action.ScreenshotPayload:
		name := p.Name
		if name == "" {
			name = "screenshot"
		}
		return []string{fmt.Sprintf("%s.save_screenshot(%s)", d, pyString(name+".png"))}
	case *action.ExecuteScriptPayload:
		return []string{fmt.Sprintf("%s.execute_script(%s)", d, pyString(p.Script))}
	case *action.KeyPressPayload:
		key, ok := seleniumKeys[p.Key]
		if !ok {
			key = pyString(p.Key)
		}
		if p.Selector != "" {
			return []string{fmt.Sprintf("%s.send_keys(%s)", find(p.Selector), key)}
		}
		return []string{fmt.Sprintf("%s.switch_to.active_element.send_keys(%s)", d, key)}
	case *action.HoverPayload:
		return []string{fmt.Sprintf("ActionChains(%s).move_to_element(%s).perform()", d, find(p.Selector))}
	case *action.SelectPayload:
		return []string{fmt.Sprintf("Select(%s).select_by_value(%s)", find(p.Selector), pyString(p.First()))}
	case *action.CommentPayload:
		return []string{c.comment(p.Text)}
	default:
		return nil
	}
}
