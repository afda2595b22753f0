package automation

import (
	"regexp"
	"strings"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
)

// Candidate nodes for the approval number. The number is rendered as the most
// prominent text on the page, so prominence is decided by font size alone.
const digitNodeSelector = "h1, h2, h3, .h0, .h1, .h2, .f0, .f1, .f2, .f3, strong, b, p, span, div"

var approvalDigitPattern = regexp.MustCompile(`^\d{2,3}$`)

// ExtractApprovalDigit scans visible text nodes for a 2-3 digit token and
// returns the one with the largest rendered font size. Returns "" when no
// node matches; callers must tolerate the absence of a digit.
func ExtractApprovalDigit(s port.Session) string {
	nodes, err := s.FindAll(digitNodeSelector)
	if err != nil {
		return ""
	}

	best := ""
	bestFontPx := -1.0

	for _, node := range nodes {
		if !node.Visible() {
			continue
		}

		text, err := node.Text()
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if !approvalDigitPattern.MatchString(text) {
			continue
		}

		// Unparseable font sizes report 0, so such nodes lose ties.
		if px := node.FontSizePx(); px > bestFontPx {
			bestFontPx = px
			best = text
		}
	}

	return best
}
